package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS indexed_commitments (
	id BYTEA PRIMARY KEY,
	committer BYTEA NOT NULL,
	target BYTEA NOT NULL,
	chain_id BIGINT NOT NULL,

	committed_at TIMESTAMPTZ NOT NULL,
	reveal_deadline TIMESTAMPTZ NOT NULL,
	revealed BOOLEAN NOT NULL DEFAULT FALSE,

	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	CONSTRAINT ix_commitment_id_len CHECK (octet_length(id) = 32),
	CONSTRAINT ix_commitment_committer_len CHECK (octet_length(committer) = 20),
	CONSTRAINT ix_commitment_target_len CHECK (octet_length(target) = 20),
	CONSTRAINT ix_commitment_chain_pos CHECK (chain_id > 0)
);

CREATE TABLE IF NOT EXISTS indexed_specs (
	id BYTEA PRIMARY KEY,
	creator BYTEA NOT NULL,
	target BYTEA NOT NULL,
	chain_id BIGINT NOT NULL,
	content_hash BYTEA NOT NULL,

	status TEXT NOT NULL,
	bond BIGINT NOT NULL DEFAULT 0,
	question_id BYTEA,

	accepted BOOLEAN NOT NULL DEFAULT FALSE,
	payout BIGINT NOT NULL DEFAULT 0,
	fee BIGINT NOT NULL DEFAULT 0,

	revealed_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	CONSTRAINT ix_spec_id_len CHECK (octet_length(id) = 32),
	CONSTRAINT ix_spec_creator_len CHECK (octet_length(creator) = 20),
	CONSTRAINT ix_spec_target_len CHECK (octet_length(target) = 20),
	CONSTRAINT ix_spec_content_hash_len CHECK (octet_length(content_hash) = 32),
	CONSTRAINT ix_spec_question_len CHECK (question_id IS NULL OR octet_length(question_id) = 32),
	CONSTRAINT ix_spec_chain_pos CHECK (chain_id > 0),
	CONSTRAINT ix_spec_bond_nonneg CHECK (bond >= 0)
);

CREATE INDEX IF NOT EXISTS indexed_specs_key_idx ON indexed_specs (chain_id, target);

CREATE TABLE IF NOT EXISTS indexed_incentives (
	id BYTEA PRIMARY KEY,
	creator BYTEA NOT NULL,
	target BYTEA NOT NULL,
	chain_id BIGINT NOT NULL,
	amount BIGINT NOT NULL,

	created_at TIMESTAMPTZ NOT NULL,
	deadline TIMESTAMPTZ NOT NULL,
	clawed_back BOOLEAN NOT NULL DEFAULT FALSE,

	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	CONSTRAINT ix_incentive_id_len CHECK (octet_length(id) = 32),
	CONSTRAINT ix_incentive_creator_len CHECK (octet_length(creator) = 20),
	CONSTRAINT ix_incentive_target_len CHECK (octet_length(target) = 20),
	CONSTRAINT ix_incentive_chain_pos CHECK (chain_id > 0),
	CONSTRAINT ix_incentive_amount_pos CHECK (amount > 0)
);

CREATE TABLE IF NOT EXISTS indexed_pools (
	chain_id BIGINT NOT NULL,
	target BYTEA NOT NULL,
	total BIGINT NOT NULL DEFAULT 0,
	contributors BIGINT NOT NULL DEFAULT 0,

	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	PRIMARY KEY (chain_id, target),
	CONSTRAINT ix_pool_target_len CHECK (octet_length(target) = 20),
	CONSTRAINT ix_pool_total_nonneg CHECK (total >= 0),
	CONSTRAINT ix_pool_contributors_nonneg CHECK (contributors >= 0)
);
`
