package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS commitments (
	id BYTEA PRIMARY KEY,
	committer BYTEA NOT NULL,
	target BYTEA NOT NULL,
	chain_id BIGINT NOT NULL,

	committed_at TIMESTAMPTZ NOT NULL,
	reveal_deadline TIMESTAMPTZ NOT NULL,

	revealed BOOLEAN NOT NULL DEFAULT FALSE,
	bond BIGINT NOT NULL DEFAULT 0,
	incentive_id BYTEA,

	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	CONSTRAINT commitment_id_len CHECK (octet_length(id) = 32),
	CONSTRAINT commitment_committer_len CHECK (octet_length(committer) = 20),
	CONSTRAINT commitment_target_len CHECK (octet_length(target) = 20),
	CONSTRAINT commitment_chain_pos CHECK (chain_id > 0),
	CONSTRAINT commitment_bond_nonneg CHECK (bond >= 0),
	CONSTRAINT commitment_incentive_len CHECK (incentive_id IS NULL OR octet_length(incentive_id) = 32)
);

CREATE TABLE IF NOT EXISTS specs (
	id BYTEA PRIMARY KEY,
	seq BIGSERIAL,

	created_at TIMESTAMPTZ NOT NULL,
	proposed_at TIMESTAMPTZ,
	status SMALLINT NOT NULL,
	bond BIGINT NOT NULL DEFAULT 0,

	creator BYTEA NOT NULL,
	target BYTEA NOT NULL,
	content_hash BYTEA NOT NULL,
	question_id BYTEA,
	incentive_id BYTEA,
	chain_id BIGINT NOT NULL,

	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	CONSTRAINT spec_id_len CHECK (octet_length(id) = 32),
	CONSTRAINT spec_creator_len CHECK (octet_length(creator) = 20),
	CONSTRAINT spec_target_len CHECK (octet_length(target) = 20),
	CONSTRAINT spec_content_hash_len CHECK (octet_length(content_hash) = 32),
	CONSTRAINT spec_question_len CHECK (question_id IS NULL OR octet_length(question_id) = 32),
	CONSTRAINT spec_incentive_len CHECK (incentive_id IS NULL OR octet_length(incentive_id) = 32),
	CONSTRAINT spec_chain_pos CHECK (chain_id > 0),
	CONSTRAINT spec_status_range CHECK (status >= 1 AND status <= 4),
	CONSTRAINT spec_bond_nonneg CHECK (bond >= 0)
);

CREATE INDEX IF NOT EXISTS specs_key_idx ON specs (chain_id, target, seq);

CREATE TABLE IF NOT EXISTS incentives (
	id BYTEA PRIMARY KEY,
	seq BIGSERIAL,

	creator BYTEA NOT NULL,
	amount BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	deadline TIMESTAMPTZ NOT NULL,
	target BYTEA NOT NULL,
	chain_id BIGINT NOT NULL,
	claimed BOOLEAN NOT NULL DEFAULT FALSE,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	description TEXT NOT NULL DEFAULT '',

	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	CONSTRAINT incentive_id_len CHECK (octet_length(id) = 32),
	CONSTRAINT incentive_creator_len CHECK (octet_length(creator) = 20),
	CONSTRAINT incentive_target_len CHECK (octet_length(target) = 20),
	CONSTRAINT incentive_chain_pos CHECK (chain_id > 0),
	CONSTRAINT incentive_amount_pos CHECK (amount > 0)
);

CREATE INDEX IF NOT EXISTS incentives_key_idx ON incentives (chain_id, target, seq);
CREATE INDEX IF NOT EXISTS incentives_creator_idx ON incentives (creator, seq);

CREATE TABLE IF NOT EXISTS pools (
	chain_id BIGINT NOT NULL,
	target BYTEA NOT NULL,
	total BIGINT NOT NULL DEFAULT 0,
	contributors BIGINT NOT NULL DEFAULT 0,

	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	PRIMARY KEY (chain_id, target),
	CONSTRAINT pool_target_len CHECK (octet_length(target) = 20),
	CONSTRAINT pool_total_nonneg CHECK (total >= 0),
	CONSTRAINT pool_contributors_nonneg CHECK (contributors >= 0)
);
`
