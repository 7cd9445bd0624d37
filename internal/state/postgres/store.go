package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainspec/registry/internal/commitment"
	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/spec"
	"github.com/chainspec/registry/internal/state"
)

var ErrInvalidConfig = errors.New("state/postgres: invalid config")

const pgUniqueViolation = "23505"

// Store is a pgx-backed state.Store. ExecTx maps directly onto a database
// transaction.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrInvalidConfig)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("state/postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) ExecTx(ctx context.Context, fn func(ctx context.Context, tx state.Tx) error) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("state/postgres: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("state/postgres: commit: %w", err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) GetCommitment(ctx context.Context, id common.Hash) (commitment.Commitment, error) {
	return getCommitment(ctx, s.pool, id)
}

func (s *Store) GetSpec(ctx context.Context, id common.Hash) (spec.Spec, error) {
	return getSpec(ctx, s.pool, id)
}

func (s *Store) GetIncentive(ctx context.Context, id common.Hash) (incentive.Incentive, error) {
	return getIncentive(ctx, s.pool, id)
}

func (s *Store) Pool(ctx context.Context, key incentive.PoolKey) (incentive.Pool, error) {
	return getPool(ctx, s.pool, key)
}

func (s *Store) SpecsFor(ctx context.Context, key incentive.PoolKey) ([]spec.Spec, error) {
	return querySpecs(ctx, s.pool, key, 0, -1)
}

func (s *Store) SpecsPage(ctx context.Context, key incentive.PoolKey, offset, limit int) ([]spec.Spec, int, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, state.ErrInvalidInput
	}
	total, err := s.CountSpecs(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	if offset >= total {
		return []spec.Spec{}, total, nil
	}
	specs, err := querySpecs(ctx, s.pool, key, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return specs, total, nil
}

func (s *Store) CountSpecs(ctx context.Context, key incentive.PoolKey) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM specs WHERE chain_id = $1 AND target = $2
	`, int64(key.ChainID), key.Target[:]).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("state/postgres: count specs: %w", err)
	}
	return n, nil
}

func (s *Store) IncentivesFor(ctx context.Context, key incentive.PoolKey) ([]incentive.Incentive, error) {
	return queryIncentives(ctx, s.pool, `
		SELECT id, creator, amount, created_at, deadline, target, chain_id, claimed, active, description
		FROM incentives
		WHERE chain_id = $1 AND target = $2
		ORDER BY seq
	`, int64(key.ChainID), key.Target[:])
}

func (s *Store) IncentivesBy(ctx context.Context, creator common.Address) ([]incentive.Incentive, error) {
	return queryIncentives(ctx, s.pool, `
		SELECT id, creator, amount, created_at, deadline, target, chain_id, claimed, active, description
		FROM incentives
		WHERE creator = $1
		ORDER BY seq
	`, creator[:])
}

func (s *Store) CreatorIncentiveCount(ctx context.Context, creator common.Address) (uint64, error) {
	return creatorIncentiveCount(ctx, s.pool, creator)
}

type pgTx struct {
	q querier
}

func (t *pgTx) GetCommitment(ctx context.Context, id common.Hash) (commitment.Commitment, error) {
	return getCommitment(ctx, t.q, id)
}

func (t *pgTx) InsertCommitment(ctx context.Context, c commitment.Commitment) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO commitments (
			id, committer, target, chain_id,
			committed_at, reveal_deadline,
			revealed, bond, incentive_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, c.ID[:], c.Committer[:], c.Target[:], int64(c.ChainID),
		c.CommittedAt, c.RevealDeadline,
		c.Revealed, int64(c.Bond), hashOrNil(c.IncentiveID))
	if err != nil {
		return mapInsertErr("insert commitment", err)
	}
	return nil
}

func (t *pgTx) UpdateCommitment(ctx context.Context, c commitment.Commitment) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE commitments
		SET revealed = $2, bond = $3, incentive_id = $4, updated_at = now()
		WHERE id = $1
	`, c.ID[:], c.Revealed, int64(c.Bond), hashOrNil(c.IncentiveID))
	if err != nil {
		return fmt.Errorf("state/postgres: update commitment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return state.ErrNotFound
	}
	return nil
}

func (t *pgTx) GetSpec(ctx context.Context, id common.Hash) (spec.Spec, error) {
	return getSpec(ctx, t.q, id)
}

func (t *pgTx) InsertSpec(ctx context.Context, sp spec.Spec) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO specs (
			id, created_at, proposed_at, status, bond,
			creator, target, content_hash, question_id, incentive_id, chain_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sp.ID[:], sp.CreatedAt, timeOrNil(sp.ProposedAt), int16(sp.Status), int64(sp.Bond),
		sp.Creator[:], sp.Target[:], sp.ContentHash[:], hashOrNil(sp.QuestionID),
		hashOrNil(sp.IncentiveID), int64(sp.ChainID))
	if err != nil {
		return mapInsertErr("insert spec", err)
	}
	return nil
}

func (t *pgTx) UpdateSpec(ctx context.Context, sp spec.Spec) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE specs
		SET proposed_at = $2, status = $3, bond = $4, question_id = $5, updated_at = now()
		WHERE id = $1
	`, sp.ID[:], timeOrNil(sp.ProposedAt), int16(sp.Status), int64(sp.Bond), hashOrNil(sp.QuestionID))
	if err != nil {
		return fmt.Errorf("state/postgres: update spec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return state.ErrNotFound
	}
	return nil
}

func (t *pgTx) GetIncentive(ctx context.Context, id common.Hash) (incentive.Incentive, error) {
	return getIncentive(ctx, t.q, id)
}

func (t *pgTx) InsertIncentive(ctx context.Context, in incentive.Incentive) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO incentives (
			id, creator, amount, created_at, deadline,
			target, chain_id, claimed, active, description
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, in.ID[:], in.Creator[:], int64(in.Amount), in.CreatedAt, in.Deadline,
		in.Target[:], int64(in.ChainID), in.Claimed, in.Active, in.Description)
	if err != nil {
		return mapInsertErr("insert incentive", err)
	}
	return nil
}

func (t *pgTx) UpdateIncentive(ctx context.Context, in incentive.Incentive) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE incentives
		SET claimed = $2, active = $3, updated_at = now()
		WHERE id = $1
	`, in.ID[:], in.Claimed, in.Active)
	if err != nil {
		return fmt.Errorf("state/postgres: update incentive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return state.ErrNotFound
	}
	return nil
}

func (t *pgTx) Pool(ctx context.Context, key incentive.PoolKey) (incentive.Pool, error) {
	return getPool(ctx, t.q, key)
}

func (t *pgTx) SetPool(ctx context.Context, key incentive.PoolKey, p incentive.Pool) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO pools (chain_id, target, total, contributors, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (chain_id, target) DO UPDATE
		SET total = EXCLUDED.total, contributors = EXCLUDED.contributors, updated_at = now()
	`, int64(key.ChainID), key.Target[:], int64(p.Total), int64(p.Contributors))
	if err != nil {
		return fmt.Errorf("state/postgres: set pool: %w", err)
	}
	return nil
}

func (t *pgTx) IncentivesFor(ctx context.Context, key incentive.PoolKey) ([]incentive.Incentive, error) {
	return queryIncentives(ctx, t.q, `
		SELECT id, creator, amount, created_at, deadline, target, chain_id, claimed, active, description
		FROM incentives
		WHERE chain_id = $1 AND target = $2
		ORDER BY seq
	`, int64(key.ChainID), key.Target[:])
}

func (t *pgTx) CreatorIncentiveCount(ctx context.Context, creator common.Address) (uint64, error) {
	return creatorIncentiveCount(ctx, t.q, creator)
}

func getCommitment(ctx context.Context, q querier, id common.Hash) (commitment.Commitment, error) {
	var (
		idRaw, committerRaw, targetRaw, incentiveRaw []byte
		chainID                                      int64
		committedAt, revealDeadline                  time.Time
		revealed                                     bool
		bond                                         int64
	)
	err := q.QueryRow(ctx, `
		SELECT id, committer, target, chain_id, committed_at, reveal_deadline, revealed, bond, incentive_id
		FROM commitments WHERE id = $1
	`, id[:]).Scan(&idRaw, &committerRaw, &targetRaw, &chainID, &committedAt, &revealDeadline, &revealed, &bond, &incentiveRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return commitment.Commitment{}, state.ErrNotFound
	}
	if err != nil {
		return commitment.Commitment{}, fmt.Errorf("state/postgres: get commitment: %w", err)
	}
	return commitment.Commitment{
		ID:             common.BytesToHash(idRaw),
		Committer:      common.BytesToAddress(committerRaw),
		Target:         common.BytesToAddress(targetRaw),
		ChainID:        uint64(chainID),
		CommittedAt:    committedAt.UTC(),
		RevealDeadline: revealDeadline.UTC(),
		Revealed:       revealed,
		Bond:           uint64(bond),
		IncentiveID:    common.BytesToHash(incentiveRaw),
	}, nil
}

func getSpec(ctx context.Context, q querier, id common.Hash) (spec.Spec, error) {
	row := q.QueryRow(ctx, `
		SELECT id, created_at, proposed_at, status, bond, creator, target, content_hash, question_id, incentive_id, chain_id
		FROM specs WHERE id = $1
	`, id[:])
	sp, err := scanSpec(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return spec.Spec{}, state.ErrNotFound
	}
	if err != nil {
		return spec.Spec{}, fmt.Errorf("state/postgres: get spec: %w", err)
	}
	return sp, nil
}

func getIncentive(ctx context.Context, q querier, id common.Hash) (incentive.Incentive, error) {
	row := q.QueryRow(ctx, `
		SELECT id, creator, amount, created_at, deadline, target, chain_id, claimed, active, description
		FROM incentives WHERE id = $1
	`, id[:])
	in, err := scanIncentive(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return incentive.Incentive{}, state.ErrNotFound
	}
	if err != nil {
		return incentive.Incentive{}, fmt.Errorf("state/postgres: get incentive: %w", err)
	}
	return in, nil
}

func getPool(ctx context.Context, q querier, key incentive.PoolKey) (incentive.Pool, error) {
	var total, contributors int64
	err := q.QueryRow(ctx, `
		SELECT total, contributors FROM pools WHERE chain_id = $1 AND target = $2
	`, int64(key.ChainID), key.Target[:]).Scan(&total, &contributors)
	if errors.Is(err, pgx.ErrNoRows) {
		return incentive.Pool{}, nil
	}
	if err != nil {
		return incentive.Pool{}, fmt.Errorf("state/postgres: get pool: %w", err)
	}
	return incentive.Pool{Total: uint64(total), Contributors: uint64(contributors)}, nil
}

func querySpecs(ctx context.Context, q querier, key incentive.PoolKey, offset, limit int) ([]spec.Spec, error) {
	sql := `
		SELECT id, created_at, proposed_at, status, bond, creator, target, content_hash, question_id, incentive_id, chain_id
		FROM specs
		WHERE chain_id = $1 AND target = $2
		ORDER BY seq
	`
	args := []any{int64(key.ChainID), key.Target[:]}
	if limit >= 0 {
		sql += ` OFFSET $3 LIMIT $4`
		args = append(args, offset, limit)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("state/postgres: query specs: %w", err)
	}
	defer rows.Close()

	var out []spec.Spec
	for rows.Next() {
		sp, err := scanSpec(rows)
		if err != nil {
			return nil, fmt.Errorf("state/postgres: scan spec: %w", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state/postgres: iterate specs: %w", err)
	}
	if out == nil {
		out = []spec.Spec{}
	}
	return out, nil
}

func queryIncentives(ctx context.Context, q querier, sql string, args ...any) ([]incentive.Incentive, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("state/postgres: query incentives: %w", err)
	}
	defer rows.Close()

	var out []incentive.Incentive
	for rows.Next() {
		in, err := scanIncentive(rows)
		if err != nil {
			return nil, fmt.Errorf("state/postgres: scan incentive: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state/postgres: iterate incentives: %w", err)
	}
	if out == nil {
		out = []incentive.Incentive{}
	}
	return out, nil
}

func creatorIncentiveCount(ctx context.Context, q querier, creator common.Address) (uint64, error) {
	var n int64
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM incentives WHERE creator = $1
	`, creator[:]).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("state/postgres: creator incentive count: %w", err)
	}
	return uint64(n), nil
}

func scanSpec(row pgx.Row) (spec.Spec, error) {
	var (
		idRaw, creatorRaw, targetRaw, contentRaw, questionRaw, incentiveRaw []byte
		createdAt                                                           time.Time
		proposedAt                                                          *time.Time
		status                                                              int16
		bond, chainID                                                       int64
	)
	err := row.Scan(&idRaw, &createdAt, &proposedAt, &status, &bond, &creatorRaw, &targetRaw, &contentRaw, &questionRaw, &incentiveRaw, &chainID)
	if err != nil {
		return spec.Spec{}, err
	}
	sp := spec.Spec{
		ID:          common.BytesToHash(idRaw),
		CreatedAt:   createdAt.UTC(),
		Status:      spec.Status(status),
		Bond:        uint64(bond),
		Creator:     common.BytesToAddress(creatorRaw),
		Target:      common.BytesToAddress(targetRaw),
		ContentHash: common.BytesToHash(contentRaw),
		QuestionID:  common.BytesToHash(questionRaw),
		IncentiveID: common.BytesToHash(incentiveRaw),
		ChainID:     uint64(chainID),
	}
	if proposedAt != nil {
		sp.ProposedAt = proposedAt.UTC()
	}
	return sp, nil
}

func scanIncentive(row pgx.Row) (incentive.Incentive, error) {
	var (
		idRaw, creatorRaw, targetRaw []byte
		amount, chainID              int64
		createdAt, deadline          time.Time
		claimed, active              bool
		description                  string
	)
	err := row.Scan(&idRaw, &creatorRaw, &amount, &createdAt, &deadline, &targetRaw, &chainID, &claimed, &active, &description)
	if err != nil {
		return incentive.Incentive{}, err
	}
	return incentive.Incentive{
		ID:          common.BytesToHash(idRaw),
		Creator:     common.BytesToAddress(creatorRaw),
		Amount:      uint64(amount),
		CreatedAt:   createdAt.UTC(),
		Deadline:    deadline.UTC(),
		Target:      common.BytesToAddress(targetRaw),
		ChainID:     uint64(chainID),
		Claimed:     claimed,
		Active:      active,
		Description: description,
	}, nil
}

func hashOrNil(h common.Hash) []byte {
	if h == (common.Hash{}) {
		return nil
	}
	return h[:]
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func mapInsertErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return state.ErrAlreadyExists
	}
	return fmt.Errorf("state/postgres: %s: %w", op, err)
}
