// Package postgres persists the indexer read model. Every write is an upsert
// keyed on the natural identifier so topic replays converge.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainspec/registry/internal/indexer"
)

var ErrInvalidConfig = errors.New("indexer/postgres: invalid config")

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
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("indexer/postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) UpsertCommitment(ctx context.Context, row indexer.CommitmentRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexed_commitments (id, committer, target, chain_id, committed_at, reveal_deadline, revealed, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
		ON CONFLICT (id) DO UPDATE SET
			revealed = indexed_commitments.revealed OR EXCLUDED.revealed,
			updated_at = now()
	`, row.CommitmentID[:], row.Committer[:], row.Target[:], int64(row.ChainID),
		row.CommittedAt, row.RevealDeadline, row.Revealed)
	if err != nil {
		return fmt.Errorf("indexer/postgres: upsert commitment: %w", err)
	}
	return nil
}

func (s *Store) MarkCommitmentRevealed(ctx context.Context, commitmentID common.Hash) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE indexed_commitments SET revealed = TRUE, updated_at = now() WHERE id = $1
	`, commitmentID[:])
	if err != nil {
		return fmt.Errorf("indexer/postgres: mark revealed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: commitment %s", indexer.ErrNotFound, commitmentID.Hex())
	}
	return nil
}

func (s *Store) UpsertSpec(ctx context.Context, row indexer.SpecRow) error {
	// A replayed reveal never regresses a proposed or finalized row.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexed_specs (id, creator, target, chain_id, content_hash, status, bond, revealed_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING
	`, row.SpecID[:], row.Creator[:], row.Target[:], int64(row.ChainID), row.ContentHash[:],
		row.Status, int64(row.Bond), row.RevealedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("indexer/postgres: upsert spec: %w", err)
	}
	return nil
}

func (s *Store) MarkSpecProposed(ctx context.Context, specID, questionID common.Hash, bond uint64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE indexed_specs
		SET status = 'proposed', question_id = $2, bond = $3, updated_at = $4
		WHERE id = $1 AND status <> 'finalized'
	`, specID[:], questionID[:], int64(bond), at)
	if err != nil {
		return fmt.Errorf("indexer/postgres: mark proposed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if exists, checkErr := s.specExists(ctx, specID); checkErr != nil {
			return checkErr
		} else if !exists {
			return fmt.Errorf("%w: spec %s", indexer.ErrNotFound, specID.Hex())
		}
	}
	return nil
}

func (s *Store) MarkSpecSettled(ctx context.Context, specID common.Hash, accepted bool, payout, fee uint64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE indexed_specs
		SET status = 'finalized', accepted = $2, payout = $3, fee = $4, updated_at = $5
		WHERE id = $1
	`, specID[:], accepted, int64(payout), int64(fee), at)
	if err != nil {
		return fmt.Errorf("indexer/postgres: mark settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: spec %s", indexer.ErrNotFound, specID.Hex())
	}
	return nil
}

func (s *Store) UpsertIncentive(ctx context.Context, row indexer.IncentiveRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexed_incentives (id, creator, target, chain_id, amount, created_at, deadline, clawed_back, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		ON CONFLICT (id) DO UPDATE SET
			clawed_back = indexed_incentives.clawed_back OR EXCLUDED.clawed_back,
			updated_at = now()
	`, row.IncentiveID[:], row.Creator[:], row.Target[:], int64(row.ChainID), int64(row.Amount),
		row.CreatedAt, row.Deadline, row.ClawedBack)
	if err != nil {
		return fmt.Errorf("indexer/postgres: upsert incentive: %w", err)
	}
	return nil
}

func (s *Store) MarkIncentiveClawedBack(ctx context.Context, incentiveID common.Hash) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE indexed_incentives SET clawed_back = TRUE, updated_at = now() WHERE id = $1
	`, incentiveID[:])
	if err != nil {
		return fmt.Errorf("indexer/postgres: mark clawed back: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: incentive %s", indexer.ErrNotFound, incentiveID.Hex())
	}
	return nil
}

func (s *Store) UpsertPool(ctx context.Context, row indexer.PoolRow) error {
	// Snapshots are versioned by their event timestamp; a stale replay loses.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexed_pools (chain_id, target, total, contributors, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (chain_id, target) DO UPDATE SET
			total = EXCLUDED.total,
			contributors = EXCLUDED.contributors,
			updated_at = EXCLUDED.updated_at
		WHERE indexed_pools.updated_at <= EXCLUDED.updated_at
	`, int64(row.ChainID), row.Target[:], int64(row.Total), int64(row.Contributors), row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("indexer/postgres: upsert pool: %w", err)
	}
	return nil
}

func (s *Store) Commitment(ctx context.Context, commitmentID common.Hash) (indexer.CommitmentRow, error) {
	var (
		row          indexer.CommitmentRow
		idRaw        []byte
		committerRaw []byte
		targetRaw    []byte
		chainID      int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, committer, target, chain_id, committed_at, reveal_deadline, revealed
		FROM indexed_commitments WHERE id = $1
	`, commitmentID[:]).Scan(&idRaw, &committerRaw, &targetRaw, &chainID,
		&row.CommittedAt, &row.RevealDeadline, &row.Revealed)
	if errors.Is(err, pgx.ErrNoRows) {
		return indexer.CommitmentRow{}, fmt.Errorf("%w: commitment %s", indexer.ErrNotFound, commitmentID.Hex())
	}
	if err != nil {
		return indexer.CommitmentRow{}, fmt.Errorf("indexer/postgres: get commitment: %w", err)
	}
	row.CommitmentID = common.BytesToHash(idRaw)
	row.Committer = common.BytesToAddress(committerRaw)
	row.Target = common.BytesToAddress(targetRaw)
	row.ChainID = uint64(chainID)
	return row, nil
}

func (s *Store) Spec(ctx context.Context, specID common.Hash) (indexer.SpecRow, error) {
	var (
		row         indexer.SpecRow
		idRaw       []byte
		creatorRaw  []byte
		targetRaw   []byte
		chainID     int64
		contentRaw  []byte
		bond        int64
		questionRaw []byte
		payout      int64
		fee         int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, creator, target, chain_id, content_hash, status, bond, question_id,
			accepted, payout, fee, revealed_at, updated_at
		FROM indexed_specs WHERE id = $1
	`, specID[:]).Scan(&idRaw, &creatorRaw, &targetRaw, &chainID, &contentRaw,
		&row.Status, &bond, &questionRaw, &row.Accepted, &payout, &fee,
		&row.RevealedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return indexer.SpecRow{}, fmt.Errorf("%w: spec %s", indexer.ErrNotFound, specID.Hex())
	}
	if err != nil {
		return indexer.SpecRow{}, fmt.Errorf("indexer/postgres: get spec: %w", err)
	}
	row.SpecID = common.BytesToHash(idRaw)
	row.Creator = common.BytesToAddress(creatorRaw)
	row.Target = common.BytesToAddress(targetRaw)
	row.ChainID = uint64(chainID)
	row.ContentHash = common.BytesToHash(contentRaw)
	row.Bond = uint64(bond)
	if len(questionRaw) == 32 {
		row.QuestionID = common.BytesToHash(questionRaw)
	}
	row.Payout = uint64(payout)
	row.Fee = uint64(fee)
	return row, nil
}

func (s *Store) Incentive(ctx context.Context, incentiveID common.Hash) (indexer.IncentiveRow, error) {
	var (
		row        indexer.IncentiveRow
		idRaw      []byte
		creatorRaw []byte
		targetRaw  []byte
		chainID    int64
		amount     int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, creator, target, chain_id, amount, created_at, deadline, clawed_back
		FROM indexed_incentives WHERE id = $1
	`, incentiveID[:]).Scan(&idRaw, &creatorRaw, &targetRaw, &chainID, &amount,
		&row.CreatedAt, &row.Deadline, &row.ClawedBack)
	if errors.Is(err, pgx.ErrNoRows) {
		return indexer.IncentiveRow{}, fmt.Errorf("%w: incentive %s", indexer.ErrNotFound, incentiveID.Hex())
	}
	if err != nil {
		return indexer.IncentiveRow{}, fmt.Errorf("indexer/postgres: get incentive: %w", err)
	}
	row.IncentiveID = common.BytesToHash(idRaw)
	row.Creator = common.BytesToAddress(creatorRaw)
	row.Target = common.BytesToAddress(targetRaw)
	row.ChainID = uint64(chainID)
	row.Amount = uint64(amount)
	return row, nil
}

func (s *Store) Pool(ctx context.Context, chainID uint64, target common.Address) (indexer.PoolRow, error) {
	var (
		row          indexer.PoolRow
		total        int64
		contributors int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT total, contributors, updated_at FROM indexed_pools WHERE chain_id = $1 AND target = $2
	`, int64(chainID), target[:]).Scan(&total, &contributors, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return indexer.PoolRow{}, fmt.Errorf("%w: pool %d/%s", indexer.ErrNotFound, chainID, target.Hex())
	}
	if err != nil {
		return indexer.PoolRow{}, fmt.Errorf("indexer/postgres: get pool: %w", err)
	}
	row.ChainID = chainID
	row.Target = target
	row.Total = uint64(total)
	row.Contributors = uint64(contributors)
	return row, nil
}

func (s *Store) specExists(ctx context.Context, specID common.Hash) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM indexed_specs WHERE id = $1`, specID[:]).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("indexer/postgres: spec exists: %w", err)
	}
	return true, nil
}
