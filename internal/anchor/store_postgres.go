package anchor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"attesto/pkg/platform/sentinel"
)

// PostgresBatchStore persists anchor batches in PostgreSQL for deployments
// where the retry pipeline must survive restarts.
type PostgresBatchStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed batch store.
func NewPostgres(db *sql.DB) *PostgresBatchStore {
	return &PostgresBatchStore{db: db}
}

func (s *PostgresBatchStore) Create(ctx context.Context, batch *Batch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO anchor_batches
			(id, proof_hashes, chain_tx_hash, status, retry_count, next_retry_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		batch.ID, pq.Array(batch.ProofHashes), batch.ChainTxHash, string(batch.Status),
		batch.RetryCount, nullTime(batch.NextRetryAt), batch.LastError, batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create anchor batch: %w", err)
	}
	return nil
}

func (s *PostgresBatchStore) Get(ctx context.Context, batchID string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, proof_hashes, chain_tx_hash, status, retry_count, next_retry_at, last_error, created_at, updated_at
		FROM anchor_batches WHERE id = $1`,
		batchID,
	)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get anchor batch: %w", err)
	}
	return batch, nil
}

func (s *PostgresBatchStore) Update(ctx context.Context, batch *Batch) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE anchor_batches
		SET chain_tx_hash = $2, status = $3, retry_count = $4, next_retry_at = $5,
		    last_error = $6, updated_at = $7
		WHERE id = $1`,
		batch.ID, batch.ChainTxHash, string(batch.Status), batch.RetryCount,
		nullTime(batch.NextRetryAt), batch.LastError, batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update anchor batch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update anchor batch: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresBatchStore) Due(ctx context.Context, now time.Time, limit int) ([]*Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, proof_hashes, chain_tx_hash, status, retry_count, next_retry_at, last_error, created_at, updated_at
		FROM anchor_batches
		WHERE status = 'Pending' OR (status = 'Failed' AND next_retry_at <= $1)
		ORDER BY created_at ASC
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due anchor batches: %w", err)
	}
	defer rows.Close()

	var due []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan anchor batch: %w", err)
		}
		due = append(due, batch)
	}
	return due, rows.Err()
}

func (s *PostgresBatchStore) ContainsConfirmedHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM anchor_batches
			WHERE status = 'Confirmed' AND $1 = ANY(proof_hashes)
		)`,
		hash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup confirmed hash: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*Batch, error) {
	var (
		batch     Batch
		hashes    pq.StringArray
		status    string
		nextRetry sql.NullTime
	)
	err := row.Scan(&batch.ID, &hashes, &batch.ChainTxHash, &status, &batch.RetryCount,
		&nextRetry, &batch.LastError, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		return nil, err
	}
	batch.ProofHashes = []string(hashes)
	batch.Status = BatchStatus(status)
	if nextRetry.Valid {
		batch.NextRetryAt = nextRetry.Time.UTC()
	}
	batch.CreatedAt = batch.CreatedAt.UTC()
	batch.UpdatedAt = batch.UpdatedAt.UTC()
	return &batch, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

var _ BatchStore = (*PostgresBatchStore)(nil)
