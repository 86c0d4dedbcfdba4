package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"attesto/pkg/platform/sentinel"
)

// PostgresStore persists credential records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	var expires sql.NullTime
	if record.ExpirationDate != nil {
		expires = sql.NullTime{Time: *record.ExpirationDate, Valid: true}
	}

	// lib/pq encodes []byte as bytea; jsonb needs the text form.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, issuer, subject, issuance_date, expiration_date, claims)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.Issuer, record.Subject, record.IssuanceDate, expires, string(record.Claims),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, issuer, subject, issuance_date, expiration_date, claims
		FROM credentials WHERE id = $1`,
		credentialID,
	)

	var (
		record  Record
		expires sql.NullTime
		claims  []byte
	)
	err := row.Scan(&record.ID, &record.Issuer, &record.Subject, &record.IssuanceDate, &expires, &claims)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find credential by id: %w", err)
	}

	if expires.Valid {
		t := expires.Time.UTC()
		record.ExpirationDate = &t
	}
	record.IssuanceDate = record.IssuanceDate.UTC()
	record.Claims = claims
	return record, nil
}

// ensure interface compliance at compile time.
var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
