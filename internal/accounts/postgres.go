package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the chart of accounts. The accounts table carries a
// unique index on code; insert conflicts surface as ErrExists so the
// registry can treat them as "already created".
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

// GetByCode retrieves an account by its unique code.
func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*Account, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var a Account
	err := s.Pool.QueryRow(queryCtx, `
		SELECT id, code, name, type, category, COALESCE(parent_code, ''), active, created_at, created_by
		FROM accounts
		WHERE code = $1
	`, code).Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.ParentCode, &a.Active, &a.CreatedAt, &a.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account %s: %w", code, err)
	}
	return &a, nil
}

// Create inserts a new account. A unique violation on code maps to
// ErrExists.
func (s *PostgresStore) Create(ctx context.Context, account *Account) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if !isValidType(account.Type) {
		return fmt.Errorf("invalid account type: %s", account.Type)
	}

	var parent any
	if account.ParentCode != "" {
		parent = account.ParentCode
	}

	_, err := s.Pool.Exec(queryCtx, `
		INSERT INTO accounts (id, code, name, type, category, parent_code, active, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), $8)
	`, account.ID, account.Code, account.Name, account.Type, account.Category, parent, account.Active, account.CreatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrExists
		}
		return fmt.Errorf("failed to insert account %s: %w", account.Code, err)
	}
	return nil
}

// List returns all active accounts ordered by code.
func (s *PostgresStore) List(ctx context.Context) ([]*Account, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := s.Pool.Query(queryCtx, `
		SELECT id, code, name, type, category, COALESCE(parent_code, ''), active, created_at, created_by
		FROM accounts
		WHERE active
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.ParentCode, &a.Active, &a.CreatedAt, &a.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
