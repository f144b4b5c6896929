package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no transaction has the given identifier.
var ErrNotFound = errors.New("transaction not found")

// PostgresStore persists transactions with their lines embedded as JSONB,
// so a transaction's full balance is always read atomically. Rows are
// insert-only; there is no update path.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

// Create inserts the transaction in a single statement.
func (s *PostgresStore) Create(ctx context.Context, tx *Transaction) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	lines, err := json.Marshal(tx.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}
	var metadata []byte
	if tx.Metadata != nil {
		if metadata, err = json.Marshal(tx.Metadata); err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
	}

	_, err = s.Pool.Exec(queryCtx, `
		INSERT INTO ledger_transactions (
			id, transaction_id, date, description, reference, lines,
			total_debit, total_credit, source_kind, source_model, source_id,
			residence_id, created_by, status, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
	`, tx.ID, tx.TransactionID, tx.Date, tx.Description, tx.Reference, lines,
		tx.TotalDebit.String(), tx.TotalCredit.String(), tx.SourceKind, tx.SourceModel, tx.SourceID,
		tx.ResidenceID, tx.CreatedBy, tx.Status, metadata)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", tx.TransactionID, err)
	}
	return nil
}

// GetByTransactionID retrieves one transaction by its human-readable id.
func (s *PostgresStore) GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.Pool.QueryRow(queryCtx, selectColumns+` WHERE transaction_id = $1`, transactionID)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", transactionID, err)
	}
	return tx, nil
}

// ListBySource retrieves every transaction created for one source record,
// ordered by creation.
func (s *PostgresStore) ListBySource(ctx context.Context, sourceModel, sourceID string) ([]*Transaction, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := s.Pool.Query(queryCtx, selectColumns+`
		WHERE source_model = $1 AND source_id = $2
		ORDER BY created_at
	`, sourceModel, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// List pages through all transactions in creation order.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Transaction, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := s.Pool.Query(queryCtx, selectColumns+`
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

const selectColumns = `
	SELECT id, transaction_id, date, description, reference, lines,
	       total_debit, total_credit, source_kind, source_model, source_id,
	       residence_id, created_by, status, metadata, created_at
	FROM ledger_transactions`

func scanAll(rows pgx.Rows) ([]*Transaction, error) {
	var out []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var tx Transaction
	var lines []byte
	var metadata []byte
	var totalDebit, totalCredit string

	err := row.Scan(&tx.ID, &tx.TransactionID, &tx.Date, &tx.Description, &tx.Reference, &lines,
		&totalDebit, &totalCredit, &tx.SourceKind, &tx.SourceModel, &tx.SourceID,
		&tx.ResidenceID, &tx.CreatedBy, &tx.Status, &metadata, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lines, &tx.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode lines: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	if tx.TotalDebit, err = decimal.NewFromString(totalDebit); err != nil {
		return nil, fmt.Errorf("failed to parse total_debit: %w", err)
	}
	if tx.TotalCredit, err = decimal.NewFromString(totalCredit); err != nil {
		return nil, fmt.Errorf("failed to parse total_credit: %w", err)
	}
	return &tx, nil
}
