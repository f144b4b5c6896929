package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists expenses.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

const expenseColumns = `
	SELECT id, expense_id, residence_id, category, amount, description, expense_date,
	       payment_status, COALESCE(payment_method, ''), COALESCE(provider, ''),
	       COALESCE(request_id, ''), item_index, transaction_id, created_by, created_at
	FROM expenses`

// Create inserts an expense. The transaction_id column carries a NOT NULL
// constraint; the conversion-path invariant is enforced in the schema too.
func (s *PostgresStore) Create(ctx context.Context, e *Expense) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.Pool.Exec(queryCtx, `
		INSERT INTO expenses (
			id, expense_id, residence_id, category, amount, description, expense_date,
			payment_status, payment_method, provider, request_id, item_index,
			transaction_id, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12, $13, $14, now())
	`, e.ID, e.ExpenseID, e.ResidenceID, e.Category, e.Amount.String(), e.Description, e.ExpenseDate,
		e.PaymentStatus, e.PaymentMethod, e.Provider, e.RequestID, e.ItemIndex,
		e.TransactionID, e.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to insert expense %s: %w", e.ExpenseID, err)
	}
	return nil
}

// GetByExpenseID retrieves one expense by its human-readable id.
func (s *PostgresStore) GetByExpenseID(ctx context.Context, expenseID string) (*Expense, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.Pool.QueryRow(queryCtx, expenseColumns+` WHERE expense_id = $1`, expenseID)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get expense %s: %w", expenseID, err)
	}
	return e, nil
}

// Update persists payment-status changes.
func (s *PostgresStore) Update(ctx context.Context, e *Expense) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := s.Pool.Exec(queryCtx, `
		UPDATE expenses
		SET payment_status = $2, payment_method = NULLIF($3, '')
		WHERE expense_id = $1
	`, e.ExpenseID, e.PaymentStatus, e.PaymentMethod)
	if err != nil {
		return fmt.Errorf("failed to update expense %s: %w", e.ExpenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByRequest retrieves the expenses created from one request, in item
// order.
func (s *PostgresStore) ListByRequest(ctx context.Context, requestID string) ([]*Expense, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := s.Pool.Query(queryCtx, expenseColumns+`
		WHERE request_id = $1
		ORDER BY item_index
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var out []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	var amount string
	err := row.Scan(&e.ID, &e.ExpenseID, &e.ResidenceID, &e.Category, &amount, &e.Description, &e.ExpenseDate,
		&e.PaymentStatus, &e.PaymentMethod, &e.Provider,
		&e.RequestID, &e.ItemIndex, &e.TransactionID, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	return &e, nil
}
