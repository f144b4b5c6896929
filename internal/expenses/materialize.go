package expenses

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/property-ledger/internal/directory"
	"github.com/example/property-ledger/internal/ledger"
)

// Store is the persistence contract for expenses.
type Store interface {
	Create(ctx context.Context, e *Expense) error
	GetByExpenseID(ctx context.Context, expenseID string) (*Expense, error)
	Update(ctx context.Context, e *Expense) error
}

// Input carries the request-side context for one materialization.
type Input struct {
	RequestID   string
	ItemIndex   int
	ResidenceID string
	Title       string
	Description string
	Provider    string
	Amount      decimal.Decimal
	Date        time.Time
	Actor       directory.Actor
}

// Materializer creates expense records from posted transactions.
type Materializer struct {
	store  Store
	logger *slog.Logger
}

// NewMaterializer creates a materializer over the given store.
func NewMaterializer(store Store, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{store: store, logger: logger}
}

// Materialize creates the expense for one item, linked to its posted
// transaction. It must only be called after the transaction is confirmed
// persisted; a nil or unposted transaction is refused outright.
func (m *Materializer) Materialize(ctx context.Context, in Input, tx *ledger.Transaction) (*Expense, error) {
	if tx == nil || tx.TransactionID == "" {
		return nil, fmt.Errorf("item %q: refusing to materialize without a posted transaction", in.Title)
	}
	if tx.Status != ledger.StatusPosted {
		return nil, fmt.Errorf("item %q: transaction %s is not posted", in.Title, tx.TransactionID)
	}

	accountName := ""
	if len(tx.Lines) > 0 {
		accountName = tx.Lines[0].AccountName
	}

	e := &Expense{
		ID:            uuid.NewString(),
		ExpenseID:     newExpenseID(in.Date, uuid.NewString()[:8]),
		ResidenceID:   in.ResidenceID,
		Category:      CategoryFromAccountName(accountName),
		Amount:        in.Amount,
		Description:   in.Title,
		ExpenseDate:   in.Date,
		PaymentStatus: PaymentPending,
		Provider:      in.Provider,
		RequestID:     in.RequestID,
		ItemIndex:     in.ItemIndex,
		TransactionID: tx.TransactionID,
		CreatedBy:     in.Actor.ID,
	}
	if in.Description != "" {
		e.Description = in.Title + ": " + in.Description
	}

	if err := m.store.Create(ctx, e); err != nil {
		// The transaction is already posted; surfacing the failure lets the
		// caller abort the conversion instead of losing track of it.
		return nil, fmt.Errorf("item %q: expense for posted transaction %s could not be stored: %w",
			in.Title, tx.TransactionID, err)
	}

	m.logger.Info("expense_materialized",
		"expense_id", e.ExpenseID,
		"transaction_id", e.TransactionID,
		"category", e.Category,
		"amount", e.Amount.String(),
	)
	return e, nil
}
