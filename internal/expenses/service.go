package expenses

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/property-ledger/internal/directory"
	"github.com/example/property-ledger/internal/ledger"
)

// Poster posts payment events; satisfied by *ledger.Engine.
type Poster interface {
	Post(ctx context.Context, event ledger.Event) (*ledger.Transaction, error)
}

// Service handles expense payment. Paying an accrued expense settles the
// payable it was credited against: debit the payable, credit the payment
// source account.
type Service struct {
	store  Store
	poster Poster
	logger *slog.Logger
}

// NewService creates an expense service.
func NewService(store Store, poster Poster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, poster: poster, logger: logger}
}

// MarkPaid settles a pending or overdue expense with the given payment
// method. The settlement posting happens first; the expense is only flagged
// paid once its payment transaction exists.
func (s *Service) MarkPaid(ctx context.Context, expenseID, method string, actor directory.Actor) (*Expense, error) {
	if method == "" {
		return nil, fmt.Errorf("payment method is required to mark expense %s paid", expenseID)
	}

	e, err := s.store.GetByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if e.PaymentStatus == PaymentPaid {
		return nil, fmt.Errorf("expense %s is already paid", expenseID)
	}

	debit := ledger.Side{Payable: true}
	sourceKind := ledger.SourcePayment
	if e.Provider != "" {
		debit = ledger.Side{Vendor: e.Provider}
		sourceKind = ledger.SourceVendorPayment
	}

	tx, err := s.poster.Post(ctx, ledger.Event{
		Amount:      e.Amount,
		Debit:       debit,
		Credit:      ledger.Side{PaymentMethod: method},
		Description: "Payment: " + e.Description,
		Reference:   e.ExpenseID,
		ResidenceID: e.ResidenceID,
		SourceKind:  sourceKind,
		SourceModel: "expense",
		SourceID:    e.ID,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		return nil, err
	}

	e.PaymentStatus = PaymentPaid
	e.PaymentMethod = method
	if err := s.store.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("payment %s posted but expense %s could not be updated: %w",
			tx.TransactionID, expenseID, err)
	}

	s.logger.Info("expense_paid", "expense_id", e.ExpenseID, "method", method, "payment_txn", tx.TransactionID)
	return e, nil
}
