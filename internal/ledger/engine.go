package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/property-ledger/internal/accounts"
)

// Side selects how one side of a posting resolves to an account. Exactly
// one field should be set; an empty Side resolves to the default payment
// source (the operating bank account).
type Side struct {
	// Item resolves through the keyword/provider/category tables.
	Item *accounts.Criteria
	// Vendor resolves to the vendor's payable sub-account.
	Vendor string
	// Payable resolves to the master Accounts Payable account.
	Payable bool
	// PaymentMethod resolves to the matching asset account.
	PaymentMethod string
}

// Event is one monetary event to post: an amount moving from the credit
// side to the debit side.
type Event struct {
	Amount      decimal.Decimal
	Debit       Side
	Credit      Side
	Description string
	Reference   string
	ResidenceID string
	SourceKind  string
	SourceModel string
	SourceID    string
	Date        time.Time
	CreatedBy   string
	Metadata    map[string]any
}

// Store is the persistence contract for posted transactions. Create is a
// single atomic write: either the whole transaction with all its lines is
// stored, or nothing is.
type Store interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)
}

// Engine turns events into balanced, posted transactions.
type Engine struct {
	registry *accounts.Registry
	store    Store
	logger   *slog.Logger
}

// NewEngine creates a posting engine.
func NewEngine(registry *accounts.Registry, store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: registry, store: store, logger: logger}
}

// Post resolves both sides of the event, builds the debit/credit pair,
// verifies the balance and persists the transaction as already posted.
// On any failure nothing is persisted and a PostingError is returned.
func (e *Engine) Post(ctx context.Context, event Event) (*Transaction, error) {
	if event.Amount.IsNegative() || event.Amount.IsZero() {
		return nil, &PostingError{Reference: event.Reference, Err: fmt.Errorf("amount must be positive, got %s", event.Amount)}
	}

	debit, err := e.resolve(ctx, event.Debit)
	if err != nil {
		return nil, &PostingError{Reference: event.Reference, Err: err}
	}
	credit, err := e.resolve(ctx, event.Credit)
	if err != nil {
		return nil, &PostingError{Reference: event.Reference, Err: err}
	}

	date := event.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	tx := &Transaction{
		ID:            uuid.NewString(),
		TransactionID: newTransactionID(date),
		Date:          date,
		Description:   event.Description,
		Reference:     event.Reference,
		Lines: []Line{
			{
				AccountCode: debit.Code,
				AccountName: debit.Name,
				AccountType: debit.Type,
				Debit:       event.Amount,
				Credit:      decimal.Zero,
				Description: event.Description,
			},
			{
				AccountCode: credit.Code,
				AccountName: credit.Name,
				AccountType: credit.Type,
				Debit:       decimal.Zero,
				Credit:      event.Amount,
				Description: event.Description,
			},
		},
		SourceKind:  event.SourceKind,
		SourceModel: event.SourceModel,
		SourceID:    event.SourceID,
		ResidenceID: event.ResidenceID,
		CreatedBy:   event.CreatedBy,
		Status:      StatusPosted,
		Metadata:    event.Metadata,
	}
	tx.TotalDebit, tx.TotalCredit = totals(tx.Lines)

	if err := CheckBalanced(tx); err != nil {
		return nil, &PostingError{Reference: event.Reference, Err: err}
	}

	if err := e.store.Create(ctx, tx); err != nil {
		return nil, &PostingError{Reference: event.Reference, Err: err}
	}

	e.logger.Info("transaction_posted",
		"transaction_id", tx.TransactionID,
		"amount", event.Amount.String(),
		"debit", debit.Code,
		"credit", credit.Code,
		"source", event.SourceKind,
	)
	return tx, nil
}

func (e *Engine) resolve(ctx context.Context, side Side) (accounts.Resolved, error) {
	switch {
	case side.Item != nil:
		return e.registry.Resolve(ctx, *side.Item)
	case strings.TrimSpace(side.Vendor) != "":
		return e.registry.VendorPayable(ctx, side.Vendor)
	case side.Payable:
		return e.registry.MasterPayable(ctx)
	default:
		return e.registry.PaymentSource(ctx, side.PaymentMethod)
	}
}

// newTransactionID builds the human-readable identifier: a date prefix for
// operators plus a random suffix for uniqueness.
func newTransactionID(date time.Time) string {
	return fmt.Sprintf("TXN-%s-%s", date.UTC().Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

func totals(lines []Line) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}
