package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/property-ledger/internal/accounts"
)

func newTestEngine(t *testing.T) (*Engine, *MemoryStore, *accounts.MemoryStore) {
	t.Helper()
	accountStore := accounts.NewMemoryStore()
	store := NewMemoryStore()
	engine := NewEngine(accounts.NewRegistry(accountStore, nil), store, nil)
	return engine, store, accountStore
}

func TestPost_BalancedPair(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	tx, err := engine.Post(context.Background(), Event{
		Amount:      decimal.NewFromFloat(50),
		Debit:       Side{Item: &accounts.Criteria{Title: "Water", Category: "utilities"}},
		Credit:      Side{PaymentMethod: "bank_transfer"},
		Description: "Water - September",
		Reference:   "req-1/item-0",
		ResidenceID: "res-1",
		SourceKind:  SourceExpenseAccrual,
		SourceModel: "request",
		SourceID:    "req-1",
		CreatedBy:   "user-1",
	})
	require.NoError(t, err)

	require.Len(t, tx.Lines, 2)
	debit, credit := tx.Lines[0], tx.Lines[1]

	assert.Equal(t, "5110", debit.AccountCode)
	assert.Equal(t, "Water & Sewer Expense", debit.AccountName)
	assert.Equal(t, accounts.TypeExpense, debit.AccountType)
	assert.True(t, debit.Debit.Equal(decimal.NewFromInt(50)))
	assert.True(t, debit.Credit.IsZero())

	assert.Equal(t, "1010", credit.AccountCode)
	assert.Equal(t, accounts.TypeAsset, credit.AccountType)
	assert.True(t, credit.Credit.Equal(decimal.NewFromInt(50)))
	assert.True(t, credit.Debit.IsZero())

	assert.True(t, tx.TotalDebit.Equal(tx.TotalCredit))
	assert.Equal(t, StatusPosted, tx.Status)
	assert.True(t, strings.HasPrefix(tx.TransactionID, "TXN-"))
	assert.Len(t, store.All(), 1)
}

func TestPost_VendorCreditSide(t *testing.T) {
	engine, _, accountStore := newTestEngine(t)

	tx, err := engine.Post(context.Background(), Event{
		Amount:     decimal.NewFromFloat(320.75),
		Debit:      Side{Item: &accounts.Criteria{Title: "Roof repair", Category: "maintenance"}},
		Credit:     Side{Vendor: "Acme Roofing"},
		Reference:  "req-2/item-0",
		SourceKind: SourceVendorPayment,
		CreatedBy:  "user-1",
	})
	require.NoError(t, err)

	credit := tx.Lines[1]
	assert.Equal(t, "2100-ACME-ROOFING", credit.AccountCode)
	assert.Equal(t, accounts.TypeLiability, credit.AccountType)

	sub, err := accountStore.GetByCode(context.Background(), credit.AccountCode)
	require.NoError(t, err)
	assert.Equal(t, "2100", sub.ParentCode)
}

func TestPost_RejectsNonPositiveAmounts(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		_, err := engine.Post(context.Background(), Event{
			Amount: amount,
			Debit:  Side{Item: &accounts.Criteria{Title: "Water"}},
		})
		require.Error(t, err)
		var postErr *PostingError
		assert.True(t, errors.As(err, &postErr))
	}
	assert.Empty(t, store.All(), "nothing persisted on rejected events")
}

func TestPost_ResolutionFailureCreatesNothing(t *testing.T) {
	accountStore := accounts.NewMemoryStore()
	store := NewMemoryStore()
	engine := NewEngine(accounts.NewRegistry(failingAccountStore{accountStore}, nil), store, nil)

	_, err := engine.Post(context.Background(), Event{
		Amount: decimal.NewFromInt(10),
		Debit:  Side{Item: &accounts.Criteria{Title: "Water"}},
	})
	require.Error(t, err)

	var resErr *accounts.ResolutionError
	assert.True(t, errors.As(err, &resErr))
	assert.Empty(t, store.All())
}

func TestPost_StorageFailureCreatesNothing(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	store.FailCreate = func(tx *Transaction) error { return errors.New("disk full") }

	_, err := engine.Post(context.Background(), Event{
		Amount: decimal.NewFromInt(10),
		Debit:  Side{Item: &accounts.Criteria{Title: "Water"}},
	})
	require.Error(t, err)
	assert.Empty(t, store.All())
}

func TestPost_DateDefaultsAndStamps(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	date := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	tx, err := engine.Post(context.Background(), Event{
		Amount: decimal.NewFromInt(10),
		Debit:  Side{Item: &accounts.Criteria{Title: "Water"}},
		Date:   date,
	})
	require.NoError(t, err)
	assert.Equal(t, date, tx.Date)
	assert.Contains(t, tx.TransactionID, "20250901")
}

// failingAccountStore delegates reads but refuses writes.
type failingAccountStore struct {
	inner *accounts.MemoryStore
}

func (f failingAccountStore) GetByCode(ctx context.Context, code string) (*accounts.Account, error) {
	return f.inner.GetByCode(ctx, code)
}

func (f failingAccountStore) Create(ctx context.Context, account *accounts.Account) error {
	return errors.New("storage refused the account")
}
