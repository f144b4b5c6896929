package expenses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/property-ledger/internal/accounts"
	"github.com/example/property-ledger/internal/directory"
	"github.com/example/property-ledger/internal/ledger"
)

func postedTransaction(accountName string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:            "id-1",
		TransactionID: "TXN-20250901-ABCD1234",
		Status:        ledger.StatusPosted,
		Lines: []ledger.Line{
			{AccountCode: "5110", AccountName: accountName, Debit: decimal.NewFromInt(50)},
			{AccountCode: "2100", AccountName: "Accounts Payable", Credit: decimal.NewFromInt(50)},
		},
	}
}

func TestMaterialize(t *testing.T) {
	store := NewMemoryStore()
	m := NewMaterializer(store, nil)

	date := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	e, err := m.Materialize(context.Background(), Input{
		RequestID:   "req-1",
		ItemIndex:   0,
		ResidenceID: "res-1",
		Title:       "Water",
		Amount:      decimal.NewFromInt(50),
		Date:        date,
		Actor:       directory.Actor{ID: "user-1", Role: directory.RoleFinance},
	}, postedTransaction("Water & Sewer Expense"))
	require.NoError(t, err)

	assert.Equal(t, CategoryUtilities, e.Category)
	assert.Equal(t, "TXN-20250901-ABCD1234", e.TransactionID)
	assert.Equal(t, PaymentPending, e.PaymentStatus)
	assert.Equal(t, date, e.ExpenseDate)
	assert.Equal(t, "user-1", e.CreatedBy)
	assert.Contains(t, e.ExpenseID, "EXP-20250901-")
	assert.Len(t, store.All(), 1)
}

func TestMaterialize_RefusesUnpostedTransaction(t *testing.T) {
	m := NewMaterializer(NewMemoryStore(), nil)
	in := Input{Title: "Water", Amount: decimal.NewFromInt(50), Date: time.Now()}

	_, err := m.Materialize(context.Background(), in, nil)
	assert.Error(t, err)

	tx := postedTransaction("Water & Sewer Expense")
	tx.Status = "draft"
	_, err = m.Materialize(context.Background(), in, tx)
	assert.Error(t, err)
}

func TestMaterialize_StorageFailureSurfaces(t *testing.T) {
	store := NewMemoryStore()
	store.FailCreate = func(e *Expense) error { return errors.New("constraint violated") }
	m := NewMaterializer(store, nil)

	_, err := m.Materialize(context.Background(), Input{
		Title:  "Water",
		Amount: decimal.NewFromInt(50),
		Date:   time.Now(),
	}, postedTransaction("Water & Sewer Expense"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TXN-20250901-ABCD1234")
}

func TestCategoryFromAccountName(t *testing.T) {
	cases := map[string]string{
		"Water & Sewer Expense":        CategoryUtilities,
		"Electricity Expense":          CategoryUtilities,
		"Gas Utility Expense":          CategoryUtilities,
		"Plumbing Maintenance Expense": CategoryMaintenance,
		"General Maintenance Expense":  CategoryMaintenance,
		"Property Taxes Expense":       CategoryTaxes,
		"Property Insurance Expense":   CategoryInsurance,
		"Salaries & Wages Expense":     CategorySalaries,
		"Office Supplies Expense":      CategorySupplies,
		"Legal & Professional Fees":    CategoryOther,
		"":                             CategoryOther,
	}
	for name, want := range cases {
		assert.Equal(t, want, CategoryFromAccountName(name), "account %q", name)
	}
}

// Resolving an item into a category-specific account and mapping the account
// name back must return the original category.
func TestCategoryRoundTrip(t *testing.T) {
	reg := accounts.NewRegistry(accounts.NewMemoryStore(), nil)
	ctx := context.Background()

	cases := []struct {
		title    string
		category string
	}{
		{"Water bill", CategoryUtilities},
		{"Plumbing repair", CategoryMaintenance},
		{"Ground rent tax", CategoryTaxes},
		{"Insurance premium", CategoryInsurance},
		{"Caretaker salaries", CategorySalaries},
		{"Stationery restock", CategorySupplies},
	}
	for _, tc := range cases {
		res, err := reg.Resolve(ctx, accounts.Criteria{Title: tc.title})
		require.NoError(t, err)
		assert.Equal(t, tc.category, CategoryFromAccountName(res.Name), "title %q resolved to %q", tc.title, res.Name)
	}
}

func TestMarkPaid(t *testing.T) {
	accountStore := accounts.NewMemoryStore()
	txStore := ledger.NewMemoryStore()
	engine := ledger.NewEngine(accounts.NewRegistry(accountStore, nil), txStore, nil)

	store := NewMemoryStore()
	m := NewMaterializer(store, nil)
	svc := NewService(store, engine, nil)

	e, err := m.Materialize(context.Background(), Input{
		Title:    "Roof repair",
		Provider: "Acme Roofing",
		Amount:   decimal.NewFromInt(200),
		Date:     time.Now(),
	}, postedTransaction("Roofing Maintenance Expense"))
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), e.ExpenseID, "bank_transfer", directory.Actor{ID: "fin-1"})
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, "bank_transfer", paid.PaymentMethod)

	// Settlement posting: debit the vendor payable, credit the bank.
	txs := txStore.All()
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.SourceVendorPayment, txs[0].SourceKind)
	assert.Equal(t, "2100-ACME-ROOFING", txs[0].Lines[0].AccountCode)
	assert.Equal(t, "1010", txs[0].Lines[1].AccountCode)

	// Paying twice is refused.
	_, err = svc.MarkPaid(context.Background(), e.ExpenseID, "cash", directory.Actor{ID: "fin-1"})
	assert.Error(t, err)
	assert.Len(t, txStore.All(), 1)
}

func TestMarkPaid_RequiresMethod(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil)
	_, err := svc.MarkPaid(context.Background(), "EXP-1", "", directory.Actor{ID: "fin-1"})
	assert.Error(t, err)
}
