// Package expenses materializes approved request items into expense records
// and tracks their payment. An expense created through the conversion path
// always carries the id of an already-posted ledger transaction; producing
// one without it is a data-integrity violation.
package expenses

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Expense categories, a closed enum.
const (
	CategoryMaintenance = "Maintenance"
	CategoryUtilities   = "Utilities"
	CategoryTaxes       = "Taxes"
	CategoryInsurance   = "Insurance"
	CategorySalaries    = "Salaries"
	CategorySupplies    = "Supplies"
	CategoryOther       = "Other"
)

// Payment statuses.
const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
	PaymentOverdue = "Overdue"
)

// ErrNotFound is returned by stores when no expense matches.
var ErrNotFound = errors.New("expense not found")

// Expense is one materialized cost, linked 1:1 to its ledger transaction.
type Expense struct {
	ID            string          `json:"id"`
	ExpenseID     string          `json:"expense_id"`
	ResidenceID   string          `json:"residence_id"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	ExpenseDate   time.Time       `json:"expense_date"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Provider      string          `json:"provider,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	ItemIndex     int             `json:"item_index"`
	TransactionID string          `json:"transaction_id"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// categoryHints maps account-name fragments to expense categories. Order
// matters: utility names like "Water & Sewer Expense" must win before the
// maintenance fragments get a look at words like "sewer line repair".
var categoryHints = []struct {
	fragments []string
	category  string
}{
	{[]string{"water", "sewer", "electricity", "gas", "internet", "cable", "waste", "utilit"}, CategoryUtilities},
	{[]string{"tax", "levy", "license"}, CategoryTaxes},
	{[]string{"insurance"}, CategoryInsurance},
	{[]string{"salar", "wage", "payroll"}, CategorySalaries},
	{[]string{"supplies", "stationery", "hardware", "fixture"}, CategorySupplies},
	{[]string{"maintenance", "repair", "plumbing", "cleaning", "janitorial", "pest", "landscap", "roof", "paint", "hvac", "elevator"}, CategoryMaintenance},
}

// CategoryFromAccountName maps a resolved account's display name onto the
// closed expense category enum.
func CategoryFromAccountName(name string) string {
	lower := strings.ToLower(name)
	for _, hint := range categoryHints {
		for _, frag := range hint.fragments {
			if strings.Contains(lower, frag) {
				return hint.category
			}
		}
	}
	return CategoryOther
}

// newExpenseID builds the human-readable expense identifier.
func newExpenseID(date time.Time, suffix string) string {
	return fmt.Sprintf("EXP-%s-%s", date.UTC().Format("20060102"), strings.ToUpper(suffix))
}
