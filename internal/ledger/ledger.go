// Package ledger implements double-entry posting. Every monetary event
// becomes one immutable, balanced Transaction; corrections are new
// transactions, never edits.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source kinds recorded on transactions.
const (
	SourceExpenseAccrual = "expense_accrual"
	SourcePayment        = "payment"
	SourceVendorPayment  = "vendor_payment"
)

// StatusPosted is the only transaction status. There is no draft ledger
// state; a transaction exists only once it is final.
const StatusPosted = "posted"

// Line is a single debit or credit inside a transaction. The account name
// and type are denormalized at post time so the audit trail stays stable
// even if the account is later renamed.
type Line struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType string          `json:"account_type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

// Transaction is an immutable posted record. Lines are embedded with the
// transaction, never stored separately, so a read always sees the full
// balance.
type Transaction struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Reference     string          `json:"reference"`
	Lines         []Line          `json:"lines"`
	TotalDebit    decimal.Decimal `json:"total_debit"`
	TotalCredit   decimal.Decimal `json:"total_credit"`
	SourceKind    string          `json:"source_kind"`
	SourceModel   string          `json:"source_model"`
	SourceID      string          `json:"source_id"`
	ResidenceID   string          `json:"residence_id"`
	CreatedBy     string          `json:"created_by"`
	Status        string          `json:"status"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// UnbalancedError reports a debit/credit mismatch. The posting algorithm
// cannot produce one; the check exists to stop a programming error from
// reaching storage.
type UnbalancedError struct {
	TransactionID string
	TotalDebit    decimal.Decimal
	TotalCredit   decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("transaction %s is unbalanced: debits %s != credits %s",
		e.TransactionID, e.TotalDebit, e.TotalCredit)
}

// PostingError wraps any failure during Post. When it is returned, nothing
// was persisted.
type PostingError struct {
	Reference string
	Err       error
}

func (e *PostingError) Error() string {
	return fmt.Sprintf("posting for %s failed: %v", e.Reference, e.Err)
}

func (e *PostingError) Unwrap() error { return e.Err }
