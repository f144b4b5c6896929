// Package accounts maintains the chart of accounts and resolves request
// line items, vendors and payment methods to account codes. Accounts are
// created lazily the first time a mapping needs them and are never deleted.
package accounts

import (
	"errors"
	"fmt"
	"time"
)

// Account types. A type never changes after creation.
const (
	TypeAsset     = "asset"
	TypeLiability = "liability"
	TypeEquity    = "equity"
	TypeIncome    = "income"
	TypeExpense   = "expense"
)

var (
	// ErrNotFound is returned by stores when no account has the given code.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned by stores when an insert hits the unique code
	// index. Callers treat it as "already created, re-fetch".
	ErrExists = errors.New("account code already exists")
)

// Account is a single entry in the chart of accounts.
type Account struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Category   string    `json:"category"`
	ParentCode string    `json:"parent_code,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by"`
}

// Criteria carries the inputs the registry matches against, in priority
// order: free text first, then vendor, then the item category.
type Criteria struct {
	Title       string
	Description string
	Provider    string
	Category    string
}

// Resolved is the outcome of a resolution: enough to build a ledger line
// without re-reading the account row.
type Resolved struct {
	Code string
	Name string
	Type string
}

// ResolutionError reports that resolution could not produce a usable
// account. Under normal operation this only happens on storage failures,
// which abort the posting that asked for the account.
type ResolutionError struct {
	Criteria Criteria
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving account for %q (provider %q, category %q): %v",
		e.Criteria.Title, e.Criteria.Provider, e.Criteria.Category, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// isValidType reports whether t is one of the five account types.
func isValidType(t string) bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
		return true
	}
	return false
}

// categoryForType derives the chart category for lazily created accounts.
func categoryForType(t string) string {
	switch t {
	case TypeAsset:
		return "Current Assets"
	case TypeLiability:
		return "Current Liabilities"
	case TypeEquity:
		return "Equity"
	case TypeIncome:
		return "Operating Income"
	default:
		return "Operating Expenses"
	}
}
