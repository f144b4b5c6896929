package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// CheckBalanced verifies the double-entry invariant for a transaction of
// any number of lines: every line is exclusively a debit or a credit with a
// non-negative amount, and the debit and credit totals are exactly equal.
func CheckBalanced(tx *Transaction) error {
	if len(tx.Lines) < 2 {
		return fmt.Errorf("transaction %s has %d lines, need at least 2", tx.TransactionID, len(tx.Lines))
	}

	for i, l := range tx.Lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return fmt.Errorf("transaction %s line %d has a negative amount", tx.TransactionID, i)
		}
		debitSet := !l.Debit.IsZero()
		creditSet := !l.Credit.IsZero()
		if debitSet == creditSet {
			return fmt.Errorf("transaction %s line %d must be exactly one of debit or credit", tx.TransactionID, i)
		}
	}

	debits, credits := totals(tx.Lines)
	if !debits.Equal(credits) {
		return &UnbalancedError{TransactionID: tx.TransactionID, TotalDebit: debits, TotalCredit: credits}
	}
	if !tx.TotalDebit.Equal(debits) || !tx.TotalCredit.Equal(credits) {
		return fmt.Errorf("transaction %s stored totals disagree with its lines", tx.TransactionID)
	}
	return nil
}

// Lister enumerates stored transactions for consistency sweeps.
type Lister interface {
	List(ctx context.Context, limit, offset int) ([]*Transaction, error)
}

// Validator re-checks stored transactions against the balance invariant.
// Used by the checker daemon; a hit means the immutability guarantee was
// violated outside this code path.
type Validator struct {
	store Lister
}

// NewValidator creates a validator over the given store.
func NewValidator(store Lister) *Validator {
	return &Validator{store: store}
}

// Violation describes one failed check.
type Violation struct {
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

// Sweep walks every stored transaction and returns the violations found.
func (v *Validator) Sweep(ctx context.Context) ([]Violation, error) {
	const pageSize = 500

	var violations []Violation
	var grand decimal.Decimal
	for offset := 0; ; offset += pageSize {
		page, err := v.store.List(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions: %w", err)
		}
		for _, tx := range page {
			if err := CheckBalanced(tx); err != nil {
				violations = append(violations, Violation{TransactionID: tx.TransactionID, Message: err.Error()})
			}
			if tx.Status != StatusPosted {
				violations = append(violations, Violation{TransactionID: tx.TransactionID, Message: "status is not posted"})
			}
			grand = grand.Add(tx.TotalDebit).Sub(tx.TotalCredit)
		}
		if len(page) < pageSize {
			break
		}
	}

	if !grand.IsZero() {
		violations = append(violations, Violation{Message: fmt.Sprintf("ledger-wide debit/credit drift: %s", grand)})
	}
	return violations, nil
}
