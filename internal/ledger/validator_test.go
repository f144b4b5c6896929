package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(code string, debit, credit int64) Line {
	return Line{
		AccountCode: code,
		Debit:       decimal.NewFromInt(debit),
		Credit:      decimal.NewFromInt(credit),
	}
}

func TestCheckBalanced(t *testing.T) {
	cases := []struct {
		name    string
		tx      *Transaction
		wantErr bool
	}{
		{
			name: "balanced pair",
			tx: &Transaction{
				TransactionID: "TXN-1",
				Lines:         []Line{line("5110", 50, 0), line("1010", 0, 50)},
				TotalDebit:    decimal.NewFromInt(50),
				TotalCredit:   decimal.NewFromInt(50),
			},
		},
		{
			name: "balanced vendor split across four lines",
			tx: &Transaction{
				TransactionID: "TXN-2",
				Lines: []Line{
					line("5110", 30, 0), line("5210", 70, 0),
					line("2100-A", 0, 70), line("1010", 0, 30),
				},
				TotalDebit:  decimal.NewFromInt(100),
				TotalCredit: decimal.NewFromInt(100),
			},
		},
		{
			name: "unbalanced",
			tx: &Transaction{
				TransactionID: "TXN-3",
				Lines:         []Line{line("5110", 50, 0), line("1010", 0, 49)},
				TotalDebit:    decimal.NewFromInt(50),
				TotalCredit:   decimal.NewFromInt(49),
			},
			wantErr: true,
		},
		{
			name: "line with both sides set",
			tx: &Transaction{
				TransactionID: "TXN-4",
				Lines:         []Line{{AccountCode: "5110", Debit: decimal.NewFromInt(5), Credit: decimal.NewFromInt(5)}, line("1010", 0, 0)},
			},
			wantErr: true,
		},
		{
			name: "negative amount",
			tx: &Transaction{
				TransactionID: "TXN-5",
				Lines:         []Line{line("5110", -5, 0), line("1010", 0, -5)},
			},
			wantErr: true,
		},
		{
			name: "single line",
			tx: &Transaction{
				TransactionID: "TXN-6",
				Lines:         []Line{line("5110", 5, 0)},
			},
			wantErr: true,
		},
		{
			name: "totals disagree with lines",
			tx: &Transaction{
				TransactionID: "TXN-7",
				Lines:         []Line{line("5110", 50, 0), line("1010", 0, 50)},
				TotalDebit:    decimal.NewFromInt(49),
				TotalCredit:   decimal.NewFromInt(50),
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckBalanced(tc.tx)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckBalanced_ExactToTheCent(t *testing.T) {
	cents := func(s string) decimal.Decimal {
		d, err := decimal.NewFromString(s)
		require.NoError(t, err)
		return d
	}

	tx := &Transaction{
		TransactionID: "TXN-C",
		Lines: []Line{
			{AccountCode: "5110", Debit: cents("0.10"), Credit: decimal.Zero},
			{AccountCode: "5120", Debit: cents("0.20"), Credit: decimal.Zero},
			{AccountCode: "1010", Debit: decimal.Zero, Credit: cents("0.30")},
		},
		TotalDebit:  cents("0.30"),
		TotalCredit: cents("0.30"),
	}
	// 0.10 + 0.20 == 0.30 exactly; float arithmetic would miss this.
	assert.NoError(t, CheckBalanced(tx))

	tx.Lines[2].Credit = cents("0.31")
	tx.TotalCredit = cents("0.31")
	err := CheckBalanced(tx)
	require.Error(t, err)

	var unbalanced *UnbalancedError
	assert.True(t, errors.As(err, &unbalanced))
}

func TestValidator_Sweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	good := &Transaction{
		TransactionID: "TXN-OK",
		Status:        StatusPosted,
		Lines:         []Line{line("5110", 50, 0), line("1010", 0, 50)},
		TotalDebit:    decimal.NewFromInt(50),
		TotalCredit:   decimal.NewFromInt(50),
	}
	bad := &Transaction{
		TransactionID: "TXN-BAD",
		Status:        StatusPosted,
		Lines:         []Line{line("5110", 50, 0), line("1010", 0, 40)},
		TotalDebit:    decimal.NewFromInt(50),
		TotalCredit:   decimal.NewFromInt(40),
	}
	require.NoError(t, store.Create(ctx, good))
	require.NoError(t, store.Create(ctx, bad))

	violations, err := NewValidator(store).Sweep(ctx)
	require.NoError(t, err)

	var ids []string
	for _, v := range violations {
		ids = append(ids, v.TransactionID)
	}
	assert.Contains(t, ids, "TXN-BAD")
	assert.NotContains(t, ids, "TXN-OK")
}
