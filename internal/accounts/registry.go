package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Store is the persistence contract for the chart of accounts. Create must
// enforce a unique index on code and return ErrExists on conflict so that
// concurrent first-use of the same mapping cannot duplicate an account.
type Store interface {
	GetByCode(ctx context.Context, code string) (*Account, error)
	Create(ctx context.Context, account *Account) error
}

// Registry resolves items, vendors and payment methods to account codes,
// creating missing accounts on first use. Resolution is deterministic and
// idempotent: identical input always yields the same code.
type Registry struct {
	store  Store
	logger *slog.Logger
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, logger: logger}
}

// Resolve maps an item to its expense account. Order: keyword table over
// title+description+provider, then the provider table, then the item
// category table, then the default operating-expense account.
func (r *Registry) Resolve(ctx context.Context, c Criteria) (Resolved, error) {
	res := r.lookup(c)
	if err := r.ensure(ctx, res, ""); err != nil {
		return Resolved{}, &ResolutionError{Criteria: c, Err: err}
	}
	return res, nil
}

func (r *Registry) lookup(c Criteria) Resolved {
	text := strings.ToLower(c.Title + " " + c.Description + " " + c.Provider)
	for _, rule := range keywordRules {
		if rule.matches(text) {
			return Resolved{Code: rule.Code, Name: rule.Name, Type: TypeExpense}
		}
	}

	if provider := strings.ToLower(c.Provider); provider != "" {
		for _, rule := range providerRules {
			if rule.matches(provider) {
				return Resolved{Code: rule.Code, Name: rule.Name, Type: TypeExpense}
			}
		}
	}

	if res, ok := categoryAccounts[strings.ToLower(c.Category)]; ok {
		return res
	}

	return defaultExpense
}

// PaymentSource maps a payment method to the asset account the money leaves
// from, defaulting to the operating bank account.
func (r *Registry) PaymentSource(ctx context.Context, method string) (Resolved, error) {
	res, ok := paymentSourceAccounts[strings.ToLower(method)]
	if !ok {
		res = defaultPaymentSource
	}
	if err := r.ensure(ctx, res, ""); err != nil {
		return Resolved{}, &ResolutionError{Criteria: Criteria{Provider: method}, Err: err}
	}
	return res, nil
}

// MasterPayable resolves the master Accounts Payable account, used as the
// credit side for accruals that have no selected vendor.
func (r *Registry) MasterPayable(ctx context.Context) (Resolved, error) {
	if err := r.ensure(ctx, payableMaster, ""); err != nil {
		return Resolved{}, &ResolutionError{Criteria: Criteria{}, Err: err}
	}
	return payableMaster, nil
}

// VendorPayable resolves the per-vendor liability sub-account nested under
// the master Accounts Payable account, creating both on first use.
func (r *Registry) VendorPayable(ctx context.Context, provider string) (Resolved, error) {
	c := Criteria{Provider: provider}
	if strings.TrimSpace(provider) == "" {
		return Resolved{}, &ResolutionError{Criteria: c, Err: errors.New("provider is empty")}
	}

	if err := r.ensure(ctx, payableMaster, ""); err != nil {
		return Resolved{}, &ResolutionError{Criteria: c, Err: err}
	}

	res := Resolved{
		Code: payableMaster.Code + "-" + vendorSlug(provider),
		Name: payableMaster.Name + " - " + strings.TrimSpace(provider),
		Type: TypeLiability,
	}
	if err := r.ensure(ctx, res, payableMaster.Code); err != nil {
		return Resolved{}, &ResolutionError{Criteria: c, Err: err}
	}
	return res, nil
}

// ensure creates the account if it does not exist yet. A unique-index
// conflict means another caller won the race; the account is re-fetched to
// confirm it is usable.
func (r *Registry) ensure(ctx context.Context, res Resolved, parentCode string) error {
	_, err := r.store.GetByCode(ctx, res.Code)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	account := &Account{
		ID:         uuid.NewString(),
		Code:       res.Code,
		Name:       res.Name,
		Type:       res.Type,
		Category:   categoryForType(res.Type),
		ParentCode: parentCode,
		Active:     true,
		CreatedBy:  "system",
	}
	err = r.store.Create(ctx, account)
	if err == nil {
		r.logger.Info("account_created", "code", res.Code, "name", res.Name, "type", res.Type)
		return nil
	}
	if errors.Is(err, ErrExists) {
		_, err = r.store.GetByCode(ctx, res.Code)
	}
	return err
}

// vendorSlug derives a stable sub-account suffix from a vendor name.
func vendorSlug(provider string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(provider)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if n := b.Len(); n > 0 && b.String()[n-1] != '-' {
				b.WriteByte('-')
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 24 {
		slug = slug[:24]
	}
	if slug == "" {
		slug = "UNNAMED"
	}
	return slug
}
