package accounts

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It enforces the same unique-code semantics as the postgres store.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*Account)}
}

// GetByCode retrieves an account by code.
func (s *MemoryStore) GetByCode(ctx context.Context, code string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// Create inserts an account, failing with ErrExists on a duplicate code.
func (s *MemoryStore) Create(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Code]; ok {
		return ErrExists
	}
	cp := *account
	s.accounts[account.Code] = &cp
	return nil
}

// List returns every stored account.
func (s *MemoryStore) List(ctx context.Context) ([]*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

// Count returns the number of stored accounts.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}
