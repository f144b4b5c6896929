package expenses

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	expenses map[string]*Expense

	// FailCreate, when set, can refuse individual inserts.
	FailCreate func(e *Expense) error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{expenses: make(map[string]*Expense)}
}

// Create inserts an expense.
func (s *MemoryStore) Create(ctx context.Context, e *Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		if err := s.FailCreate(e); err != nil {
			return err
		}
	}
	cp := *e
	s.expenses[e.ExpenseID] = &cp
	return nil
}

// GetByExpenseID retrieves one expense.
func (s *MemoryStore) GetByExpenseID(ctx context.Context, expenseID string) (*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[expenseID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// Update replaces a stored expense.
func (s *MemoryStore) Update(ctx context.Context, e *Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ExpenseID]; !ok {
		return ErrNotFound
	}
	cp := *e
	s.expenses[e.ExpenseID] = &cp
	return nil
}

// ListByRequest returns the expenses for one request in item order.
func (s *MemoryStore) ListByRequest(ctx context.Context, requestID string) ([]*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Expense
	for _, e := range s.expenses {
		if e.RequestID == requestID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemIndex < out[j].ItemIndex })
	return out, nil
}

// All returns every stored expense.
func (s *MemoryStore) All() []*Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		cp := *e
		out = append(out, &cp)
	}
	return out
}
