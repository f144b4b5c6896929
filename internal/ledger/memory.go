package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu  sync.Mutex
	txs []*Transaction

	// FailCreate, when set, makes Create fail for matching references.
	FailCreate func(tx *Transaction) error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Create appends the transaction.
func (s *MemoryStore) Create(ctx context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		if err := s.FailCreate(tx); err != nil {
			return err
		}
	}
	cp := *tx
	s.txs = append(s.txs, &cp)
	return nil
}

// GetByTransactionID retrieves one transaction by its human-readable id.
func (s *MemoryStore) GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.TransactionID == transactionID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// List pages through stored transactions in insertion order.
func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset >= len(s.txs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.txs) {
		end = len(s.txs)
	}
	out := make([]*Transaction, 0, end-offset)
	for _, tx := range s.txs[offset:end] {
		cp := *tx
		out = append(out, &cp)
	}
	return out, nil
}

// All returns every stored transaction.
func (s *MemoryStore) All() []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		cp := *tx
		out = append(out, &cp)
	}
	return out
}
