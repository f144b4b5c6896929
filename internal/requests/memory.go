package requests

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
// Requests are deep-copied through JSON so callers never share slices with
// the stored state.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*Request

	// FailUpdate, when set, can refuse individual updates.
	FailUpdate func(r *Request) error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*Request)}
}

func deepCopy(r *Request) *Request {
	raw, _ := json.Marshal(r)
	var cp Request
	_ = json.Unmarshal(raw, &cp)
	return &cp
}

// Create inserts a request.
func (s *MemoryStore) Create(ctx context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = deepCopy(r)
	return nil
}

// Get retrieves one request by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(r), nil
}

// Update replaces a stored request.
func (s *MemoryStore) Update(ctx context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdate != nil {
		if err := s.FailUpdate(r); err != nil {
			return err
		}
	}
	if _, ok := s.requests[r.ID]; !ok {
		return ErrNotFound
	}
	s.requests[r.ID] = deepCopy(r)
	return nil
}
