package txn

import (
	"context"
	"sync"
	"time"
)

type inMemoryStore struct {
	mu   sync.Mutex
	byRef map[string]Transaction
}

// NewInMemory creates a concurrency-safe in-memory store. It backs unit
// tests and local development without Postgres.
func NewInMemory() Store {
	return &inMemoryStore{byRef: make(map[string]Transaction)}
}

func (s *inMemoryStore) Create(_ context.Context, t Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byRef[t.MerchantRef]; exists {
		return ErrDuplicateRef
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.byRef[t.MerchantRef] = t
	return nil
}

func (s *inMemoryStore) Get(_ context.Context, ref string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byRef[ref]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return t, nil
}

func (s *inMemoryStore) GetByProviderOrder(_ context.Context, orderID string) (Transaction, error) {
	if orderID == "" {
		return Transaction{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.byRef {
		if t.ProviderOrderID == orderID {
			return t, nil
		}
	}
	return Transaction{}, ErrNotFound
}

func (s *inMemoryStore) Transition(_ context.Context, ref string, from, to Status, extra Extra) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byRef[ref]
	if !ok {
		return false, ErrNotFound
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	if extra.Message != "" {
		t.Message = extra.Message
	}
	if extra.ProviderOrderID != "" {
		t.ProviderOrderID = extra.ProviderOrderID
	}
	if extra.RawResponse != nil {
		t.RawResponse = extra.RawResponse
	}
	t.UpdatedAt = time.Now().UTC()
	s.byRef[ref] = t
	return true, nil
}
