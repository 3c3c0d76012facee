package orderdesk

import (
	"context"
	"sync"
)

// MemoryStore keeps orders in memory
type MemoryStore struct {
	mu          sync.RWMutex
	orders      map[string]*Order
	byReference map[string]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]*Order),
		byReference: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byReference[order.Reference]; exists {
		return ErrDuplicateReference
	}
	stored := *order
	stored.Items = append([]Item(nil), order.Items...)
	s.orders[order.ID] = &stored
	s.byReference[order.Reference] = order.ID
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *MemoryStore) GetByReference(ctx context.Context, reference string) (*Order, error) {
	s.mu.RLock()
	id, ok := s.byReference[reference]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrOrderNotFound
	}
	return s.Get(ctx, id)
}
