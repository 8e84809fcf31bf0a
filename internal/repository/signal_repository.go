package repository

import (
	"context"
	"sync"

	"hunter-backend/internal/domain"
)

const DefaultSignalCapacity = 500

// InMemorySignalRepository keeps the newest signals in a bounded ring.
type InMemorySignalRepository struct {
	mu     sync.RWMutex
	events []domain.SignalEvent
	start  int
	cap    int
}

func NewInMemorySignalRepository(capacity int) *InMemorySignalRepository {
	if capacity < 1 {
		capacity = DefaultSignalCapacity
	}
	return &InMemorySignalRepository{
		events: make([]domain.SignalEvent, 0, capacity),
		cap:    capacity,
	}
}

func (r *InMemorySignalRepository) Record(_ context.Context, ev domain.SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) < r.cap {
		r.events = append(r.events, ev)
		return nil
	}
	r.events[r.start] = ev
	r.start = (r.start + 1) % r.cap
	return nil
}

// Recent returns up to limit signals, newest first.
func (r *InMemorySignalRepository) Recent(_ context.Context, limit int) ([]domain.SignalEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.SignalEvent, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (r.start + n - 1 - i) % n
		out = append(out, r.events[idx])
	}
	return out, nil
}
