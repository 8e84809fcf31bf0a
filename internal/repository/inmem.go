package repository

import (
	"sync"

	"hunter-backend/internal/domain"
)

// SnapshotHub keeps the latest published snapshot and fans it out to
// subscribers. A slow subscriber only ever misses intermediate snapshots.
type SnapshotHub struct {
	mu     sync.RWMutex
	latest domain.Snapshot
	subs   map[int]chan domain.Snapshot
	nextID int
}

func NewSnapshotHub() *SnapshotHub {
	return &SnapshotHub{
		subs: make(map[int]chan domain.Snapshot),
	}
}

// Publish replaces the latest snapshot. It never blocks: a full subscriber
// channel drops its oldest entry to make room.
func (h *SnapshotHub) Publish(snap domain.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = snap
	for _, ch := range h.subs {
		for {
			select {
			case ch <- snap:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Latest returns the most recent snapshot, or the zero snapshot before the first publish.
func (h *SnapshotHub) Latest() domain.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe registers a listener. The returned func unregisters it and
// closes the channel; calling it twice is safe.
func (h *SnapshotHub) Subscribe(buffer int) (<-chan domain.Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domain.Snapshot, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active listeners.
func (h *SnapshotHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
