// Package realtime fans client change events out to in-process subscribers.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/model"
)

// DefaultBuffer is the per-subscriber queue length used when none is given.
const DefaultBuffer = 64

type subscriber struct {
	sheetID string
	ch      chan model.ChangeEvent
}

// Hub delivers published events to every subscriber whose sheet matches.
// Delivery never blocks the publisher: a subscriber whose queue is full
// misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	buffer int
}

// NewHub creates a Hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[uint64]*subscriber), buffer: buffer}
}

// Subscribe registers a subscriber scoped to sheetID ("" for all sheets).
// The returned channel is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, sheetID string) <-chan model.ChangeEvent {
	sub := &subscriber{sheetID: sheetID, ch: make(chan model.ChangeEvent, h.buffer)}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch
}

// Publish delivers ev to matching subscribers.
func (h *Hub) Publish(ev model.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !ev.InSheet(sub.sheetID) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			zap.L().Warn("realtime: subscriber queue full, dropping event",
				zap.String("type", string(ev.Type)),
				zap.String("id", ev.ID),
			)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
