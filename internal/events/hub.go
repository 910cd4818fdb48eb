package events

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber queue depth.
const DefaultBuffer = 32

// Hub broadcasts events to subscribers. A subscriber whose queue is full
// misses the event rather than blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]string
	buffer  int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]string), buffer: DefaultBuffer}
}

// Subscribe registers a subscriber. A non-empty accountID limits delivery
// to that account's events.
func (h *Hub) Subscribe(accountID string) chan Event {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.clients[ch] = accountID
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch. It is safe to call more than once.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; !ok {
		return
	}
	delete(h.clients, ch)
	close(ch)
}

// Publish delivers e to every matching subscriber without blocking.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, acct := range h.clients {
		if acct != "" && e.AccountID != "" && acct != e.AccountID {
			continue
		}
		select {
		case ch <- e:
		default:
			zap.L().Debug("events: dropped event for slow subscriber", zap.String("type", e.Type))
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
