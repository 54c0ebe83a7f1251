package fanout

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Subscriber is one live viewer of a session. Events arrive on C in
// non-decreasing version order; a slow subscriber loses intermediate events
// rather than blocking the publisher.
type Subscriber struct {
	C chan Event

	sessionID   uuid.UUID
	lastVersion int64
}

type registry struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
}

// Hub owns one subscriber registry per session. Registries are created on
// first subscribe and pruned when the last subscriber leaves; there is no
// process-wide subscriber list.
type Hub struct {
	mu         sync.Mutex
	registries map[uuid.UUID]*registry
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		registries: make(map[uuid.UUID]*registry),
		logger:     logger,
	}
}

func (h *Hub) Subscribe(sessionID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		C:         make(chan Event, subscriberBuffer),
		sessionID: sessionID,
	}

	h.mu.Lock()
	reg, ok := h.registries[sessionID]
	if !ok {
		reg = &registry{subscribers: make(map[*Subscriber]struct{})}
		h.registries[sessionID] = reg
	}
	h.mu.Unlock()

	reg.mu.Lock()
	reg.subscribers[sub] = struct{}{}
	reg.mu.Unlock()

	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	reg, ok := h.registries[sub.sessionID]
	h.mu.Unlock()
	if !ok {
		return
	}

	reg.mu.Lock()
	_, present := reg.subscribers[sub]
	delete(reg.subscribers, sub)
	empty := len(reg.subscribers) == 0
	reg.mu.Unlock()

	if present {
		close(sub.C)
	}

	if empty {
		h.mu.Lock()
		if reg, ok := h.registries[sub.sessionID]; ok {
			reg.mu.Lock()
			if len(reg.subscribers) == 0 {
				delete(h.registries, sub.sessionID)
			}
			reg.mu.Unlock()
		}
		h.mu.Unlock()
	}
}

// Publish delivers the event to every current subscriber of the session.
// Delivery is at-most-once: a full subscriber channel drops the event, and
// an event older than what a subscriber has already seen is skipped so no
// viewer ever observes a version regression.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	reg, ok := h.registries[event.SessionID]
	h.mu.Unlock()
	if !ok {
		return
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	for sub := range reg.subscribers {
		if event.Snapshot.Version < sub.lastVersion {
			continue
		}
		select {
		case sub.C <- event:
			sub.lastVersion = event.Snapshot.Version
		default:
			h.logger.Debug("dropping fanout event for slow subscriber",
				"session_id", event.SessionID, "kind", string(event.Kind))
		}
	}
}

// SubscriberCount is used by tests and the health endpoint.
func (h *Hub) SubscriberCount(sessionID uuid.UUID) int {
	h.mu.Lock()
	reg, ok := h.registries[sessionID]
	h.mu.Unlock()
	if !ok {
		return 0
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.subscribers)
}
