//go:build unit

package fanout_test

import (
	"log/slog"
	"testing"
	"time"

	"groupbuy-coordinator/internal/domain/session"
	"groupbuy-coordinator/internal/fanout"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *fanout.Hub {
	return fanout.NewHub(slog.Default())
}

func event(sessionID uuid.UUID, kind fanout.EventKind, version int64) fanout.Event {
	return fanout.Event{
		SessionID:  sessionID,
		Kind:       kind,
		Snapshot:   session.Snapshot{ID: sessionID, Version: version},
		OccurredAt: time.Now(),
	}
}

func TestHubPublish(t *testing.T) {
	t.Run("delivers to every subscriber of the session", func(t *testing.T) {
		hub := newTestHub()
		sessionID := uuid.New()

		subA := hub.Subscribe(sessionID)
		subB := hub.Subscribe(sessionID)
		defer hub.Unsubscribe(subA)
		defer hub.Unsubscribe(subB)

		hub.Publish(event(sessionID, fanout.KindStateChanged, 2))

		for _, sub := range []*fanout.Subscriber{subA, subB} {
			select {
			case got := <-sub.C:
				assert.Equal(t, fanout.KindStateChanged, got.Kind)
				assert.Equal(t, int64(2), got.Snapshot.Version)
			default:
				t.Fatal("expected a buffered event")
			}
		}
	})

	t.Run("does not leak across sessions", func(t *testing.T) {
		hub := newTestHub()
		sub := hub.Subscribe(uuid.New())
		defer hub.Unsubscribe(sub)

		hub.Publish(event(uuid.New(), fanout.KindStateChanged, 2))

		select {
		case <-sub.C:
			t.Fatal("event delivered to a different session's subscriber")
		default:
		}
	})

	t.Run("skips versions older than already delivered", func(t *testing.T) {
		hub := newTestHub()
		sessionID := uuid.New()
		sub := hub.Subscribe(sessionID)
		defer hub.Unsubscribe(sub)

		hub.Publish(event(sessionID, fanout.KindStateChanged, 5))
		hub.Publish(event(sessionID, fanout.KindStateChanged, 3))

		got := <-sub.C
		assert.Equal(t, int64(5), got.Snapshot.Version)

		select {
		case stale := <-sub.C:
			t.Fatalf("stale version %d delivered", stale.Snapshot.Version)
		default:
		}
	})

	t.Run("delivers equal versions for paired state and completion events", func(t *testing.T) {
		hub := newTestHub()
		sessionID := uuid.New()
		sub := hub.Subscribe(sessionID)
		defer hub.Unsubscribe(sub)

		hub.Publish(event(sessionID, fanout.KindStateChanged, 4))
		hub.Publish(event(sessionID, fanout.KindCompleted, 4))

		first := <-sub.C
		second := <-sub.C
		assert.Equal(t, fanout.KindStateChanged, first.Kind)
		assert.Equal(t, fanout.KindCompleted, second.Kind)
	})

	t.Run("drops events for a slow subscriber instead of blocking", func(t *testing.T) {
		hub := newTestHub()
		sessionID := uuid.New()
		sub := hub.Subscribe(sessionID)
		defer hub.Unsubscribe(sub)

		done := make(chan struct{})
		go func() {
			defer close(done)
			// well past the channel buffer
			for v := int64(1); v <= 100; v++ {
				hub.Publish(event(sessionID, fanout.KindStateChanged, v))
			}
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("publisher blocked on a slow subscriber")
		}

		// whatever was delivered is still in version order
		last := int64(0)
		for {
			select {
			case got := <-sub.C:
				require.Greater(t, got.Snapshot.Version, last)
				last = got.Snapshot.Version
			default:
				return
			}
		}
	})
}

func TestHubSubscriptions(t *testing.T) {
	t.Run("unsubscribe closes the channel and prunes the registry", func(t *testing.T) {
		hub := newTestHub()
		sessionID := uuid.New()

		sub := hub.Subscribe(sessionID)
		require.Equal(t, 1, hub.SubscriberCount(sessionID))

		hub.Unsubscribe(sub)
		assert.Equal(t, 0, hub.SubscriberCount(sessionID))

		_, open := <-sub.C
		assert.False(t, open)
	})

	t.Run("unsubscribe is safe to call twice", func(t *testing.T) {
		hub := newTestHub()
		sub := hub.Subscribe(uuid.New())

		hub.Unsubscribe(sub)
		hub.Unsubscribe(sub)
	})

	t.Run("publish to a session without subscribers is a no-op", func(t *testing.T) {
		hub := newTestHub()
		hub.Publish(event(uuid.New(), fanout.KindExpired, 1))
	})
}
