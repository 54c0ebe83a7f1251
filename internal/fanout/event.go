package fanout

import (
	"time"

	"groupbuy-coordinator/internal/domain/session"

	"github.com/google/uuid"
)

type EventKind string

const (
	// KindStateChanged records any committed mutation of a session.
	KindStateChanged EventKind = "session.state_changed"
	// KindCompleted records the one transition to Completed.
	KindCompleted EventKind = "session.completed"
	// KindExpired records the one transition to Expired.
	KindExpired EventKind = "session.expired"
)

// Event is a committed state change delivered to live subscribers. The
// snapshot carries the session's version so delivery order can be enforced
// per subscriber.
type Event struct {
	SessionID  uuid.UUID        `json:"session_id"`
	Kind       EventKind        `json:"kind"`
	Snapshot   session.Snapshot `json:"snapshot"`
	OccurredAt time.Time        `json:"occurred_at"`
}
