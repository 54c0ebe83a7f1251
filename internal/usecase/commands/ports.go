package commands

import (
	"context"
	"time"

	"groupbuy-coordinator/internal/domain/session"
	"groupbuy-coordinator/internal/fanout"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, sess *session.Session) error
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
	// ConditionalUpdate commits iff the stored version equals expectedVersion;
	// a lost race surfaces as the CONFLICT repository kind.
	ConditionalUpdate(ctx context.Context, sess *session.Session, expectedVersion int64) error
	FindExpiredOpen(ctx context.Context, now time.Time, limit int) ([]*session.Session, error)
}

type EventPublisher interface {
	Publish(event fanout.Event)
}

type NotificationGateway interface {
	NotifyCompleted(ctx context.Context, sessionID uuid.UUID, userRefs []uuid.UUID, message string) error
}
