package queries

import (
	"context"
	"log/slog"

	"groupbuy-coordinator/internal/domain/session"
	"groupbuy-coordinator/internal/fanout"
	"groupbuy-coordinator/internal/infra"
	"groupbuy-coordinator/internal/pkg/clock"
	"groupbuy-coordinator/internal/pkg/errs"

	"github.com/google/uuid"
)

type SessionReader interface {
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
	ConditionalUpdate(ctx context.Context, sess *session.Session, expectedVersion int64) error
	FindByParticipant(ctx context.Context, userRef uuid.UUID) ([]*session.Session, error)
}

type EventPublisher interface {
	Publish(event fanout.Event)
}

type SessionQueries interface {
	GetSession(ctx context.Context, id uuid.UUID) (session.Snapshot, error)
	ListByParticipant(ctx context.Context, userRef uuid.UUID) ([]session.Snapshot, error)
}

type sessionQueriesImpl struct {
	reader SessionReader
	events EventPublisher
	clock  clock.Clock
	logger *slog.Logger
}

func NewSessionQueries(reader SessionReader, events EventPublisher, clk clock.Clock, logger *slog.Logger) SessionQueries {
	return &sessionQueriesImpl{
		reader: reader,
		events: events,
		clock:  clk,
		logger: logger,
	}
}

// GetSession returns the current snapshot. A read against a past-deadline
// session first enacts the expiry transition so viewers never see an Open
// session that can no longer be joined.
func (q *sessionQueriesImpl) GetSession(ctx context.Context, id uuid.UUID) (session.Snapshot, error) {
	sess, err := q.reader.Get(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return session.Snapshot{}, errs.ErrSessionNotFound
		}
		return session.Snapshot{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	// Losing the conditional write to a racing join rather than an expiry
	// leaves the re-read state Open and still past the deadline, so the
	// expiry check runs again against the fresh state.
	for attempt := 0; attempt < 2; attempt++ {
		now := q.clock.Now()
		if !sess.ShouldExpire(now) {
			break
		}
		expectedVersion := sess.Version()
		if expErr := sess.Expire(now); expErr != nil {
			break
		}
		updErr := q.reader.ConditionalUpdate(ctx, sess, expectedVersion)
		if updErr == nil {
			q.events.Publish(fanout.Event{
				SessionID:  sess.ID(),
				Kind:       fanout.KindExpired,
				Snapshot:   sess.Snapshot(),
				OccurredAt: now,
			})
			break
		}
		if !infra.IsKind(updErr, infra.KindConflict) {
			q.logger.Warn("lazy expiry on read failed", "session_id", id, "error", updErr)
			break
		}
		// Another path moved the session; serve the fresh state.
		fresh, readErr := q.reader.Get(ctx, id)
		if readErr != nil {
			break
		}
		sess = fresh
	}

	return sess.Snapshot(), nil
}

func (q *sessionQueriesImpl) ListByParticipant(ctx context.Context, userRef uuid.UUID) ([]session.Snapshot, error) {
	sessions, err := q.reader.FindByParticipant(ctx, userRef)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	snapshots := make([]session.Snapshot, len(sessions))
	for i, sess := range sessions {
		snapshots[i] = sess.Snapshot()
	}
	return snapshots, nil
}
