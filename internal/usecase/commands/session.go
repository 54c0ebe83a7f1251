package commands

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"groupbuy-coordinator/internal/domain/session"
	"groupbuy-coordinator/internal/fanout"
	"groupbuy-coordinator/internal/infra"
	"groupbuy-coordinator/internal/pkg/clock"
	"groupbuy-coordinator/internal/pkg/config"
	"groupbuy-coordinator/internal/pkg/errs"

	"github.com/google/uuid"
)

const notifyTimeout = 10 * time.Second

type CreateSessionParams struct {
	ProductRef      uuid.UUID
	BasePriceCents  int64
	Tiers           []TierParam
	MinParticipants int
	MaxParticipants int
	ExpiresAt       time.Time
}

type TierParam struct {
	MinParticipants int
	DiscountBps     int32
}

type JoinResult struct {
	Snapshot      session.Snapshot
	PriceChanged  bool
	JustCompleted bool
	AlreadyJoined bool
}

type SessionCommands interface {
	CreateSession(ctx context.Context, params CreateSessionParams, creator uuid.UUID) (session.Snapshot, error)
	Join(ctx context.Context, sessionID, userRef uuid.UUID, invitedBy *uuid.UUID) (*JoinResult, error)
	// SweepExpired transitions every due Open session to Expired and returns
	// how many transitions this call won.
	SweepExpired(ctx context.Context, batch int) (int, error)
}

type sessionCommandsImpl struct {
	repo     SessionRepository
	events   EventPublisher
	notifier NotificationGateway
	clock    clock.Clock
	cfg      config.JoinConfig
	logger   *slog.Logger
}

func NewSessionCommands(
	repo SessionRepository,
	events EventPublisher,
	notifier NotificationGateway,
	clk clock.Clock,
	cfg config.Config,
	logger *slog.Logger,
) SessionCommands {
	return &sessionCommandsImpl{
		repo:     repo,
		events:   events,
		notifier: notifier,
		clock:    clk,
		cfg:      cfg.Join,
		logger:   logger,
	}
}

func (c *sessionCommandsImpl) CreateSession(
	ctx context.Context,
	params CreateSessionParams,
	creator uuid.UUID,
) (session.Snapshot, error) {
	basePrice, err := session.NewMoney(params.BasePriceCents)
	if err != nil {
		return session.Snapshot{}, errs.Mark(err, errs.ErrDomainValidation)
	}

	tiers := make([]session.Tier, 0, len(params.Tiers))
	for _, t := range params.Tiers {
		discount, fracErr := session.NewFraction(t.DiscountBps)
		if fracErr != nil {
			return session.Snapshot{}, errs.Mark(fracErr, errs.ErrInvalidTierConfig)
		}
		tiers = append(tiers, session.Tier{MinParticipants: t.MinParticipants, Discount: discount})
	}
	table, err := session.NewTierTable(tiers)
	if err != nil {
		return session.Snapshot{}, errs.Mark(err, errs.ErrInvalidTierConfig)
	}

	sess, err := session.NewSession(
		params.ProductRef, basePrice, table,
		params.MinParticipants, params.MaxParticipants,
		creator, params.ExpiresAt, c.clock.Now(),
	)
	if err != nil {
		return session.Snapshot{}, errs.Mark(err, errs.ErrDomainValidation)
	}

	if err := c.repo.Create(ctx, sess); err != nil {
		return session.Snapshot{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	return sess.Snapshot(), nil
}

// Join is the per-session critical section: read, validate, mutate a
// candidate, and commit through the repository's conditional write. Every
// lost race re-reads and re-validates from scratch; completion is detected
// by comparing pre/post status exactly once, on the commit that won.
func (c *sessionCommandsImpl) Join(
	ctx context.Context,
	sessionID, userRef uuid.UUID,
	invitedBy *uuid.UUID,
) (*JoinResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.waitBeforeRetry(ctx, attempt); err != nil {
				return nil, errs.Mark(err, errs.ErrContention)
			}
		}

		sess, err := c.repo.Get(ctx, sessionID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, errs.ErrSessionNotFound
			}
			return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		now := c.clock.Now()

		// Lazy expiry: a join against a past-deadline session enacts the
		// transition itself rather than waiting for the sweeper.
		if sess.ShouldExpire(now) {
			if expireErr := c.expire(ctx, sess, now); expireErr != nil {
				if infra.IsKind(expireErr, infra.KindConflict) {
					continue // someone else moved the session, re-read
				}
				return nil, errs.Mark(expireErr, errs.ErrDatabaseOperationFailed)
			}
			return nil, errs.ErrSessionClosed
		}

		prevStatus := sess.Status()
		expectedVersion := sess.Version()

		outcome, err := sess.Join(userRef, invitedBy, now)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrSessionNotOpen):
				return nil, errs.ErrSessionClosed
			case errors.Is(err, session.ErrCapacityReached):
				return nil, errs.ErrCapacityExceeded
			default:
				return nil, errs.Mark(err, errs.ErrDomainValidation)
			}
		}
		if outcome.AlreadyJoined {
			// Retried client request; same snapshot, no new mutation.
			return &JoinResult{Snapshot: sess.Snapshot(), AlreadyJoined: true}, nil
		}

		if err := c.repo.ConditionalUpdate(ctx, sess, expectedVersion); err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				continue
			}
			return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		snap := sess.Snapshot()
		justCompleted := prevStatus == session.StatusOpen && sess.Status() == session.StatusCompleted

		c.events.Publish(fanout.Event{
			SessionID:  sessionID,
			Kind:       fanout.KindStateChanged,
			Snapshot:   snap,
			OccurredAt: now,
		})
		if justCompleted {
			c.events.Publish(fanout.Event{
				SessionID:  sessionID,
				Kind:       fanout.KindCompleted,
				Snapshot:   snap,
				OccurredAt: now,
			})
			c.notifyCompleted(sess)
		}

		return &JoinResult{
			Snapshot:      snap,
			PriceChanged:  outcome.PriceChanged,
			JustCompleted: justCompleted,
		}, nil
	}

	return nil, errs.ErrContention
}

func (c *sessionCommandsImpl) SweepExpired(ctx context.Context, batch int) (int, error) {
	now := c.clock.Now()
	due, err := c.repo.FindExpiredOpen(ctx, now, batch)
	if err != nil {
		return 0, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	swept := 0
	for _, sess := range due {
		if err := c.expire(ctx, sess, now); err != nil {
			// A conflict means a join or another sweep already handled this
			// session; that is expected steady-state behavior, not an error.
			if !infra.IsKind(err, infra.KindConflict) {
				c.logger.Warn("failed to expire session", "session_id", sess.ID(), "error", err)
			}
			continue
		}
		swept++
	}
	return swept, nil
}

func (c *sessionCommandsImpl) expire(ctx context.Context, sess *session.Session, now time.Time) error {
	expectedVersion := sess.Version()
	if err := sess.Expire(now); err != nil {
		return errs.Wrap(err, "expiry transition rejected")
	}
	if err := c.repo.ConditionalUpdate(ctx, sess, expectedVersion); err != nil {
		return err
	}

	c.events.Publish(fanout.Event{
		SessionID:  sess.ID(),
		Kind:       fanout.KindExpired,
		Snapshot:   sess.Snapshot(),
		OccurredAt: now,
	})
	return nil
}

// notifyCompleted fires the out-of-band completion notification without
// holding up the join response; delivery failure never fails the join.
func (c *sessionCommandsImpl) notifyCompleted(sess *session.Session) {
	sessionID := sess.ID()
	refs := sess.ParticipantRefs()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := c.notifier.NotifyCompleted(ctx, sessionID, refs, "Your group buy reached its target"); err != nil {
			c.logger.Warn("completion notification failed", "session_id", sessionID, "error", err)
		}
	}()
}

func (c *sessionCommandsImpl) waitBeforeRetry(ctx context.Context, attempt int) error {
	backoff := c.cfg.RetryBase * time.Duration(1<<(attempt-1))
	jitter := time.Duration(rand.Int64N(int64(c.cfg.RetryBase) + 1))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff + jitter):
		return nil
	}
}
