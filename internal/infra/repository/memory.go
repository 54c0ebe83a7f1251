package repository

import (
	"context"
	"sync"
	"time"

	"groupbuy-coordinator/internal/domain/session"
	"groupbuy-coordinator/internal/infra"

	"github.com/google/uuid"
)

// MemorySessionRepository is the reference repository implementation: a
// mutex-guarded map with the same conditional-update semantics as the
// postgres store. Concurrency tests run against it.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[uuid.UUID]*session.Session),
	}
}

func (r *MemorySessionRepository) Create(_ context.Context, sess *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sess.ID()]; exists {
		return infra.WrapRepoErr(infra.KindDuplicateKey, "session already exists", nil)
	}
	r.sessions[sess.ID()] = cloneSession(sess)
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, id uuid.UUID) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[id]
	if !ok {
		return nil, infra.WrapRepoErr(infra.KindNotFound, "session not found", nil)
	}
	return cloneSession(stored), nil
}

func (r *MemorySessionRepository) ConditionalUpdate(_ context.Context, sess *session.Session, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[sess.ID()]
	if !ok {
		return infra.WrapRepoErr(infra.KindNotFound, "session not found", nil)
	}
	if stored.Version() != expectedVersion {
		return infra.WrapRepoErr(infra.KindConflict, "session version conflict", nil)
	}

	sess.SetVersion(expectedVersion + 1)
	r.sessions[sess.ID()] = cloneSession(sess)
	return nil
}

func (r *MemorySessionRepository) FindExpiredOpen(_ context.Context, now time.Time, limit int) ([]*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*session.Session
	for _, stored := range r.sessions {
		if len(expired) >= limit {
			break
		}
		if stored.Status() == session.StatusOpen && !now.Before(stored.ExpiresAt()) {
			expired = append(expired, cloneSession(stored))
		}
	}
	return expired, nil
}

func (r *MemorySessionRepository) FindByParticipant(_ context.Context, userRef uuid.UUID) ([]*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*session.Session
	for _, stored := range r.sessions {
		if stored.HasParticipant(userRef) {
			matched = append(matched, cloneSession(stored))
		}
	}
	return matched, nil
}

func cloneSession(sess *session.Session) *session.Session {
	return session.ReconstructSession(
		sess.ID(), sess.ProductRef(), sess.BasePrice(), sess.Tiers(),
		sess.MinParticipants(), sess.MaxParticipants(), sess.Participants(),
		sess.Status(), sess.CurrentPrice(), sess.ExpiresAt(), sess.CreatedAt(),
		sess.Version(),
	)
}
