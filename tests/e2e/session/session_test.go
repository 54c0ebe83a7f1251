//go:build e2e

package session_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"groupbuy-coordinator/internal/domain/session"
	resdto "groupbuy-coordinator/internal/handler/dto/response"
	"groupbuy-coordinator/internal/infra"
	"groupbuy-coordinator/internal/infra/repository"
	"groupbuy-coordinator/internal/pkg/config"
	"groupbuy-coordinator/internal/pkg/jwt"
	"groupbuy-coordinator/tests/common/builder"
	"groupbuy-coordinator/tests/common/helper"
	"groupbuy-coordinator/tests/e2e"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const sessionsURL = "/api/sessions"

type sessionSuite struct {
	suite.Suite
	pool   *pgxpool.Pool
	router *gin.Engine
	cfg    config.Config
	tokens *jwt.Service
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(sessionSuite))
}

func (s *sessionSuite) SetupSuite() {
	s.pool, s.router, s.cfg = e2e.SetupE2EEnvironment(s.T())
	s.tokens = jwt.NewService(s.cfg.JWT.Secret)
}

func (s *sessionSuite) token(userRef uuid.UUID) string {
	token, err := s.tokens.GenerateToken(userRef, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *sessionSuite) createSession(mutate func(*builder.SessionBuilder)) (resdto.SessionResponse, uuid.UUID) {
	creator := uuid.New()

	b := builder.NewSessionBuilder()
	b.Now = time.Now()
	b.ExpiresAt = time.Now().Add(time.Hour)
	if mutate != nil {
		b.With(mutate)
	}

	rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, sessionsURL,
		b.BuildCreateRequestDTO(), s.token(creator))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	return helper.DecodeBody[resdto.SessionResponse](s.T(), rec), creator
}

func (s *sessionSuite) join(sessionID, userRef uuid.UUID) (*resdto.JoinResponse, int) {
	rec := helper.PerformRequest(s.T(), s.router, http.MethodPost,
		sessionsURL+"/"+sessionID.String()+"/join", nil, s.token(userRef))
	if rec.Code != http.StatusOK {
		return nil, rec.Code
	}
	resp := helper.DecodeBody[resdto.JoinResponse](s.T(), rec)
	return &resp, rec.Code
}

func (s *sessionSuite) TestSessionLifecycle() {
	s.Run("create and read back", func() {
		created, creator := s.createSession(nil)

		s.Equal("open", created.Status)
		s.Len(created.Participants, 1)
		s.Equal(creator, created.Participants[0].UserRef)

		rec := helper.PerformRequest(s.T(), s.router, http.MethodGet,
			sessionsURL+"/"+created.ID.String(), nil, "")
		s.Require().Equal(http.StatusOK, rec.Code)

		read := helper.DecodeBody[resdto.SessionResponse](s.T(), rec)
		if diff := cmp.Diff(created, read); diff != "" {
			s.T().Errorf("Session response mismatch (-want +got):\n%s", diff)
		}
		s.Equal(created.BasePriceCents, read.CurrentPriceCents)
	})

	s.Run("joins walk the tier table to completion", func() {
		created, _ := s.createSession(func(b *builder.SessionBuilder) { b.MinParticipants = 3 })

		second, code := s.join(created.ID, uuid.New())
		s.Require().Equal(http.StatusOK, code)
		s.False(second.PriceChanged)
		s.False(second.JustCompleted)

		third, code := s.join(created.ID, uuid.New())
		s.Require().Equal(http.StatusOK, code)
		s.True(third.PriceChanged, "third participant crosses the first tier")
		s.True(third.JustCompleted)
		s.Equal("completed", third.Session.Status)
		s.Equal(int64(9000), third.Session.CurrentPriceCents)

		// completion is a milestone, not a gate: the next join still lands
		fourth, code := s.join(created.ID, uuid.New())
		s.Require().Equal(http.StatusOK, code)
		s.False(fourth.JustCompleted)
		s.Equal("completed", fourth.Session.Status)
		s.Len(fourth.Session.Participants, 4)
	})

	s.Run("repeat join is idempotent", func() {
		created, creator := s.createSession(nil)

		resp, code := s.join(created.ID, creator)
		s.Require().Equal(http.StatusOK, code)
		s.True(resp.AlreadyJoined)
		s.Len(resp.Session.Participants, 1)
	})

	s.Run("unknown session returns 404", func() {
		_, code := s.join(uuid.New(), uuid.New())
		s.Equal(http.StatusNotFound, code)
	})

	s.Run("listing shows only the caller's sessions", func() {
		created, creator := s.createSession(nil)
		s.createSession(nil) // someone else's session

		rec := helper.PerformRequest(s.T(), s.router, http.MethodGet, sessionsURL, nil, s.token(creator))
		s.Require().Equal(http.StatusOK, rec.Code)

		listed := helper.DecodeBody[[]resdto.SessionResponse](s.T(), rec)
		s.Require().Len(listed, 1)
		s.Equal(created.ID, listed[0].ID)
	})

	s.Run("unauthenticated writes are rejected", func() {
		b := builder.NewSessionBuilder()
		b.ExpiresAt = time.Now().Add(time.Hour)

		rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, sessionsURL,
			b.BuildCreateRequestDTO(), "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *sessionSuite) TestConcurrentJoins() {
	const (
		minParticipants = 10
		maxParticipants = 15
		joiners         = 15
	)

	created, _ := s.createSession(func(b *builder.SessionBuilder) {
		b.MinParticipants = minParticipants
		b.MaxParticipants = maxParticipants
		b.Tiers = nil
	})

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		justCompleted int
		joined        int
		capacity      int
	)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, code := s.join(created.ID, uuid.New())
			mu.Lock()
			defer mu.Unlock()
			switch code {
			case http.StatusOK:
				joined++
				if resp.JustCompleted {
					justCompleted++
				}
			case http.StatusConflict:
				capacity++
			default:
				s.Failf("unexpected join status", "status %d", code)
			}
		}()
	}
	wg.Wait()

	// joins keep filling the session past the completion threshold
	s.Equal(1, justCompleted, "exactly one join observes completion")
	s.Equal(maxParticipants-1, joined)
	s.Equal(1, capacity)

	rec := helper.PerformRequest(s.T(), s.router, http.MethodGet,
		sessionsURL+"/"+created.ID.String(), nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	final := helper.DecodeBody[resdto.SessionResponse](s.T(), rec)
	s.Equal("completed", final.Status)
	s.Len(final.Participants, maxParticipants)
}

func (s *sessionSuite) TestRepositoryConditionalUpdate() {
	ctx := context.Background()
	repo := repository.NewSessionRepository(s.pool)

	b := builder.NewSessionBuilder()
	b.Now = time.Now()
	b.ExpiresAt = time.Now().Add(time.Hour)
	sess, err := b.BuildDomain()
	require.NoError(s.T(), err)
	require.NoError(s.T(), repo.Create(ctx, sess))

	readA, err := repo.Get(ctx, sess.ID())
	require.NoError(s.T(), err)
	readB, err := repo.Get(ctx, sess.ID())
	require.NoError(s.T(), err)

	_, err = readA.Join(uuid.New(), nil, time.Now())
	require.NoError(s.T(), err)
	require.NoError(s.T(), repo.ConditionalUpdate(ctx, readA, 1))
	require.Equal(s.T(), int64(2), readA.Version())

	_, err = readB.Join(uuid.New(), nil, time.Now())
	require.NoError(s.T(), err)
	err = repo.ConditionalUpdate(ctx, readB, 1)
	require.Error(s.T(), err)
	require.True(s.T(), infra.IsKind(err, infra.KindConflict))

	stored, err := repo.Get(ctx, sess.ID())
	require.NoError(s.T(), err)
	require.Equal(s.T(), session.StatusOpen, stored.Status())
	require.Equal(s.T(), 2, stored.ParticipantCount())
}

func (s *sessionSuite) TestFindExpiredOpen() {
	ctx := context.Background()
	repo := repository.NewSessionRepository(s.pool)

	b := builder.NewSessionBuilder()
	b.Now = time.Now()
	b.ExpiresAt = time.Now().Add(time.Hour)
	sess, err := b.BuildDomain()
	require.NoError(s.T(), err)
	require.NoError(s.T(), repo.Create(ctx, sess))

	due, err := repo.FindExpiredOpen(ctx, time.Now(), 10)
	require.NoError(s.T(), err)
	for _, d := range due {
		require.NotEqual(s.T(), sess.ID(), d.ID(), "deadline not reached yet")
	}

	due, err = repo.FindExpiredOpen(ctx, time.Now().Add(2*time.Hour), 10)
	require.NoError(s.T(), err)

	found := false
	for _, d := range due {
		if d.ID() == sess.ID() {
			found = true
		}
	}
	require.True(s.T(), found)
}
