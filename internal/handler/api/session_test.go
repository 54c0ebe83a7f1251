//go:build unit

package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"groupbuy-coordinator/internal/domain/session"
	"groupbuy-coordinator/internal/handler/api"
	reqdto "groupbuy-coordinator/internal/handler/dto/request"
	resdto "groupbuy-coordinator/internal/handler/dto/response"
	"groupbuy-coordinator/internal/pkg/errs"
	"groupbuy-coordinator/internal/usecase/commands"
	"groupbuy-coordinator/tests/common/builder"
	"groupbuy-coordinator/tests/common/helper"
	commandsmock "groupbuy-coordinator/tests/mock/commands"
	queriesmock "groupbuy-coordinator/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type SessionHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockSessionCommands
	mockQueries  *queriesmock.MockSessionQueries
	handler      *api.SessionHandler
	userRef      uuid.UUID
}

func TestSessionHandlerSuite(t *testing.T) {
	suite.Run(t, new(SessionHandlerTestSuite))
}

func (s *SessionHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockSessionCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockSessionQueries(s.mockCtrl)
	s.handler = api.NewSessionHandler(s.mockCommands, s.mockQueries)
	s.userRef = uuid.New()

	// Mock authentication middleware for testing
	authMiddleware := func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set("user_ref", s.userRef)
		c.Next()
	}

	s.router.POST("/sessions", authMiddleware, s.handler.CreateSession)
	s.router.GET("/sessions", authMiddleware, s.handler.ListMySessions)
	s.router.GET("/sessions/:id", s.handler.GetSession)
	s.router.POST("/sessions/:id/join", authMiddleware, s.handler.JoinSession)
}

func (s *SessionHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *SessionHandlerTestSuite) snapshot() session.Snapshot {
	sess, err := builder.NewSessionBuilder().BuildDomain()
	s.Require().NoError(err)
	return sess.Snapshot()
}

// ================================================================================
// CreateSession
// ================================================================================

func (s *SessionHandlerTestSuite) TestCreateSession() {
	url := "/sessions"
	reqBody := builder.NewSessionBuilder().BuildCreateRequestDTO()

	s.Run("success: returns 201 Created", func() {
		snap := s.snapshot()
		s.mockCommands.EXPECT().
			CreateSession(gomock.Any(), gomock.Any(), s.userRef).
			Return(snap, nil).Times(1)

		rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		s.Equal(http.StatusCreated, rec.Code)

		var resp resdto.SessionResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(snap.ID, resp.ID)
		s.Equal("open", resp.Status)
	})

	s.Run("unauthenticated request is rejected", func() {
		rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("binding failures return 400", func() {
		invalid := builder.NewSessionBuilder().BuildCreateRequestDTO()
		invalid.MinParticipants = 1

		rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, url, invalid, "bearer-token")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("tier configuration errors return 422", func() {
		s.mockCommands.EXPECT().
			CreateSession(gomock.Any(), gomock.Any(), s.userRef).
			Return(session.Snapshot{}, errs.ErrInvalidTierConfig).Times(1)

		rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})
}

// ================================================================================
// JoinSession
// ================================================================================

func (s *SessionHandlerTestSuite) TestJoinSession() {
	sessionID := uuid.New()
	url := "/sessions/" + sessionID.String() + "/join"

	s.Run("success: returns 200 with join flags", func() {
		snap := s.snapshot()
		s.mockCommands.EXPECT().
			Join(gomock.Any(), sessionID, s.userRef, gomock.Nil()).
			Return(&commands.JoinResult{Snapshot: snap, PriceChanged: true}, nil).Times(1)

		rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")
		s.Equal(http.StatusOK, rec.Code)

		var resp resdto.JoinResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.True(resp.PriceChanged)
		s.False(resp.JustCompleted)
		s.Equal(snap.ID, resp.Session.ID)
	})

	s.Run("invited_by is forwarded", func() {
		inviter := uuid.New()
		s.mockCommands.EXPECT().
			Join(gomock.Any(), sessionID, s.userRef, gomock.Cond(func(got *uuid.UUID) bool {
				return got != nil && *got == inviter
			})).
			Return(&commands.JoinResult{Snapshot: s.snapshot()}, nil).Times(1)

		body := reqdto.JoinSessionRequest{InvitedBy: &inviter}
		rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, url, body, "bearer-token")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("error mapping", func() {
		tests := []struct {
			name       string
			err        error
			expectCode int
		}{
			{name: "unknown session", err: errs.ErrSessionNotFound, expectCode: http.StatusNotFound},
			{name: "closed session", err: errs.ErrSessionClosed, expectCode: http.StatusGone},
			{name: "full session", err: errs.ErrCapacityExceeded, expectCode: http.StatusConflict},
			{name: "contended session", err: errs.ErrContention, expectCode: http.StatusServiceUnavailable},
			{name: "unexpected failure", err: errors.New("boom"), expectCode: http.StatusInternalServerError},
		}

		for _, tt := range tests {
			s.Run(tt.name, func() {
				s.mockCommands.EXPECT().
					Join(gomock.Any(), sessionID, s.userRef, gomock.Any()).
					Return(nil, tt.err).Times(1)

				rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")
				s.Equal(tt.expectCode, rec.Code)
			})
		}
	})

	s.Run("contention sets a retry hint", func() {
		s.mockCommands.EXPECT().
			Join(gomock.Any(), sessionID, s.userRef, gomock.Any()).
			Return(nil, errs.ErrContention).Times(1)

		rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")
		s.Equal(http.StatusServiceUnavailable, rec.Code)
		s.Equal("1", rec.Header().Get("Retry-After"))
	})

	s.Run("malformed session id", func() {
		rec := helper.PerformRequest(s.T(), s.router, http.MethodPost, "/sessions/not-a-uuid/join", nil, "bearer-token")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// ================================================================================
// GetSession / ListMySessions
// ================================================================================

func (s *SessionHandlerTestSuite) TestGetSession() {
	s.Run("success: no authentication required", func() {
		snap := s.snapshot()
		s.mockQueries.EXPECT().
			GetSession(gomock.Any(), snap.ID).
			Return(snap, nil).Times(1)

		rec := helper.PerformRequest(s.T(), s.router, http.MethodGet, "/sessions/"+snap.ID.String(), nil, "")
		s.Equal(http.StatusOK, rec.Code)

		var resp resdto.SessionResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(snap.ID, resp.ID)
		s.WithinDuration(snap.ExpiresAt, resp.ExpiresAt, time.Second)
	})

	s.Run("unknown session returns 404", func() {
		id := uuid.New()
		s.mockQueries.EXPECT().
			GetSession(gomock.Any(), id).
			Return(session.Snapshot{}, errs.ErrSessionNotFound).Times(1)

		rec := helper.PerformRequest(s.T(), s.router, http.MethodGet, "/sessions/"+id.String(), nil, "")
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *SessionHandlerTestSuite) TestListMySessions() {
	s.Run("success: returns the caller's sessions", func() {
		snaps := []session.Snapshot{s.snapshot(), s.snapshot()}
		s.mockQueries.EXPECT().
			ListByParticipant(gomock.Any(), s.userRef).
			Return(snaps, nil).Times(1)

		rec := helper.PerformRequest(s.T(), s.router, http.MethodGet, "/sessions", nil, "bearer-token")
		s.Equal(http.StatusOK, rec.Code)

		var resp []resdto.SessionResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Len(resp, 2)
	})

	s.Run("unauthenticated request is rejected", func() {
		rec := helper.PerformRequest(s.T(), s.router, http.MethodGet, "/sessions", nil, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}
