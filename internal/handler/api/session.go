package api

import (
	"errors"
	"net/http"

	reqdto "groupbuy-coordinator/internal/handler/dto/request"
	resdto "groupbuy-coordinator/internal/handler/dto/response"
	"groupbuy-coordinator/internal/handler/httperr"
	"groupbuy-coordinator/internal/handler/middleware"
	"groupbuy-coordinator/internal/pkg/errs"
	"groupbuy-coordinator/internal/usecase/commands"
	"groupbuy-coordinator/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionHandler struct {
	sessionCommands commands.SessionCommands
	sessionQueries  queries.SessionQueries
}

func NewSessionHandler(sessionCommands commands.SessionCommands, sessionQueries queries.SessionQueries) *SessionHandler {
	return &SessionHandler{
		sessionCommands: sessionCommands,
		sessionQueries:  sessionQueries,
	}
}

// @Summary Create group-buy session
// @Description Create a new group-buy session with the caller as first participant
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateSessionRequest true "Session configuration"
// @Success 201 {object} resdto.SessionResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userRef, ok := middleware.GetUserRef(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}

	var req reqdto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}

	snap, err := h.sessionCommands.CreateSession(c.Request.Context(), req.ToParams(), userRef)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidTierConfig):
			httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, "Invalid tier configuration", nil)
		case errors.Is(err, errs.ErrDomainValidation):
			httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, "Invalid session configuration", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.FromSnapshot(snap))
}

// @Summary Join session
// @Description Join a group-buy session; idempotent per user
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param request body reqdto.JoinSessionRequest false "Join options"
// @Success 200 {object} resdto.JoinResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 410 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /sessions/{id}/join [post]
func (h *SessionHandler) JoinSession(c *gin.Context) {
	userRef, ok := middleware.GetUserRef(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid session id", nil)
		return
	}

	var req reqdto.JoinSessionRequest
	if c.Request.ContentLength > 0 {
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
			return
		}
	}

	result, err := h.sessionCommands.Join(c.Request.Context(), sessionID, userRef, req.InvitedBy)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrSessionNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Session not found", nil)
		case errors.Is(err, errs.ErrSessionClosed):
			httperr.AbortWithError(c, http.StatusGone, err, "Session is no longer open", nil)
		case errors.Is(err, errs.ErrCapacityExceeded):
			httperr.AbortWithError(c, http.StatusConflict, err, "Session is at capacity", nil)
		case errors.Is(err, errs.ErrContention):
			c.Header("Retry-After", "1")
			httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Session is busy, retry shortly", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, &resdto.JoinResponse{
		Session:       resdto.FromSnapshot(result.Snapshot),
		PriceChanged:  result.PriceChanged,
		JustCompleted: result.JustCompleted,
		AlreadyJoined: result.AlreadyJoined,
	})
}

// @Summary Get session
// @Description Get the current session snapshot
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} resdto.SessionResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid session id", nil)
		return
	}

	snap, err := h.sessionQueries.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, errs.ErrSessionNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "Session not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromSnapshot(snap))
}

// @Summary List my sessions
// @Description List the sessions the caller participates in
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.SessionResponse
// @Failure 401 {object} httperr.Response
// @Router /sessions [get]
func (h *SessionHandler) ListMySessions(c *gin.Context) {
	userRef, ok := middleware.GetUserRef(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}

	snaps, err := h.sessionQueries.ListByParticipant(c.Request.Context(), userRef)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to list sessions", nil)
		return
	}

	responses := make([]*resdto.SessionResponse, len(snaps))
	for i, snap := range snaps {
		responses[i] = resdto.FromSnapshot(snap)
	}

	c.JSON(http.StatusOK, responses)
}
