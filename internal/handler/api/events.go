package api

import (
	"errors"
	"io"
	"net/http"

	"groupbuy-coordinator/internal/fanout"
	resdto "groupbuy-coordinator/internal/handler/dto/response"
	"groupbuy-coordinator/internal/handler/httperr"
	"groupbuy-coordinator/internal/pkg/errs"
	"groupbuy-coordinator/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventsHandler struct {
	hub            *fanout.Hub
	sessionQueries queries.SessionQueries
}

func NewEventsHandler(hub *fanout.Hub, sessionQueries queries.SessionQueries) *EventsHandler {
	return &EventsHandler{
		hub:            hub,
		sessionQueries: sessionQueries,
	}
}

// @Summary Stream session events
// @Description Server-sent event stream: a snapshot first, then state changes as they happen
// @Tags sessions
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /sessions/{id}/events [get]
func (h *EventsHandler) StreamEvents(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid session id", nil)
		return
	}

	// Subscribing before the snapshot read means an update racing this
	// request lands either in the snapshot or on the channel. The stream
	// loop drops channel events older than the delivered snapshot so the
	// client never observes a version regression.
	sub := h.hub.Subscribe(sessionID)
	defer h.hub.Unsubscribe(sub)

	// Resolve the snapshot before upgrading to a stream so a missing session
	// still gets a plain JSON 404.
	snap, err := h.sessionQueries.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, errs.ErrSessionNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "Session not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("snapshot", resdto.FromSnapshot(snap))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			if event.Snapshot.Version < snap.Version {
				// already covered by the snapshot
				return true
			}
			c.SSEvent(string(event.Kind), resdto.FromSnapshot(event.Snapshot))
			return true
		}
	})
}
