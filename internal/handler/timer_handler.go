package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "madamis/backend/internal/errors"
	"madamis/backend/internal/middleware"
	"madamis/backend/internal/realtime"
	"madamis/backend/internal/service"
	"madamis/backend/internal/timer"
)

const maxCommandBody = 64 << 10

type TimerHandler struct {
	timerService *service.TimerService
	hub          *realtime.Hub
}

func NewTimerHandler(timerService *service.TimerService, hub *realtime.Hub) *TimerHandler {
	return &TimerHandler{timerService: timerService, hub: hub}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	state, apiErr := h.timerService.State(c.Request.Context(), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Command accepts {"action": "start"|"pause"|"reset"|"add"|"config", ...}.
// Ownership is checked before the body is parsed.
func (h *TimerHandler) Command(c *gin.Context) {
	sessionID, callerID := c.Param("id"), middleware.UserID(c)
	if apiErr := h.timerService.Authorize(c.Request.Context(), sessionID, callerID); apiErr != nil {
		writeError(c, apiErr)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCommandBody))
	if err != nil {
		writeInvalidJSON(c)
		return
	}

	req, err := timer.ParseRequest(body)
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_action", err.Error()))
		return
	}

	snapshot, apiErr := h.timerService.ApplyCommand(c.Request.Context(), sessionID, callerID, req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": snapshot})
}

// Subscribe upgrades to a websocket that receives the full document now and
// after every change. The first read only rejects unknown sessions; the
// snapshot sent on connect is read again once the connection is registered.
func (h *TimerHandler) Subscribe(c *gin.Context) {
	sessionID := c.Param("id")
	if _, apiErr := h.timerService.State(c.Request.Context(), sessionID); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	_ = h.hub.Serve(c.Writer, c.Request, sessionID, func(ctx context.Context) (realtime.Snapshot, error) {
		state, apiErr := h.timerService.State(ctx, sessionID)
		if apiErr != nil {
			return realtime.Snapshot{}, apiErr
		}
		return state.Snapshot, nil
	})
}

func (h *TimerHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Stats())
}
