package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/lobby-server/internal/core"
	"github.com/vovakirdan/lobby-server/internal/proto"
	"github.com/vovakirdan/lobby-server/internal/store"
)

const healthPingTimeout = 2 * time.Second

// APIHandlers provides HTTP handlers for room-wide REST endpoints.
type APIHandlers struct {
	hub   *core.Hub
	store store.Store
	log   *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, st store.Store, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:   hub,
		store: st,
		log:   logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports process and store health.
type HealthResponse struct {
	Status   string `json:"status"`
	DBStatus string `json:"dbStatus"`
}

// Health reports liveness and whether the store answers a ping.
// GET /health, GET /api/health
func (h *APIHandlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	dbStatus := "connected"
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("store ping failed")
		dbStatus = "disconnected"
	}

	c.JSON(http.StatusOK, HealthResponse{Status: "ok", DBStatus: dbStatus})
}

// ListMessages returns the full history, oldest first.
// GET /api/messages
func (h *APIHandlers) ListMessages(c *gin.Context) {
	messages, err := h.store.ListMessages(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(messages, storedMessageToProto))
}

// Online returns users bound to a live connection.
// GET /api/online
func (h *APIHandlers) Online(c *gin.Context) {
	c.JSON(http.StatusOK, lo.Map(h.hub.OnlineUsers(), func(u core.User, _ int) proto.User {
		return userToProto(u)
	}))
}
