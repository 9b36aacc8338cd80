// Package api exposes the HTTP surface: health, participant tokens,
// audio ingest, synthesis, and the websocket upgrade.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arkadion/campfire/adapters/registry"
	"github.com/arkadion/campfire/internal/auth"
	"github.com/arkadion/campfire/internal/config"
	"github.com/arkadion/campfire/internal/gateway"
	"github.com/arkadion/campfire/internal/hub"
)

// Handler bundles the dependencies of the HTTP routes.
type Handler struct {
	gateway  *gateway.Gateway
	hub      *hub.Hub
	registry *registry.Registry
	auth     *auth.Manager
	cfg      config.Config
	logger   *zap.Logger
}

// NewHandler creates the route handler.
func NewHandler(
	gw *gateway.Gateway,
	h *hub.Hub,
	reg *registry.Registry,
	authManager *auth.Manager,
	cfg config.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		gateway:  gw,
		hub:      h,
		registry: reg,
		auth:     authManager,
		cfg:      cfg,
		logger:   logger,
	}
}

// InitRoutes registers all routes on the echo instance.
func InitRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.health)
	e.GET("/ws", h.websocket)

	v1 := e.Group("/api/v1")
	v1.POST("/token", h.token)
	v1.POST("/campaigns/:id/transcribe", h.transcribe)
	v1.POST("/synthesize", h.synthesize)
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  "campfire-server",
		"sessions": h.gateway.SessionCount(),
		"drops":    h.gateway.Stats(),
	})
}

// token mints a participant token. This is a bootstrap helper at the
// auth boundary; real deployments front it with their own policy.
func (h *Handler) token(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.ParticipantID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "participantId is required",
		})
	}

	token, expiresAt, err := h.auth.GenerateParticipantToken(req.ParticipantID)
	if err != nil {
		h.logger.Error("failed to generate participant token",
			zap.String("participantID", req.ParticipantID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate token",
		})
	}

	return c.JSON(http.StatusOK, TokenResponse{
		Token:         token,
		ExpiresAt:     expiresAt,
		ParticipantID: req.ParticipantID,
	})
}

// websocket upgrades the connection. A token is optional: when present
// it must be valid and pins the session identity; when absent the
// session gets an anonymous id.
func (h *Handler) websocket(c echo.Context) error {
	sessionID := ""
	if token := c.QueryParam("token"); token != "" {
		claims, err := h.auth.ValidateToken(token)
		if err != nil {
			h.logger.Warn("websocket connection rejected: invalid token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired token",
			})
		}
		sessionID = claims.ParticipantID
	}

	return h.gateway.ServeWS(c, sessionID)
}
