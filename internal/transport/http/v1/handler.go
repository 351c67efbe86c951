// Package v1 provides the versioned HTTP handlers of the chat service.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AIB0I/MyGPT/internal/domain"
	"github.com/AIB0I/MyGPT/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat API
	e.POST("/v1/session", h.Chat)
	e.GET("/v1/session/:session_id/history", h.GetHistory)
	e.GET("/v1/session/:session_id/messages", h.GetMessages)

	// Session API
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions", h.ListSessions)
	e.GET("/v1/sessions/:session_id", h.GetSession)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorResponse maps a service error to a status code and JSON body.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrMessageRejected):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUnknownSession):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Invalid session ID"})
	case errors.Is(err, domain.ErrDuplicateKey):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrCompletionFailed):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
