package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AIB0I/MyGPT/internal/domain"
)

// CreateSession creates an empty session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.CreateSession(c.Request().Context(), req.Title)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, session)
}

// ListSessions lists sessions, newest first.
// GET /v1/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, domain.ListSessionsResponse{Sessions: sessions})
}

// GetSession retrieves a session by ID.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, session)
}
