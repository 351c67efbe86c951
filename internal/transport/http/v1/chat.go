package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AIB0I/MyGPT/internal/domain"
)

// Chat runs one conversation turn.
// POST /v1/session
func (h *Handler) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	reply, sessionID, err := h.service.Chat(ctx, req.SessionID, req.Message)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, domain.ChatResponse{
		Response:  reply,
		SessionID: sessionID,
	})
}

// GetHistory returns the (role, content) transcript of a session.
// Unknown sessions return an empty history.
// GET /v1/session/:session_id/history
func (h *Handler) GetHistory(c echo.Context) error {
	sessionID := c.Param("session_id")

	history, err := h.service.GetHistory(c.Request().Context(), sessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, domain.HistoryResponse{
		SessionID: sessionID,
		History:   history,
	})
}

// GetMessages returns the full message rows of a session.
// GET /v1/session/:session_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	sessionID := c.Param("session_id")

	messages, err := h.service.GetMessages(c.Request().Context(), sessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, domain.MessagesResponse{
		SessionID: sessionID,
		Messages:  messages,
	})
}
