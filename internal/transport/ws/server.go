// Package ws serves the chat protocol over WebSocket: one JSON frame in, one
// JSON frame out per turn.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/AIB0I/MyGPT/internal/config"
	"github.com/AIB0I/MyGPT/internal/domain"
)

// ChatService runs one conversation turn. *service.Service satisfies it.
type ChatService interface {
	Chat(ctx context.Context, sessionID, message string) (string, string, error)
}

// Server handles WebSocket connections.
type Server struct {
	service  ChatService
	cfg      config.WSConfig
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(svc ChatService, cfg config.WSConfig, logger zerolog.Logger) *Server {
	return &Server{
		service: svc,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/ws", s.HandleWebSocket)
}

// connection is one client. Only writePump writes to ws.
type connection struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
}

// HandleWebSocket upgrades the request and serves turns until the client
// goes away. Turns on one connection are handled in order.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return err
	}

	conn := &connection{
		ws:   ws,
		send: make(chan []byte, 16),
		done: make(chan struct{}),
	}
	if s.cfg.MaxMessageSize > 0 {
		ws.SetReadLimit(s.cfg.MaxMessageSize)
	}

	s.logger.Debug().Str("remote", c.RealIP()).Msg("websocket connected")
	go s.writePump(conn)
	s.readPump(c.Request().Context(), conn)
	return nil
}

// readPump reads frames and runs each turn before reading the next one.
func (s *Server) readPump(ctx context.Context, conn *connection) {
	defer close(conn.send)

	s.extendReadDeadline(conn)
	conn.ws.SetPongHandler(func(string) error {
		s.extendReadDeadline(conn)
		return nil
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		s.handleFrame(ctx, conn, data)
		// A slow turn must not count against the idle timeout.
		s.extendReadDeadline(conn)
	}
}

func (s *Server) extendReadDeadline(conn *connection) {
	if s.cfg.ReadTimeout > 0 {
		conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (s *Server) writePump(conn *connection) {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		close(conn.done)
		conn.ws.Close()
	}()

	for {
		select {
		case message, ok := <-conn.send:
			s.setWriteDeadline(conn)
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write websocket frame")
				return
			}

		case <-ticker.C:
			s.setWriteDeadline(conn)
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) setWriteDeadline(conn *connection) {
	if s.cfg.WriteTimeout > 0 {
		conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
}

// handleFrame dispatches one client frame.
func (s *Server) handleFrame(ctx context.Context, conn *connection, data []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch frame.Type {
	case TypeChat:
		s.handleChat(ctx, conn, frame)
	default:
		s.sendError(conn, frame.SessionID, ErrorCodeInvalidMessage, "unknown message type: "+frame.Type)
	}
}

func (s *Server) handleChat(ctx context.Context, conn *connection, frame ClientFrame) {
	reply, sessionID, err := s.service.Chat(ctx, frame.SessionID, frame.Message)
	if err != nil {
		s.sendError(conn, sessionID, errorCode(err), errorMessage(err))
		return
	}

	s.sendJSON(conn, ReplyFrame{
		Type:      TypeReply,
		SessionID: sessionID,
		Response:  reply,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownSession):
		return ErrorCodeInvalidSession
	case errors.Is(err, domain.ErrMessageRejected):
		return ErrorCodeMessageRejected
	case errors.Is(err, domain.ErrCompletionFailed):
		return ErrorCodeCompletionFailed
	default:
		return ErrorCodeInternal
	}
}

func errorMessage(err error) string {
	if errors.Is(err, domain.ErrUnknownSession) {
		return "Invalid session ID"
	}
	return err.Error()
}

func (s *Server) sendError(conn *connection, sessionID, code, message string) {
	s.sendJSON(conn, ErrorFrame{
		Type:      TypeError,
		SessionID: sessionID,
		Code:      code,
		Message:   message,
	})
}

// sendJSON queues v for writePump. Frames are dropped once the writer is gone.
func (s *Server) sendJSON(conn *connection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal websocket frame")
		return
	}
	select {
	case conn.send <- data:
	case <-conn.done:
	}
}
