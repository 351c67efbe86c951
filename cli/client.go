package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AIB0I/MyGPT/internal/domain"
	"github.com/AIB0I/MyGPT/internal/transport/ws"
)

// Client talks to the chat server: REST for sessions, WebSocket for turns.
type Client struct {
	baseURL    string
	httpClient *http.Client
	conn       *websocket.Conn
}

// NewClient creates a client for the server at baseURL (http or https).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Close closes the WebSocket connection if one is open.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// CreateSession creates an empty session with the given title.
func (c *Client) CreateSession(ctx context.Context, title string) (*domain.Session, error) {
	var session domain.Session
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", domain.CreateSessionRequest{Title: title}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions lists sessions, newest first.
func (c *Client) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	var resp domain.ListSessionsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// GetSession looks up one session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// History returns the transcript of a session.
func (c *Client) History(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	var resp domain.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/v1/session/"+url.PathEscape(sessionID)+"/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

// Chat sends one turn over the WebSocket connection and waits for its reply.
func (c *Client) Chat(sessionID, message string) (string, error) {
	if c.conn == nil {
		if err := c.dial(); err != nil {
			return "", err
		}
	}

	frame := ws.ClientFrame{Type: ws.TypeChat, SessionID: sessionID, Message: message}
	if err := c.conn.WriteJSON(frame); err != nil {
		c.Close()
		return "", fmt.Errorf("write frame: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.Close()
		return "", fmt.Errorf("read frame: %w", err)
	}

	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return "", fmt.Errorf("unmarshal frame: %w", err)
	}

	switch base.Type {
	case ws.TypeReply:
		var reply ws.ReplyFrame
		if err := json.Unmarshal(data, &reply); err != nil {
			return "", fmt.Errorf("unmarshal reply: %w", err)
		}
		return reply.Response, nil
	case ws.TypeError:
		var errFrame ws.ErrorFrame
		json.Unmarshal(data, &errFrame)
		return "", fmt.Errorf("%s: %s", errFrame.Code, errFrame.Message)
	default:
		return "", fmt.Errorf("unexpected frame type: %s", base.Type)
	}
}

func (c *Client) dial() error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.conn = conn
	return nil
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var errResp map[string]string
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp["error"] != "" {
			return fmt.Errorf("server error [%d]: %s", resp.StatusCode, errResp["error"])
		}
		return fmt.Errorf("server error [%d]: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
