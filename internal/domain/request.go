package domain

// ChatRequest is the inbound payload for one conversation turn.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse carries the assistant reply and the session it belongs to.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// HistoryResponse is the body of the history endpoint.
type HistoryResponse struct {
	SessionID string         `json:"session_id"`
	History   []HistoryEntry `json:"history"`
}

// MessagesResponse is the body of the full message listing endpoint.
type MessagesResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// CreateSessionRequest creates an empty session with an explicit title.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// ListSessionsResponse is the body of the session listing endpoint.
type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}
