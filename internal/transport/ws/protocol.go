package ws

// Frame types from client to server
const (
	TypeChat = "chat"
)

// Frame types from server to client
const (
	TypeReply = "reply"
	TypeError = "error"
)

// Error codes carried by error frames.
const (
	ErrorCodeInvalidMessage   = "invalid_message"
	ErrorCodeInvalidSession   = "invalid_session"
	ErrorCodeMessageRejected  = "message_rejected"
	ErrorCodeCompletionFailed = "completion_failed"
	ErrorCodeInternal         = "internal_error"
)

// ClientFrame is one chat turn sent by the client. An empty SessionID starts
// a new session.
type ClientFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ReplyFrame carries the assistant reply of one turn.
type ReplyFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

// ErrorFrame reports a failed turn. The connection stays open.
type ErrorFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
