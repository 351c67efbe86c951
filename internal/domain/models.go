package domain

import "time"

// Session represents a persistent conversation thread.
type Session struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message represents one persisted, role-tagged utterance.
type Message struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is the (role, content) view of a message used to replay a conversation.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionSummary is a lightweight listing row for a session.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
