// Package domain defines the core domain models for the chat-session service.
package domain

// Role represents the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role the store accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DefaultSessionTitle is the placeholder title given to sessions created by a first message.
const DefaultSessionTitle = "Temp Title"
