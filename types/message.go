// Package types provides core types used across researchflow.
// This package has ZERO dependencies on other researchflow packages to avoid circular imports.
package types

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageLength is the longest chat message accepted from a caller, in runes.
const MaxMessageLength = 300

// MessageRole represents the role of a conversation participant.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageType says which flow produced a message.
type MessageType string

const (
	MessageReport   MessageType = "report"
	MessageQuestion MessageType = "question"
)

// Message is one turn of a chat session.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Files     []string    `json:"files,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewMessage creates a message with a fresh id and timestamp.
func NewMessage(sessionID string, role MessageRole, typ MessageType, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Type:      typ,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// ValidateMessageContent rejects empty content and content over limit runes.
// A non-positive limit means MaxMessageLength.
func ValidateMessageContent(content string, limit int) error {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	if content == "" {
		return NewValidationError("message content is empty")
	}
	if n := utf8.RuneCountInString(content); n > limit {
		return NewValidationError(fmt.Sprintf("message has %d characters, limit is %d", n, limit))
	}
	return nil
}
