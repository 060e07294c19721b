package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role tags who authored a message. Only RoleUser and RoleAssistant exist.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Known reports whether r is one of the two roles a thread may hold.
func (r Role) Known() bool {
	return r == RoleUser || r == RoleAssistant
}

// Label is the speaker name used when a conversation is flattened into a prompt.
func (r Role) Label() string {
	if r == RoleUser {
		return "User"
	}
	return "Assistant"
}

// Message is one entry of a chat thread.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`

	// malformed is set when a stored entry had no string text or an
	// unknown role.
	malformed bool
}

// UnmarshalJSON tolerates legacy entries whose text is missing or not a
// string, or whose role is neither user nor assistant. Those decode as
// malformed instead of failing the whole thread.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role Role            `json:"role"`
		Text json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Message{Role: raw.Role}
	text := bytes.TrimSpace(raw.Text)
	if !raw.Role.Known() || len(text) == 0 || text[0] != '"' {
		m.malformed = true
		return nil
	}
	return json.Unmarshal(text, &m.Text)
}

// HasText reports whether the message carries a usable, non-empty string
// under a known role.
func (m Message) HasText() bool {
	return !m.malformed && m.Role.Known() && m.Text != ""
}

// Chat is a persisted conversation thread owned by a single user.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SendMessageRequest is the payload of POST /chat/send.
type SendMessageRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId,omitempty"`
}

// SendMessageResponse carries the resolved thread id, the reply and the
// full sanitized thread.
type SendMessageResponse struct {
	ChatID uuid.UUID `json:"chatId"`
	Reply  string    `json:"reply"`
	Chat   *Chat     `json:"chat"`
}

// ChatUpdatedEvent is pushed to a user's open clients after a send.
type ChatUpdatedEvent struct {
	ChatID    uuid.UUID `json:"chat_id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}
