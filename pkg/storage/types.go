package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is given to conversations created without a title.
const DefaultTitle = "New Conversation"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation is a titled thread of messages owned by one user.
type Conversation struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Message is one turn within a conversation. ModelUsed and the token counts
// are only set on assistant turns.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ModelUsed      string    `json:"model_used,omitempty"`
	TokensInput    int       `json:"tokens_input,omitempty"`
	TokensOutput   int       `json:"tokens_output,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConversationPatch holds the mutable fields of a conversation. Nil fields
// are left unchanged.
type ConversationPatch struct {
	Title      *string `json:"title,omitempty"`
	IsFavorite *bool   `json:"is_favorite,omitempty"`
}

// ValidRole reports whether role is a storable message role.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// NewID returns a time-ordered identifier, so ids sort in creation order
// when timestamps tie.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Now returns the current time as stored: UTC with microsecond precision,
// which every backend round-trips exactly.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NormalizeTitle trims a title and rejects blank ones.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}

// PrepareMessage validates msg and fills its id and timestamp.
func PrepareMessage(msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if msg.ConversationID == "" {
		return ErrMissingConversation
	}
	if !ValidRole(msg.Role) {
		return InvalidRoleError{Role: msg.Role}
	}
	if msg.ID == "" {
		msg.ID = NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = Now()
	}
	return nil
}
