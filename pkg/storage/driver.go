// Package storage defines how conversations and their messages are persisted.
package storage

import (
	"context"
)

// Driver defines the interface for persisting and retrieving conversations
// and messages in a storage backend. Ownership is not enforced here: callers
// compare Conversation.UserID against the authenticated user.
type Driver interface {
	// CreateConversation creates a conversation for userID. An empty title
	// becomes DefaultTitle.
	CreateConversation(ctx context.Context, userID, title string) (*Conversation, error)

	// GetConversation retrieves a conversation by id.
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// ListConversations returns the user's conversations, most recently
	// updated first.
	ListConversations(ctx context.Context, userID string) ([]*Conversation, error)

	// UpdateConversation applies patch and bumps updated_at.
	UpdateConversation(ctx context.Context, id string, patch ConversationPatch) (*Conversation, error)

	// DeleteConversation deletes a conversation and all of its messages.
	DeleteConversation(ctx context.Context, id string) error

	// DeleteConversations deletes the conversations in ids that belong to
	// userID, with their messages, and returns how many were deleted.
	DeleteConversations(ctx context.Context, userID string, ids []string) (int, error)

	// CreateMessage stores a message, assigning its id and timestamp when
	// unset, and bumps the conversation's updated_at.
	CreateMessage(ctx context.Context, msg *Message) (*Message, error)

	// ListMessages returns a conversation's messages in timestamp order.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// CountMessages returns the number of messages in a conversation.
	CountMessages(ctx context.Context, conversationID string) (int, error)

	// Close closes the store and releases any resources.
	Close() error
}
