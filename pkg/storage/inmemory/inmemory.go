// Package inmemory provides a storage.Driver backed by process memory.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/papercomputeco/agentbase/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards both maps
	mu sync.RWMutex

	conversations map[string]*storage.Conversation

	// messages is keyed by conversation id
	messages map[string][]*storage.Message
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		conversations: make(map[string]*storage.Conversation),
		messages:      make(map[string][]*storage.Message),
	}
}

// CreateConversation creates a conversation for userID.
func (d *Driver) CreateConversation(_ context.Context, userID, title string) (*storage.Conversation, error) {
	if title == "" {
		title = storage.DefaultTitle
	}
	title, err := storage.NormalizeTitle(title)
	if err != nil {
		return nil, err
	}

	now := storage.Now()
	conv := &storage.Conversation{
		ID:        storage.NewID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.conversations[conv.ID] = conv

	c := *conv
	return &c, nil
}

// GetConversation retrieves a conversation by id.
func (d *Driver) GetConversation(_ context.Context, id string) (*storage.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conv, ok := d.conversations[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "conversation", ID: id}
	}

	c := *conv
	return &c, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (d *Driver) ListConversations(_ context.Context, userID string) ([]*storage.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := []*storage.Conversation{}
	for _, conv := range d.conversations {
		if conv.UserID != userID {
			continue
		}
		c := *conv
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	return result, nil
}

// UpdateConversation applies patch to a conversation.
func (d *Driver) UpdateConversation(_ context.Context, id string, patch storage.ConversationPatch) (*storage.Conversation, error) {
	var title string
	if patch.Title != nil {
		t, err := storage.NormalizeTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		title = t
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conv, ok := d.conversations[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "conversation", ID: id}
	}

	if patch.Title != nil {
		conv.Title = title
	}
	if patch.IsFavorite != nil {
		conv.IsFavorite = *patch.IsFavorite
	}
	conv.UpdatedAt = storage.Now()

	c := *conv
	return &c, nil
}

// DeleteConversation deletes a conversation and its messages.
func (d *Driver) DeleteConversation(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.conversations[id]; !ok {
		return storage.NotFoundError{Kind: "conversation", ID: id}
	}

	delete(d.conversations, id)
	delete(d.messages, id)
	return nil
}

// DeleteConversations deletes the user's conversations named in ids.
func (d *Driver) DeleteConversations(_ context.Context, userID string, ids []string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		conv, ok := d.conversations[id]
		if !ok || conv.UserID != userID {
			continue
		}
		delete(d.conversations, id)
		delete(d.messages, id)
		deleted++
	}

	return deleted, nil
}

// CreateMessage stores a message and bumps its conversation.
func (d *Driver) CreateMessage(_ context.Context, msg *storage.Message) (*storage.Message, error) {
	if err := storage.PrepareMessage(msg); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conv, ok := d.conversations[msg.ConversationID]
	if !ok {
		return nil, storage.NotFoundError{Kind: "conversation", ID: msg.ConversationID}
	}

	m := *msg
	d.messages[msg.ConversationID] = append(d.messages[msg.ConversationID], &m)
	if msg.Timestamp.After(conv.UpdatedAt) {
		conv.UpdatedAt = msg.Timestamp
	}

	out := m
	return &out, nil
}

// ListMessages returns a conversation's messages in timestamp order.
func (d *Driver) ListMessages(_ context.Context, conversationID string) ([]*storage.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stored := d.messages[conversationID]
	result := make([]*storage.Message, 0, len(stored))
	for _, msg := range stored {
		m := *msg
		result = append(result, &m)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID < result[j].ID
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// CountMessages returns the number of messages in a conversation.
func (d *Driver) CountMessages(_ context.Context, conversationID string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.messages[conversationID]), nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
