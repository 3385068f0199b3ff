// Package entdriver implements storage.Driver on top of ent's SQL dialect
// builders. It is database-agnostic and is embedded by the concrete drivers.
package entdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/agentbase/pkg/storage"
	"github.com/papercomputeco/agentbase/pkg/storage/ent/migrate"
)

const (
	conversationsTable = "conversations"
	messagesTable      = "messages"
)

var (
	conversationColumns = []string{"id", "user_id", "title", "is_favorite", "created_at", "updated_at"}
	messageColumns      = []string{
		"id", "conversation_id", "user_id", "role", "content",
		"model_used", "tokens_input", "tokens_output", "timestamp",
	}
)

// EntDriver provides storage operations over an ent SQL driver.
type EntDriver struct {
	Driver *entsql.Driver
}

// New wraps drv and runs the schema migration.
func New(ctx context.Context, drv *entsql.Driver) (*EntDriver, error) {
	if err := migrate.Create(ctx, drv); err != nil {
		return nil, err
	}
	return &EntDriver{Driver: drv}, nil
}

func (ed *EntDriver) sql() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Driver.Dialect())
}

func (ed *EntDriver) db() *sql.DB {
	return ed.Driver.DB()
}

// CreateConversation creates a conversation for userID.
func (ed *EntDriver) CreateConversation(ctx context.Context, userID, title string) (*storage.Conversation, error) {
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

	query, args := ed.sql().Insert(conversationsTable).
		Columns(conversationColumns...).
		Values(conv.ID, conv.UserID, conv.Title, conv.IsFavorite, conv.CreatedAt, conv.UpdatedAt).
		Query()
	if _, err := ed.db().ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// GetConversation retrieves a conversation by id.
func (ed *EntDriver) GetConversation(ctx context.Context, id string) (*storage.Conversation, error) {
	return getConversation(ctx, ed.db(), ed.sql(), id)
}

// ListConversations returns the user's conversations, most recently updated first.
func (ed *EntDriver) ListConversations(ctx context.Context, userID string) ([]*storage.Conversation, error) {
	b := ed.sql()
	query, args := b.Select(conversationColumns...).
		From(b.Table(conversationsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("updated_at"), entsql.Desc("id")).
		Query()

	rows, err := ed.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	result := []*storage.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, conv)
	}

	return result, rows.Err()
}

// UpdateConversation applies patch to a conversation.
func (ed *EntDriver) UpdateConversation(ctx context.Context, id string, patch storage.ConversationPatch) (*storage.Conversation, error) {
	update := ed.sql().Update(conversationsTable).
		Set("updated_at", storage.Now()).
		Where(entsql.EQ("id", id))

	if patch.Title != nil {
		title, err := storage.NormalizeTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		update.Set("title", title)
	}
	if patch.IsFavorite != nil {
		update.Set("is_favorite", *patch.IsFavorite)
	}

	query, args := update.Query()
	res, err := ed.db().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, storage.NotFoundError{Kind: "conversation", ID: id}
	}

	return ed.GetConversation(ctx, id)
}

// DeleteConversation deletes a conversation and its messages.
func (ed *EntDriver) DeleteConversation(ctx context.Context, id string) error {
	deleted := 0
	err := ed.withTx(ctx, func(tx *sql.Tx) error {
		n, err := ed.deleteConversations(ctx, tx, []any{id})
		deleted = n
		return err
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return storage.NotFoundError{Kind: "conversation", ID: id}
	}

	return nil
}

// DeleteConversations deletes the user's conversations named in ids.
func (ed *EntDriver) DeleteConversations(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	deleted := 0
	err := ed.withTx(ctx, func(tx *sql.Tx) error {
		requested := make([]any, 0, len(ids))
		for _, id := range ids {
			requested = append(requested, id)
		}

		b := ed.sql()
		query, args := b.Select("id").
			From(b.Table(conversationsTable)).
			Where(entsql.And(
				entsql.EQ("user_id", userID),
				entsql.In("id", requested...),
			)).
			Query()

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to select conversations: %w", err)
		}
		owned := []any{}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan conversation id: %w", err)
			}
			owned = append(owned, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(owned) == 0 {
			return nil
		}

		deleted, err = ed.deleteConversations(ctx, tx, owned)
		return err
	})

	return deleted, err
}

func (ed *EntDriver) deleteConversations(ctx context.Context, tx *sql.Tx, ids []any) (int, error) {
	query, args := ed.sql().Delete(messagesTable).
		Where(entsql.In("conversation_id", ids...)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}

	query, args = ed.sql().Delete(conversationsTable).
		Where(entsql.In("id", ids...)).
		Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversations: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted conversations: %w", err)
	}

	return int(n), nil
}

// CreateMessage stores a message and bumps its conversation.
func (ed *EntDriver) CreateMessage(ctx context.Context, msg *storage.Message) (*storage.Message, error) {
	if err := storage.PrepareMessage(msg); err != nil {
		return nil, err
	}

	err := ed.withTx(ctx, func(tx *sql.Tx) error {
		query, args := ed.sql().Update(conversationsTable).
			Set("updated_at", msg.Timestamp).
			Where(entsql.EQ("id", msg.ConversationID)).
			Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return storage.NotFoundError{Kind: "conversation", ID: msg.ConversationID}
		}

		query, args = ed.sql().Insert(messagesTable).
			Columns(messageColumns...).
			Values(
				msg.ID, msg.ConversationID, msg.UserID, msg.Role, msg.Content,
				nullString(msg.ModelUsed), nullInt(msg.TokensInput), nullInt(msg.TokensOutput),
				msg.Timestamp,
			).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m := *msg
	return &m, nil
}

// ListMessages returns a conversation's messages in timestamp order.
func (ed *EntDriver) ListMessages(ctx context.Context, conversationID string) ([]*storage.Message, error) {
	b := ed.sql()
	query, args := b.Select(messageColumns...).
		From(b.Table(messagesTable)).
		Where(entsql.EQ("conversation_id", conversationID)).
		OrderBy(entsql.Asc("timestamp"), entsql.Asc("id")).
		Query()

	rows, err := ed.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	result := []*storage.Message{}
	for rows.Next() {
		var (
			m            storage.Message
			modelUsed    sql.NullString
			tokensInput  sql.NullInt64
			tokensOutput sql.NullInt64
		)
		err := rows.Scan(
			&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content,
			&modelUsed, &tokensInput, &tokensOutput, timeValue{&m.Timestamp},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.ModelUsed = modelUsed.String
		m.TokensInput = int(tokensInput.Int64)
		m.TokensOutput = int(tokensOutput.Int64)
		result = append(result, &m)
	}

	return result, rows.Err()
}

// CountMessages returns the number of messages in a conversation.
func (ed *EntDriver) CountMessages(ctx context.Context, conversationID string) (int, error) {
	b := ed.sql()
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(messagesTable)).
		Where(entsql.EQ("conversation_id", conversationID)).
		Query()

	var n int
	if err := ed.db().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return n, nil
}

// Close closes the database connection.
func (ed *EntDriver) Close() error {
	return ed.Driver.Close()
}

func (ed *EntDriver) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := ed.db().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getConversation(ctx context.Context, q querier, b *entsql.DialectBuilder, id string) (*storage.Conversation, error) {
	query, args := b.Select(conversationColumns...).
		From(b.Table(conversationsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	conv, err := scanConversation(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "conversation", ID: id}
	}

	return conv, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*storage.Conversation, error) {
	var c storage.Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.IsFavorite, timeValue{&c.CreatedAt}, timeValue{&c.UpdatedAt})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

// timestampFormats are the text encodings SQLite drivers use for datetime
// columns.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timeValue scans native times and their text encodings into a UTC time.
type timeValue struct {
	t *time.Time
}

func (v timeValue) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v.t = time.Time{}
		return nil
	case time.Time:
		*v.t = s.UTC()
		return nil
	case []byte:
		return v.parse(string(s))
	case string:
		return v.parse(s)
	case int64:
		*v.t = time.Unix(s, 0).UTC()
		return nil
	}

	return fmt.Errorf("unsupported time value %T", src)
}

func (v timeValue) parse(s string) error {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			*v.t = t.UTC()
			return nil
		}
	}

	return fmt.Errorf("unparseable time value %q", s)
}
