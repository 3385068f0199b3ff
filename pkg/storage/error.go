package storage

import "errors"

var (
	// ErrEmptyTitle is returned when a conversation title is blank.
	ErrEmptyTitle = errors.New("conversation title cannot be empty")

	// ErrNilMessage is returned when a nil message is stored.
	ErrNilMessage = errors.New("cannot store nil message")

	// ErrMissingConversation is returned when a message names no conversation.
	ErrMissingConversation = errors.New("message has no conversation id")
)

// NotFoundError is returned when a conversation or message doesn't exist in
// the store.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "record"
	}
	if e.ID == "" {
		return kind + " not found"
	}

	return kind + " not found: " + e.ID
}

// InvalidRoleError is returned when a message has an unknown role.
type InvalidRoleError struct {
	Role string
}

func (e InvalidRoleError) Error() string {
	return "invalid message role: " + e.Role
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
