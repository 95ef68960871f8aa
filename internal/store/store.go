package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUsernameTaken is returned by InsertUserIfAbsent when the username already exists.
	ErrUsernameTaken = errors.New("username taken")
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("not found")
)

// User represents a chat participant identity.
type User struct {
	ID       int64
	Username string
	LastSeen time.Time
}

// Message represents a persisted chat message.
// Username is filled on read-back from the author's user record.
type Message struct {
	ID        int64
	UserID    int64
	Username  string
	Content   string
	ImageURL  *string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// GetUserByUsername retrieves a user by username.
	// Returns ErrNotFound if no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// InsertUserIfAbsent atomically creates a user with the given username.
	// Returns ErrUsernameTaken if the username already exists.
	InsertUserIfAbsent(ctx context.Context, username string, lastSeen time.Time) (*User, error)

	// TouchLastSeen sets the user's last seen timestamp.
	TouchLastSeen(ctx context.Context, userID int64, at time.Time) error

	// ListUsersByLastSeen returns all users, most recently seen first.
	ListUsersByLastSeen(ctx context.Context) ([]*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists a message and sets its ID.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages returns all messages ordered by creation time, oldest first,
	// each joined with the author's username.
	ListMessages(ctx context.Context) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}
