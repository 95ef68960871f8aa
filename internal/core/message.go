package core

import (
	"time"

	"github.com/vovakirdan/lobby-server/internal/store"
)

// User is a durable chat identity.
type User struct {
	ID       int64
	Username string
	LastSeen time.Time
}

// Message is the domain model for an accepted chat message, enriched with the
// author's username for display.
type Message struct {
	ID        int64
	UserID    int64
	Username  string
	Content   string
	ImageURL  *string
	CreatedAt time.Time
}

func userFromStore(u *store.User) User {
	return User{ID: u.ID, Username: u.Username, LastSeen: u.LastSeen}
}
