package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/lobby-server/internal/store"
)

// Schema is the table layout used by the store. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	username  TEXT NOT NULL UNIQUE,
	last_seen DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	content    TEXT NOT NULL,
	image_url  TEXT,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at, id);
CREATE INDEX IF NOT EXISTS idx_users_last_seen ON users(last_seen DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, last_seen
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.LastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// InsertUserIfAbsent creates a user unless the username already exists.
// The conflict check is part of the INSERT itself, so concurrent callers
// cannot both succeed for the same username.
func (s *SQLiteStore) InsertUserIfAbsent(ctx context.Context, username string, lastSeen time.Time) (*store.User, error) {
	query := `
		INSERT INTO users (username, last_seen)
		VALUES (?, ?)
		ON CONFLICT(username) DO NOTHING
	`
	lastSeen = lastSeen.UTC()
	result, err := s.db.ExecContext(ctx, query, username, lastSeen)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrUsernameTaken
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return &store.User{ID: id, Username: username, LastSeen: lastSeen}, nil
}

// TouchLastSeen updates the user's last seen timestamp.
func (s *SQLiteStore) TouchLastSeen(ctx context.Context, userID int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_seen = ? WHERE id = ?`, at.UTC(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}
	return nil
}

// ListUsersByLastSeen returns all users, most recently seen first.
func (s *SQLiteStore) ListUsersByLastSeen(ctx context.Context) ([]*store.User, error) {
	query := `
		SELECT id, username, last_seen
		FROM users
		ORDER BY last_seen DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.LastSeen); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// ==== MessageStore implementation ====

// AppendMessage persists a message to storage.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (user_id, content, image_url, created_at)
		VALUES (?, ?, ?, ?)
	`
	var imageURL sql.NullString
	if msg.ImageURL != nil {
		imageURL = sql.NullString{String: *msg.ImageURL, Valid: true}
	}
	msg.CreatedAt = msg.CreatedAt.UTC()

	result, err := s.db.ExecContext(ctx, query, msg.UserID, msg.Content, imageURL, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// ListMessages returns all messages oldest first, joined with the author's username.
// Messages whose author no longer resolves are skipped.
func (s *SQLiteStore) ListMessages(ctx context.Context) ([]*store.Message, error) {
	query := `
		SELECT m.id, m.user_id, u.username, m.content, m.image_url, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.user_id
		ORDER BY m.created_at ASC, m.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var imageURL sql.NullString
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Username, &msg.Content, &imageURL, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if imageURL.Valid {
			msg.ImageURL = &imageURL.String
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
