package redisstore

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vovakirdan/lobby-server/internal/store"
)

const (
	keyUserSeq      = "lobby:users:seq"
	keyUsersByName  = "lobby:users:byname"
	keyUsersSeen    = "lobby:users:last_seen"
	keyMessageSeq   = "lobby:messages:seq"
	keyMessages     = "lobby:messages"
	fieldUsername   = "username"
	fieldLastSeenNS = "last_seen"
)

const userKeyPrefix = "lobby:user:"

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// insertUser claims the username and writes the user record in one step.
// Returns 0 when the name is taken, otherwise the new id.
var insertUser = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 1 then
	return 0
end
local id = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1], ARGV[1], id)
redis.call("HSET", ARGV[4] .. id, "username", ARGV[1], "last_seen", ARGV[2])
redis.call("ZADD", KEYS[3], ARGV[3], id)
return id
`)

// touchUser updates last_seen on an existing user record.
// Returns 0 when the record does not exist.
var touchUser = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "last_seen", ARGV[1])
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[3])
return 1
`)

// messageRecord is the JSON layout of one entry in the message list.
type messageRecord struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"image_url,omitempty"`
	CreatedAt int64   `json:"created_at"`
}

// RedisStore implements store.Store on top of Redis.
// User writes run as Lua scripts, so a username claim and its record land together.
type RedisStore struct {
	client *redis.Client
}

// New wraps an existing client.
func New(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Open connects to the Redis server at addr and verifies the connection.
func Open(ctx context.Context, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client), nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetUserByUsername retrieves a user by username.
func (s *RedisStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	raw, err := s.client.HGet(ctx, keyUsersByName, username).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", raw, err)
	}
	return s.getUser(ctx, id)
}

func (s *RedisStore) getUser(ctx context.Context, id int64) (*store.User, error) {
	fields, err := s.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return decodeUser(id, fields)
}

func decodeUser(id int64, fields map[string]string) (*store.User, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	ns, err := strconv.ParseInt(fields[fieldLastSeenNS], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last_seen for user %d: %w", id, err)
	}
	return &store.User{
		ID:       id,
		Username: fields[fieldUsername],
		LastSeen: time.Unix(0, ns).UTC(),
	}, nil
}

// InsertUserIfAbsent claims the username and writes the user record atomically.
func (s *RedisStore) InsertUserIfAbsent(ctx context.Context, username string, lastSeen time.Time) (*store.User, error) {
	lastSeen = lastSeen.UTC()
	id, err := insertUser.Run(ctx, s.client,
		[]string{keyUsersByName, keyUserSeq, keyUsersSeen},
		username, lastSeen.UnixNano(), lastSeen.UnixMilli(), userKeyPrefix,
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if id == 0 {
		return nil, store.ErrUsernameTaken
	}
	return &store.User{ID: id, Username: username, LastSeen: lastSeen}, nil
}

// TouchLastSeen updates the user's last seen timestamp.
func (s *RedisStore) TouchLastSeen(ctx context.Context, userID int64, at time.Time) error {
	at = at.UTC()
	updated, err := touchUser.Run(ctx, s.client,
		[]string{userKey(userID), keyUsersSeen},
		at.UnixNano(), at.UnixMilli(), userID,
	).Int64()
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	if updated == 0 {
		return fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}
	return nil
}

// ListUsersByLastSeen returns all users, most recently seen first.
func (s *RedisStore) ListUsersByLastSeen(ctx context.Context) ([]*store.User, error) {
	members, err := s.client.ZRevRange(ctx, keyUsersSeen, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse user id %q: %w", m, err)
		}
		ids = append(ids, id)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, userKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	users := make([]*store.User, 0, len(ids))
	for i, id := range ids {
		user, err := decodeUser(id, cmds[i].Val())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// AppendMessage assigns an id and pushes the message onto the log.
func (s *RedisStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	id, err := s.client.Incr(ctx, keyMessageSeq).Result()
	if err != nil {
		return fmt.Errorf("allocate message id: %w", err)
	}

	msg.CreatedAt = msg.CreatedAt.UTC()
	data, err := json.Marshal(messageRecord{
		ID:        id,
		UserID:    msg.UserID,
		Content:   msg.Content,
		ImageURL:  msg.ImageURL,
		CreatedAt: msg.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := s.client.RPush(ctx, keyMessages, data).Err(); err != nil {
		return fmt.Errorf("push message: %w", err)
	}

	msg.ID = id
	return nil
}

// ListMessages returns all messages oldest first, joined with the author's username.
func (s *RedisStore) ListMessages(ctx context.Context) ([]*store.Message, error) {
	vals, err := s.client.LRange(ctx, keyMessages, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}

	records := make([]messageRecord, 0, len(vals))
	authors := make(map[int64]*redis.StringCmd)
	for _, v := range vals {
		var rec messageRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		records = append(records, rec)
		authors[rec.UserID] = nil
	}

	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id := range authors {
			authors[id] = pipe.HGet(ctx, userKey(id), fieldUsername)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load authors: %w", err)
	}

	messages := make([]*store.Message, 0, len(records))
	for _, rec := range records {
		username, err := authors[rec.UserID].Result()
		if err != nil {
			// Author record is gone; skip like the SQL join does.
			continue
		}
		messages = append(messages, &store.Message{
			ID:        rec.ID,
			UserID:    rec.UserID,
			Username:  username,
			Content:   rec.Content,
			ImageURL:  rec.ImageURL,
			CreatedAt: time.Unix(0, rec.CreatedAt).UTC(),
		})
	}

	// Concurrent appends may land slightly out of timestamp order.
	slices.SortStableFunc(messages, func(a, b *store.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return messages, nil
}
