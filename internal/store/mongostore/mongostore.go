package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vovakirdan/lobby-server/internal/store"
)

const (
	collUsers    = "users"
	collMessages = "messages"
	collCounters = "counters"
)

type userDoc struct {
	ID       int64     `bson:"_id"`
	Username string    `bson:"username"`
	LastSeen time.Time `bson:"lastSeen"`
}

type messageDoc struct {
	ID        int64     `bson:"_id"`
	UserID    int64     `bson:"userId"`
	Content   string    `bson:"content"`
	ImageURL  *string   `bson:"imageUrl"`
	CreatedAt time.Time `bson:"createdAt"`
}

type joinedMessageDoc struct {
	ID        int64     `bson:"_id"`
	UserID    int64     `bson:"userId"`
	Content   string    `bson:"content"`
	ImageURL  *string   `bson:"imageUrl"`
	CreatedAt time.Time `bson:"createdAt"`
	User      struct {
		Username string `bson:"username"`
	} `bson:"user"`
}

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// MongoStore implements store.Store on MongoDB.
// Username uniqueness is enforced by a unique index on users.username.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	messages *mongo.Collection
	counters *mongo.Collection
}

// Open connects to uri, verifies the connection and ensures indexes exist.
func Open(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		users:    db.Collection(collUsers),
		messages: db.Collection(collMessages),
		counters: db.Collection(collCounters),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "lastSeen", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create message index: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// nextID allocates the next integer id for the named sequence.
func (s *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var counter counterDoc
	err := s.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return counter.Seq, nil
}

// GetUserByUsername retrieves a user by username.
func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return toUser(doc), nil
}

// InsertUserIfAbsent inserts the user; the unique index rejects duplicates.
func (s *MongoStore) InsertUserIfAbsent(ctx context.Context, username string, lastSeen time.Time) (*store.User, error) {
	id, err := s.nextID(ctx, collUsers)
	if err != nil {
		return nil, err
	}

	doc := userDoc{ID: id, Username: username, LastSeen: lastSeen.UTC()}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return toUser(doc), nil
}

// TouchLastSeen updates the user's last seen timestamp.
func (s *MongoStore) TouchLastSeen(ctx context.Context, userID int64, at time.Time) error {
	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "lastSeen", Value: at.UTC()}}}},
	)
	if err != nil {
		return fmt.Errorf("update lastSeen: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}
	return nil
}

// ListUsersByLastSeen returns all users, most recently seen first.
func (s *MongoStore) ListUsersByLastSeen(ctx context.Context) ([]*store.User, error) {
	cursor, err := s.users.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "lastSeen", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*store.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, toUser(doc))
	}
	return users, nil
}

// AppendMessage assigns an id and inserts the message.
func (s *MongoStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	id, err := s.nextID(ctx, collMessages)
	if err != nil {
		return err
	}

	msg.CreatedAt = msg.CreatedAt.UTC()
	doc := messageDoc{
		ID:        id,
		UserID:    msg.UserID,
		Content:   msg.Content,
		ImageURL:  msg.ImageURL,
		CreatedAt: msg.CreatedAt,
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	msg.ID = id
	return nil
}

// ListMessages returns all messages oldest first, joined with the author's username.
// $unwind drops messages whose author does not resolve.
func (s *MongoStore) ListMessages(ctx context.Context) ([]*store.Message, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collUsers},
			{Key: "localField", Value: "userId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "user"},
		}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := s.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate messages: %w", err)
	}

	var docs []joinedMessageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]*store.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, &store.Message{
			ID:        doc.ID,
			UserID:    doc.UserID,
			Username:  doc.User.Username,
			Content:   doc.Content,
			ImageURL:  doc.ImageURL,
			CreatedAt: doc.CreatedAt.UTC(),
		})
	}
	return messages, nil
}

func toUser(doc userDoc) *store.User {
	return &store.User{ID: doc.ID, Username: doc.Username, LastSeen: doc.LastSeen.UTC()}
}
