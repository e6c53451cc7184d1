package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the MongoDB backed gateway.
type Mongo struct {
	db          *mongo.Database
	users       *Repository[User]
	onlineUsers *Repository[OnlineUser]
	messages    *Repository[Message]
	articles    *Repository[Article]
}

// OpenConnection connects and pings the server before returning the database.
func OpenConnection(uri string, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	slog.Info("[STORE] Connected to MongoDB", "database", database)
	return client.Database(database), nil
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		db:          db,
		users:       NewRepository[User](db, usersCollection),
		onlineUsers: NewRepository[OnlineUser](db, onlineUsersCollection),
		messages:    NewRepository[Message](db, messagesCollection),
		articles:    NewRepository[Article](db, articlesCollection),
	}
}

// EnsureIndexes creates the unique socketId index backing the one record per
// socket rule.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.db.Collection(onlineUsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "socketId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create socketId index: %w", err)
	}
	return nil
}

func (m *Mongo) FindUserByID(ctx context.Context, id string) (*User, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	user, err := m.users.FindByID(ctx, oid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return user, nil
}

func (m *Mongo) FindAllOnlineUsers(ctx context.Context) ([]OnlineUser, error) {
	users, err := m.onlineUsers.FindAll(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find online users: %w", err)
	}
	return users, nil
}

func (m *Mongo) InsertOnlineUser(ctx context.Context, record OnlineUser) error {
	if _, err := m.onlineUsers.Create(ctx, record); err != nil {
		return fmt.Errorf("insert online user %s: %w", record.SocketID, err)
	}
	return nil
}

// DeleteOnlineUserBySocketID removes at most one record; a missing record is
// not an error.
func (m *Mongo) DeleteOnlineUserBySocketID(ctx context.Context, socketID string) error {
	if _, err := m.onlineUsers.Delete(ctx, bson.M{"socketId": socketID}); err != nil {
		return fmt.Errorf("delete online user %s: %w", socketID, err)
	}
	return nil
}

func (m *Mongo) DeleteAllOnlineUsers(ctx context.Context) error {
	if _, err := m.onlineUsers.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("delete online users: %w", err)
	}
	return nil
}

// InsertMessage stamps createdAt and updatedAt before writing.
func (m *Mongo) InsertMessage(ctx context.Context, msg Message) error {
	now := time.Now()
	msg.CreatedAt, msg.UpdatedAt = now, now
	if msg.Files == nil {
		msg.Files = []primitive.ObjectID{}
	}
	if _, err := m.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("insert message in room %s: %w", msg.RoomID, err)
	}
	return nil
}

func (m *Mongo) FindArticles(ctx context.Context) ([]Article, error) {
	articles, err := m.articles.FindAll(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}
	return articles, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}
