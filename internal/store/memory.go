package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory keeps every collection in process. It follows the same contract as
// Mongo, including the unique socketId rule.
type Memory struct {
	mu          sync.Mutex
	users       map[primitive.ObjectID]User
	onlineUsers []OnlineUser
	messages    []Message
	articles    []Article
}

func NewMemory() *Memory {
	return &Memory{users: make(map[primitive.ObjectID]User)}
}

// AddUser stores u, assigning an id when it has none, and returns the id.
func (m *Memory) AddUser(u User) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = u
	return u.ID
}

// SeedUsers adds one user per name. The username is the lower-cased name.
func (m *Memory) SeedUsers(names []string) []User {
	users := make([]User, 0, len(names))
	for _, name := range names {
		u := User{Name: name, Username: strings.ToLower(name)}
		u.ID = m.AddUser(u)
		users = append(users, u)
	}
	return users
}

func (m *Memory) AddArticle(a Article) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	m.articles = append(m.articles, a)
}

// Messages returns a copy of the recorded messages.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Message(nil), m.messages...)
}

func (m *Memory) FindUserByID(_ context.Context, id string) (*User, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[oid]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (m *Memory) FindAllOnlineUsers(_ context.Context) ([]OnlineUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]OnlineUser{}, m.onlineUsers...), nil
}

func (m *Memory) InsertOnlineUser(_ context.Context, record OnlineUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.onlineUsers {
		if existing.SocketID == record.SocketID {
			return fmt.Errorf("insert online user %s: duplicate socketId", record.SocketID)
		}
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	m.onlineUsers = append(m.onlineUsers, record)
	return nil
}

func (m *Memory) DeleteOnlineUserBySocketID(_ context.Context, socketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.onlineUsers {
		if existing.SocketID == socketID {
			m.onlineUsers = append(m.onlineUsers[:i], m.onlineUsers[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) DeleteAllOnlineUsers(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onlineUsers = nil
	return nil
}

func (m *Memory) InsertMessage(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	msg.CreatedAt, msg.UpdatedAt = now, now
	m.messages = append(m.messages, msg)
	return nil
}

func (m *Memory) FindArticles(_ context.Context) ([]Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Article{}, m.articles...), nil
}
