package store

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is owned by the account flows; chat only reads it.
type User struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	Email    string             `json:"email" bson:"email"`
	Username string             `json:"username" bson:"username"`
}

// OnlineUser records that a user is reachable through a live socket.
type OnlineUser struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SocketID string             `json:"socketId" bson:"socketId"`
	UserID   primitive.ObjectID `json:"userId" bson:"userId"`
}

// Message is the durable chat record. RoomID is an opaque room identifier;
// only Status changes after insert.
type Message struct {
	ID        primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	RoomID    string               `json:"roomId" bson:"roomId"`
	User      primitive.ObjectID   `json:"user" bson:"user"`
	Body      string               `json:"body" bson:"body"`
	Files     []primitive.ObjectID `json:"files" bson:"files"`
	Status    bool                 `json:"status" bson:"status"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

type Article struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title  string             `json:"title" bson:"title"`
	Author string             `json:"author" bson:"author"`
	Body   string             `json:"body" bson:"body"`
}
