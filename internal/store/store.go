// Package store persists users, presence records, messages and
// articles. Mongo backs production; Memory serves local runs and tests.
package store

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a lookup matches no document. Malformed ids
// are reported as not found as well.
var ErrNotFound = errors.New("store: not found")

const (
	usersCollection       = "users"
	onlineUsersCollection = "onlineusers"
	messagesCollection    = "messages"
	articlesCollection    = "articles"
)

// ParseID converts a hex string into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return oid, nil
}
