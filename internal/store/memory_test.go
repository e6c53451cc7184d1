package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemory_OnlineUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	userID := primitive.NewObjectID()

	if err := m.InsertOnlineUser(ctx, OnlineUser{SocketID: "sock-1", UserID: userID}); err != nil {
		t.Fatalf("InsertOnlineUser() unexpected error: %v", err)
	}

	records, err := m.FindAllOnlineUsers(ctx)
	if err != nil {
		t.Fatalf("FindAllOnlineUsers() unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("FindAllOnlineUsers() returned %d records, want 1", len(records))
	}
	if records[0].SocketID != "sock-1" || records[0].UserID != userID {
		t.Errorf("FindAllOnlineUsers()[0] = %+v, want socketId sock-1 userId %s", records[0], userID.Hex())
	}
}

func TestMemory_InsertOnlineUser_DuplicateSocket(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.InsertOnlineUser(ctx, OnlineUser{SocketID: "dup", UserID: primitive.NewObjectID()}); err != nil {
		t.Fatalf("first insert unexpected error: %v", err)
	}
	if err := m.InsertOnlineUser(ctx, OnlineUser{SocketID: "dup", UserID: primitive.NewObjectID()}); err == nil {
		t.Error("second insert with the same socketId should fail")
	}
}

func TestMemory_DeleteOnlineUserBySocketID_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.InsertOnlineUser(ctx, OnlineUser{SocketID: "a", UserID: primitive.NewObjectID()})
	_ = m.InsertOnlineUser(ctx, OnlineUser{SocketID: "b", UserID: primitive.NewObjectID()})

	for i := 0; i < 3; i++ {
		if err := m.DeleteOnlineUserBySocketID(ctx, "a"); err != nil {
			t.Fatalf("DeleteOnlineUserBySocketID() call %d unexpected error: %v", i, err)
		}
	}

	records, _ := m.FindAllOnlineUsers(ctx)
	if len(records) != 1 || records[0].SocketID != "b" {
		t.Errorf("remaining records = %+v, want only socket b", records)
	}
}

func TestMemory_DeleteAllOnlineUsers(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		ctx := context.Background()
		m := NewMemory()
		for i := 0; i < n; i++ {
			_ = m.InsertOnlineUser(ctx, OnlineUser{SocketID: primitive.NewObjectID().Hex(), UserID: primitive.NewObjectID()})
		}

		if err := m.DeleteAllOnlineUsers(ctx); err != nil {
			t.Fatalf("DeleteAllOnlineUsers() with %d records unexpected error: %v", n, err)
		}
		records, _ := m.FindAllOnlineUsers(ctx)
		if len(records) != 0 {
			t.Errorf("DeleteAllOnlineUsers() with %d records left %d", n, len(records))
		}
	}
}

func TestMemory_FindUserByID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := m.AddUser(User{Name: "Alice"})

	tests := []struct {
		name     string
		id       string
		want     string
		notFound bool
	}{
		{name: "existing user", id: id.Hex(), want: "Alice"},
		{name: "unknown user", id: primitive.NewObjectID().Hex(), notFound: true},
		{name: "malformed id", id: "not-an-id", notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := m.FindUserByID(ctx, tt.id)
			if tt.notFound {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("FindUserByID() error = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindUserByID() unexpected error: %v", err)
			}
			if user.Name != tt.want {
				t.Errorf("FindUserByID().Name = %q, want %q", user.Name, tt.want)
			}
		})
	}
}

func TestMemory_InsertMessageStampsTimes(t *testing.T) {
	m := NewMemory()
	if err := m.InsertMessage(context.Background(), Message{RoomID: "general", User: primitive.NewObjectID(), Body: "hi"}); err != nil {
		t.Fatalf("InsertMessage() unexpected error: %v", err)
	}

	msgs := m.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Messages() returned %d, want 1", len(msgs))
	}
	if msgs[0].CreatedAt.IsZero() || msgs[0].UpdatedAt.IsZero() {
		t.Error("InsertMessage() should set createdAt and updatedAt")
	}
	if msgs[0].Status {
		t.Error("InsertMessage() status should default to false")
	}
}

func TestParseID(t *testing.T) {
	a := primitive.NewObjectID()

	got, err := ParseID(a.Hex())
	if err != nil {
		t.Fatalf("ParseID() unexpected error: %v", err)
	}
	if got != a {
		t.Errorf("ParseID() = %v, want %v", got, a)
	}

	for _, bad := range []string{"", "bad", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		if _, err := ParseID(bad); !errors.Is(err, ErrNotFound) {
			t.Errorf("ParseID(%q) error = %v, want ErrNotFound", bad, err)
		}
	}
}

func TestMemory_SeedUsers(t *testing.T) {
	mem := NewMemory()
	users := mem.SeedUsers([]string{"Alice", "Bob"})

	if len(users) != 2 {
		t.Fatalf("SeedUsers() returned %d users, want 2", len(users))
	}
	for _, want := range users {
		got, err := mem.FindUserByID(context.Background(), want.ID.Hex())
		if err != nil {
			t.Fatalf("FindUserByID(%s) error = %v", want.Name, err)
		}
		if got.Name != want.Name || got.Username != strings.ToLower(want.Name) {
			t.Errorf("FindUserByID(%s) = %+v", want.Name, got)
		}
	}
}
