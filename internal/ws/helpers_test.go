package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"blog-chat/internal/message"
	"blog-chat/internal/models"
	"blog-chat/internal/store"

	"github.com/goccy/go-json"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// recorder is an Emitter that keeps everything it is given.
type recorder struct {
	mu   sync.Mutex
	envs []models.Envelope
	err  error
}

func (r *recorder) Emit(env models.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.envs = append(r.envs, env)
	return nil
}

func (r *recorder) events() []models.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.Envelope(nil), r.envs...)
}

func (r *recorder) named(event string) []models.Envelope {
	var out []models.Envelope
	for _, env := range r.events() {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

// flakyStore fails the operations it is told to.
type flakyStore struct {
	*store.Memory
	failFind   bool
	failInsert bool
	failDelete bool
}

var errStorage = errors.New("storage unavailable")

func (f *flakyStore) FindUserByID(ctx context.Context, id string) (*store.User, error) {
	if f.failFind {
		return nil, errStorage
	}
	return f.Memory.FindUserByID(ctx, id)
}

func (f *flakyStore) InsertOnlineUser(ctx context.Context, record store.OnlineUser) error {
	if f.failInsert {
		return errStorage
	}
	return f.Memory.InsertOnlineUser(ctx, record)
}

func (f *flakyStore) DeleteOnlineUserBySocketID(ctx context.Context, socketID string) error {
	if f.failDelete {
		return errStorage
	}
	return f.Memory.DeleteOnlineUserBySocketID(ctx, socketID)
}

func newTestRouter(s Store, emitter Emitter) *Router {
	r := NewRouter(s, emitter, time.Second)
	r.format = message.Formatter{Now: func() time.Time { return fixedNow }}
	return r
}

func frame(t *testing.T, event string, data any) models.Frame {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	return models.Frame{Event: event, Data: raw}
}

func decodeData[T any](t *testing.T, env models.Envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode %s data: %v", env.Event, err)
	}
	return v
}

type ackCounter struct {
	mu sync.Mutex
	n  int
}

func (a *ackCounter) fn() func() {
	return func() {
		a.mu.Lock()
		a.n++
		a.mu.Unlock()
	}
}

func (a *ackCounter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}
