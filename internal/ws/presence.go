package ws

import (
	"context"
	"log/slog"
	"time"

	"blog-chat/internal/models"
	"blog-chat/internal/store"
)

// Store is the persistence the chat core depends on.
type Store interface {
	FindUserByID(ctx context.Context, id string) (*store.User, error)
	FindAllOnlineUsers(ctx context.Context) ([]store.OnlineUser, error)
	InsertOnlineUser(ctx context.Context, record store.OnlineUser) error
	DeleteOnlineUserBySocketID(ctx context.Context, socketID string) error
	DeleteAllOnlineUsers(ctx context.Context) error
	InsertMessage(ctx context.Context, msg store.Message) error
}

// Presence keeps the online user collection in step with connections. The
// collection is the source of truth; nothing is cached in process. Storage
// failures are logged and never block or fail the connection.
type Presence struct {
	store   Store
	emitter Emitter
	timeout time.Duration
}

func NewPresence(s Store, emitter Emitter, timeout time.Duration) *Presence {
	return &Presence{store: s, emitter: emitter, timeout: timeout}
}

// OnConnect tells the new connection about every peer already online.
func (p *Presence) OnConnect(ctx context.Context, socketID string) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	online, err := p.store.FindAllOnlineUsers(ctx)
	if err != nil {
		slog.Error("[PRESENCE] Failed to load online users", "socket", socketID, "error", err)
		return
	}

	slog.Debug("[PRESENCE] Announcing online users", "socket", socketID, "count", len(online))
	for _, record := range online {
		p.emit(models.EventAlreadyConnectedUsers, socketID, "", models.Presence{
			SocketID: record.SocketID,
			UserID:   record.UserID.Hex(),
		})
	}
}

// RegisterOnline records the pair and announces it to everyone once the
// write succeeded. A failed write is logged and not announced.
func (p *Presence) RegisterOnline(ctx context.Context, socketID, userID string) {
	oid, err := store.ParseID(userID)
	if err != nil {
		slog.Warn("[PRESENCE] Rejecting online record", "socket", socketID, "user", userID, "error", err)
		presenceWriteFailures.WithLabelValues("insert").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.store.InsertOnlineUser(ctx, store.OnlineUser{SocketID: socketID, UserID: oid}); err != nil {
		slog.Error("[PRESENCE] Failed to save online user", "socket", socketID, "user", userID, "error", err)
		presenceWriteFailures.WithLabelValues("insert").Inc()
		return
	}

	slog.Info("[PRESENCE] User online", "socket", socketID, "user", userID)
	p.emit(models.EventChangeUserStatus, "", "", models.Presence{SocketID: socketID, UserID: userID})
}

// OnDisconnect removes the socket's record and always announces the socket
// as offline, whether or not a record existed or the delete succeeded.
func (p *Presence) OnDisconnect(ctx context.Context, socketID string) {
	dctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.store.DeleteOnlineUserBySocketID(dctx, socketID); err != nil {
		slog.Error("[PRESENCE] Failed to remove online user", "socket", socketID, "error", err)
		presenceWriteFailures.WithLabelValues("delete").Inc()
	}

	slog.Info("[PRESENCE] User offline", "socket", socketID)
	p.emit(models.EventUserOffline, "", "", models.UserOffline{SocketID: socketID})
}

// OnServerOffline clears every record. Nothing is announced.
func (p *Presence) OnServerOffline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.store.DeleteAllOnlineUsers(ctx); err != nil {
		slog.Error("[PRESENCE] Failed to clear online users", "error", err)
		presenceWriteFailures.WithLabelValues("clear").Inc()
		return
	}
	slog.Info("[PRESENCE] Cleared online users")
}

func (p *Presence) emit(event, target, except string, data any) error {
	return emit(p.emitter, event, target, except, data)
}

func emit(emitter Emitter, event, target, except string, data any) error {
	env, err := models.NewEnvelope(event, data)
	if err != nil {
		slog.Error("[ROUTER] Failed to encode event", "event", event, "error", err)
		return err
	}
	env.Target = target
	env.Except = except

	if err := emitter.Emit(env); err != nil {
		slog.Error("[ROUTER] Failed to emit event", "event", event, "target", target, "error", err)
		return err
	}
	return nil
}
