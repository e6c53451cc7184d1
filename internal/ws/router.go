package ws

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"blog-chat/internal/message"
	"blog-chat/internal/models"
	"blog-chat/internal/store"

	"github.com/goccy/go-json"
)

const adminName = "Admin"

// Router handles the named events of every connection: it resolves the
// acting user, formats the payload and fans it out. Events whose user cannot
// be resolved are logged and dropped, and their ack is never sent.
type Router struct {
	store    Store
	emitter  Emitter
	presence *Presence
	format   message.Formatter
	timeout  time.Duration
}

func NewRouter(s Store, emitter Emitter, timeout time.Duration) *Router {
	return &Router{
		store:    s,
		emitter:  emitter,
		presence: NewPresence(s, emitter, timeout),
		format:   message.Formatter{Now: time.Now},
		timeout:  timeout,
	}
}

func (r *Router) Presence() *Presence {
	return r.presence
}

func (r *Router) OnConnect(ctx context.Context, s Session) {
	slog.Info("[ROUTER] New user connected", "socket", s.SocketID)

	r.presence.OnConnect(ctx, s.SocketID)
	emit(r.emitter, models.EventNewMessage, "", s.SocketID, r.format.Generate(adminName, "New User Joined Chatroom"))
	emit(r.emitter, models.EventNewMessage, s.SocketID, "", r.format.Generate(adminName, "Welcome To Chatroom"))
}

func (r *Router) OnDisconnect(ctx context.Context, s Session) {
	r.presence.OnDisconnect(ctx, s.SocketID)
}

func (r *Router) Handle(ctx context.Context, s Session, frame models.Frame, ack func()) {
	switch frame.Event {
	case models.EventCreateMessage:
		r.createMessage(ctx, s, frame, ack)

	case models.EventCreateLocationMessage:
		msg, ok := decode[models.LocationMessage](s, frame)
		if !ok {
			return
		}
		user, ok := r.lookup(ctx, s, frame.Event, msg.From)
		if !ok {
			return
		}
		emit(r.emitter, models.EventNewLocationMessage, "", "", r.format.GenerateLocation(user.Name, msg.Latitude, msg.Longitude))

	case models.EventCreatePrivateMessage:
		msg, ok := decode[models.PrivateMessage](s, frame)
		if !ok {
			return
		}
		user, ok := r.lookup(ctx, s, frame.Event, msg.From)
		if !ok {
			return
		}
		payload := r.format.GeneratePrivate(user.Name, s.SocketID, msg.Text, msg.Files)
		if err := emit(r.emitter, models.EventNewPrivateMessage, msg.To, s.SocketID, payload); err != nil {
			return
		}
		ack()

	case models.EventTypingOnPrivateMessage:
		r.privateNotice(ctx, s, frame, models.EventNewTypingOnPrivateMessage)

	case models.EventStopsTypingOnPrivateMessage:
		r.privateNotice(ctx, s, frame, models.EventNewUserStopsTyping)

	case models.EventTypingOnGroupMessage:
		r.groupNotice(ctx, s, frame, models.EventNewTypingOnGroupMessage)

	case models.EventStopsTypingOnGroupMessage:
		r.groupNotice(ctx, s, frame, models.EventNewUserStopsTyping)

	case models.EventUserOnline:
		p, ok := decode[models.Presence](s, frame)
		if !ok {
			return
		}
		if s.UserID != "" && p.UserID != s.UserID {
			slog.Warn("[ROUTER] Online user does not match token", "socket", s.SocketID, "user", p.UserID, "tokenUser", s.UserID)
			eventsDropped.WithLabelValues(dropForbidden).Inc()
			return
		}
		if p.SocketID != "" && p.SocketID != s.SocketID {
			slog.Warn("[ROUTER] Ignoring client supplied socket id", "socket", s.SocketID, "claimed", p.SocketID)
		}
		r.presence.RegisterOnline(ctx, s.SocketID, p.UserID)

	case models.EventServerOffline:
		r.presence.OnServerOffline(ctx)

	default:
		slog.Warn("[ROUTER] Unknown event", "event", frame.Event, "socket", s.SocketID)
		eventsDropped.WithLabelValues(dropUnknown).Inc()
	}
}

func (r *Router) createMessage(ctx context.Context, s Session, frame models.Frame, ack func()) {
	msg, ok := decode[models.ChatMessage](s, frame)
	if !ok {
		return
	}
	user, ok := r.lookup(ctx, s, frame.Event, msg.From)
	if !ok {
		return
	}

	if err := emit(r.emitter, models.EventNewMessage, "", "", r.format.Generate(user.Name, msg.Text)); err != nil {
		return
	}
	// The ack goes to the local hub. Behind the Redis backplane the broadcast
	// makes a round trip first, so the sender may see its ack before its own
	// newMessage. Only the emit is guaranteed to have been accepted.
	ack()

	if msg.RoomID != "" {
		r.record(ctx, msg.RoomID, user, msg.Text)
	}
}

// record stores a group message. Failures only get logged; the message has
// already been delivered.
func (r *Router) record(ctx context.Context, roomID string, user *store.User, body string) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.store.InsertMessage(ctx, store.Message{RoomID: roomID, User: user.ID, Body: body})
	if err != nil {
		slog.Error("[ROUTER] Failed to record message", "room", roomID, "user", user.ID.Hex(), "error", err)
	}
}

func (r *Router) groupNotice(ctx context.Context, s Session, frame models.Frame, event string) {
	msg, ok := decode[models.ChatMessage](s, frame)
	if !ok {
		return
	}
	user, ok := r.lookup(ctx, s, frame.Event, msg.From)
	if !ok {
		return
	}
	emit(r.emitter, event, "", "", r.format.Generate(user.Name, msg.Text))
}

func (r *Router) privateNotice(ctx context.Context, s Session, frame models.Frame, event string) {
	msg, ok := decode[models.PrivateMessage](s, frame)
	if !ok {
		return
	}
	user, ok := r.lookup(ctx, s, frame.Event, msg.From)
	if !ok {
		return
	}
	emit(r.emitter, event, msg.To, s.SocketID, r.format.GeneratePrivate(user.Name, s.SocketID, msg.Text, nil))
}

// lookup resolves the acting user. An authenticated connection may only act
// as its own user.
func (r *Router) lookup(ctx context.Context, s Session, event, from string) (*store.User, bool) {
	if s.UserID != "" && from != s.UserID {
		slog.Warn("[ROUTER] Sender does not match token", "event", event, "socket", s.SocketID, "from", from, "tokenUser", s.UserID)
		eventsDropped.WithLabelValues(dropForbidden).Inc()
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	user, err := r.store.FindUserByID(ctx, from)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("[ROUTER] User Not Found", "event", event, "socket", s.SocketID, "from", from)
		eventsDropped.WithLabelValues(dropUserNotFound).Inc()
		return nil, false
	}
	if err != nil {
		slog.Error("[ROUTER] User lookup failed", "event", event, "socket", s.SocketID, "from", from, "error", err)
		eventsDropped.WithLabelValues(dropLookupFailed).Inc()
		return nil, false
	}
	return user, true
}

type validator interface {
	Validate() error
}

func decode[T validator](s Session, frame models.Frame) (T, bool) {
	var v T
	if err := json.Unmarshal(frame.Data, &v); err != nil {
		slog.Warn("[ROUTER] Malformed payload", "event", frame.Event, "socket", s.SocketID, "error", err)
		eventsDropped.WithLabelValues(dropMalformed).Inc()
		return v, false
	}
	if err := v.Validate(); err != nil {
		slog.Warn("[ROUTER] Invalid payload", "event", frame.Event, "socket", s.SocketID, "error", err)
		eventsDropped.WithLabelValues(dropMalformed).Inc()
		return v, false
	}
	return v, true
}
