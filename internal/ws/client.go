package ws

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"blog-chat/internal/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max message size
	maxMessageSize = 512 * 1024 // 512 KB

	sendBufferSize = 256
)

// Session identifies the connection an event arrived on. UserID is set only
// when the connection was authenticated at upgrade time.
type Session struct {
	SocketID string
	UserID   string
}

// Handler reacts to connection lifecycle and inbound events. Calls for one
// session are never concurrent and arrive in the order the client sent them.
type Handler interface {
	OnConnect(ctx context.Context, s Session)
	Handle(ctx context.Context, s Session, frame models.Frame, ack func())
	OnDisconnect(ctx context.Context, s Session)
}

type Client struct {
	hub     *Hub
	handler Handler
	conn    *websocket.Conn
	send    chan []byte
	id      string
	userID  string
}

func (c *Client) session() Session {
	return Session{SocketID: c.id, UserID: c.userID}
}

// ReadPump dispatches inbound frames one at a time, which keeps per
// connection ordering.
func (c *Client) ReadPump() {
	ctx := c.hub.ctx
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
		c.handler.OnDisconnect(context.WithoutCancel(ctx), c.session())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.handler.OnConnect(ctx, c.session())

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("[CLIENT] Unexpected close", "socket", c.id, "error", err)
			}
			break
		}

		c.handleClientMessage(ctx, message)
	}
}

// WritePump drains the send queue to the socket and keeps the peer alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Error("[CLIENT] Failed to write message", "socket", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Error("[CLIENT] Failed to send ping", "socket", c.id, "error", err)
				return
			}
		}
	}
}

func (c *Client) handleClientMessage(ctx context.Context, message []byte) {
	var frame models.Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		slog.Error("[CLIENT] Error unmarshaling frame", "socket", c.id, "error", err)
		eventsDropped.WithLabelValues(dropMalformed).Inc()
		return
	}

	if frame.Event == "" {
		slog.Warn("[CLIENT] No 'event' field in frame", "socket", c.id)
		eventsDropped.WithLabelValues(dropMalformed).Inc()
		return
	}

	eventsReceived.WithLabelValues(frame.Event).Inc()
	c.handler.Handle(ctx, c.session(), frame, c.acker(frame.Ack))
}

// acker returns the callback that answers an inbound ack id. Frames without
// an id get a no-op.
func (c *Client) acker(id *int64) func() {
	if id == nil {
		return func() {}
	}
	payload := []byte(`{"ack":` + strconv.FormatInt(*id, 10) + `}`)
	return func() {
		if err := c.hub.sendRaw(c.id, payload); err != nil {
			slog.Warn("[CLIENT] Failed to queue ack", "socket", c.id, "ack", *id, "error", err)
		}
	}
}
