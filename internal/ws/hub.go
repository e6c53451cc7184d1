package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"blog-chat/internal/models"
)

// ErrHubClosed is returned when an event is emitted after shutdown.
var ErrHubClosed = errors.New("hub closed")

// Emitter fans an envelope out to the connections it addresses.
type Emitter interface {
	Emit(env models.Envelope) error
}

type outbound struct {
	env     models.Envelope
	payload []byte
}

// Hub owns the live connections of this process. The clients map is only
// touched by the Run goroutine; everyone else talks to it over channels.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	deliver    chan outbound

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan outbound, 256),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	slog.Info("[HUB] Starting hub event loop")
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case out := <-h.deliver:
			h.fanOut(out)
		}
	}
}

// Emit queues env for delivery to the local connections it reaches.
func (h *Hub) Emit(env models.Envelope) error {
	payload, err := env.Frame()
	if err != nil {
		return err
	}
	return h.queue(outbound{env: env, payload: payload})
}

// sendRaw queues an already encoded frame for a single connection.
func (h *Hub) sendRaw(socketID string, payload []byte) error {
	return h.queue(outbound{env: models.Envelope{Target: socketID}, payload: payload})
}

func (h *Hub) queue(out outbound) error {
	// A buffered send could still win the select after shutdown.
	if h.ctx.Err() != nil {
		return ErrHubClosed
	}
	select {
	case h.deliver <- out:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	connectionsActive.Inc()

	// The socket id is the first thing a client hears.
	env, err := models.NewEnvelope(models.EventConnect, models.Connected{SocketID: client.id})
	if err == nil {
		if payload, err := env.Frame(); err == nil {
			client.send <- payload
		}
	}

	slog.Info("[HUB] Client registered", "socket", client.id, "user", client.userID, "clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	current, ok := h.clients[client.id]
	if !ok || current != client {
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	connectionsActive.Dec()

	slog.Info("[HUB] Client unregistered", "socket", client.id, "clients", len(h.clients))
}

func (h *Hub) fanOut(out outbound) {
	if out.env.Target != "" {
		if client, ok := h.clients[out.env.Target]; ok && out.env.Reaches(client.id) {
			h.push(client, out.payload)
		}
		return
	}

	for id, client := range h.clients {
		if out.env.Reaches(id) {
			h.push(client, out.payload)
		}
	}
}

func (h *Hub) push(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		// Client buffer full, disconnect
		slog.Warn("[HUB] Client buffer full, disconnecting", "socket", client.id)
		delete(h.clients, client.id)
		close(client.send)
		connectionsActive.Dec()
		deliveriesDropped.Inc()
	}
}

func (h *Hub) closeAll() {
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
		connectionsActive.Dec()
	}
	slog.Info("[HUB] All client connections closed")
}

// track runs fn on a goroutine that Shutdown waits for.
func (h *Hub) track(fn func()) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
}

// Shutdown stops the event loop, closes every connection and waits for the
// connection goroutines until timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	slog.Info("[HUB] Initiating hub shutdown")
	h.cancel()
	<-h.done

	waited := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		slog.Info("[HUB] Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		slog.Warn("[HUB] Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
