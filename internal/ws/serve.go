package ws

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Endpoint upgrades HTTP requests into chat connections.
type Endpoint struct {
	hub      *Hub
	handler  Handler
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

// NewEndpoint builds the upgrade handler. A nil verifier accepts anonymous
// connections; an empty origin list accepts any origin.
func NewEndpoint(hub *Hub, handler Handler, verifier TokenVerifier, allowedOrigins []string) *Endpoint {
	e := &Endpoint{hub: hub, handler: handler, verifier: verifier}
	e.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return e
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr
	slog.Debug("[WS] New WebSocket connection request", "from", remoteAddr)

	var userID string
	if e.verifier != nil {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token == "" {
			slog.Warn("[WS] No token provided", "from", remoteAddr)
			http.Error(w, "Unauthorized: token required", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = e.verifier.Verify(token)
		if err != nil {
			slog.Warn("[WS] Token validation failed", "from", remoteAddr, "error", err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("[WS] Failed to upgrade connection", "from", remoteAddr, "error", err)
		return
	}

	client := &Client{
		hub:     e.hub,
		handler: e.handler,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		id:      uuid.NewString(),
		userID:  userID,
	}

	if !e.hub.add(client) {
		slog.Warn("[WS] Hub is shutting down, rejecting connection", "from", remoteAddr)
		conn.Close()
		return
	}

	slog.Info("[WS] Connection upgraded", "socket", client.id, "user", userID, "from", remoteAddr)

	e.hub.track(client.WritePump)
	e.hub.track(client.ReadPump)
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if normalized, ok := normalizeOrigin(origin); ok {
			allowed[normalized] = struct{}{}
		} else {
			slog.Warn("[WS] Ignoring invalid origin in configuration", "origin", origin)
		}
	}

	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin, ok := normalizeOrigin(r.Header.Get("Origin"))
		if ok {
			if _, exists := allowed[origin]; exists {
				return true
			}
		}
		slog.Warn("[WS] Blocked connection from disallowed origin", "origin", r.Header.Get("Origin"))
		return false
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
