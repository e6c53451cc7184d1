// Package api mounts the HTTP surface: the article listing, the chat route
// group with the socket endpoint, health and metrics.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"blog-chat/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Store is the read side the HTTP routes need.
type Store interface {
	FindArticles(ctx context.Context) ([]store.Article, error)
	FindAllOnlineUsers(ctx context.Context) ([]store.OnlineUser, error)
}

type Options struct {
	Store          Store
	Socket         http.Handler
	AllowedOrigins []string
	Timeout        time.Duration
}

// NewRouter builds the gin engine.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	h := &handlers{store: opts.Store, timeout: opts.Timeout}

	router.GET("/", h.listArticles)
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chat := router.Group("/chat")
	{
		chat.GET("/ws", gin.WrapH(opts.Socket))
		chat.GET("/online", h.listOnline)
	}

	return router
}

// NewServer wraps the engine with tracing and the server timeouts.
func NewServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
}

type handlers struct {
	store   Store
	timeout time.Duration
}

func (h *handlers) listArticles(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	articles, err := h.store.FindArticles(ctx)
	if err != nil {
		slog.Error("[API] Failed to load articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load articles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":    "Articles",
		"articles": articles,
	})
}

type onlineUser struct {
	SocketID string `json:"socketId"`
	UserID   string `json:"userId"`
}

func (h *handlers) listOnline(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	records, err := h.store.FindAllOnlineUsers(ctx)
	if err != nil {
		slog.Error("[API] Failed to load online users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load online users"})
		return
	}

	users := make([]onlineUser, 0, len(records))
	for _, r := range records {
		users = append(users, onlineUser{SocketID: r.SocketID, UserID: r.UserID.Hex()})
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
