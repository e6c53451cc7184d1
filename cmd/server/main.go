package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog-chat/internal/api"
	"blog-chat/internal/auth"
	"blog-chat/internal/config"
	"blog-chat/internal/redis"
	"blog-chat/internal/store"
	"blog-chat/internal/telemetry"
	"blog-chat/internal/ws"
)

type gateway interface {
	ws.Store
	api.Store
}

func main() {
	cfg := config.Load()
	slog.SetDefault(cfg.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName)
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	var db gateway
	if cfg.MongoURI == "" {
		mem := store.NewMemory()
		for _, u := range mem.SeedUsers(cfg.SeedUsers) {
			slog.Info("Seeded user", "name", u.Name, "id", u.ID.Hex())
		}
		if len(cfg.SeedUsers) == 0 {
			slog.Warn("MONGO_URI not set, using in-memory store with no users; chat events will be dropped until SEED_USERS is set")
		} else {
			slog.Warn("MONGO_URI not set, using in-memory store", "users", len(cfg.SeedUsers))
		}
		db = mem
	} else {
		conn, err := store.OpenConnection(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		mongo := store.NewMongo(conn)
		if err := mongo.EnsureIndexes(ctx); err != nil {
			slog.Warn("Failed to ensure indexes", "error", err)
		}
		defer func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongo.Close(c); err != nil {
				slog.Error("Failed to close MongoDB connection", "error", err)
			}
		}()
		db = mongo
	}

	// Create hub
	hub := ws.NewHub()
	go hub.Run()

	var emitter ws.Emitter = hub
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		go func() {
			if err := redisClient.Subscribe(ctx, hub); err != nil {
				slog.Error("Redis subscription ended", "error", err)
			}
		}()
		emitter = redisClient
	}

	router := ws.NewRouter(db, emitter, cfg.StoreTimeout)

	var verifier ws.TokenVerifier
	if v := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer); v != nil {
		verifier = v
	}

	engine := api.NewRouter(api.Options{
		Store:          db,
		Socket:         ws.NewEndpoint(hub, router, verifier, cfg.AllowedOrigins),
		AllowedOrigins: cfg.AllowedOrigins,
		Timeout:        cfg.StoreTimeout,
	})
	srv := api.NewServer(":"+cfg.Port, engine)

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		slog.Error("Server error", "error", err)
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	if err := hub.Shutdown(cfg.ShutdownWait); err != nil {
		slog.Error("Hub shutdown error", "error", err)
	}

	// Other processes still own their records when sharing the backplane.
	if cfg.RedisURL == "" {
		router.Presence().OnServerOffline(shutdownCtx)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("Tracing shutdown error", "error", err)
	}
	slog.Info("Shutdown complete")
}
