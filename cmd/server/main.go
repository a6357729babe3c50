package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/SilGosker/SimpleSockets/internal/app"
	authn "github.com/SilGosker/SimpleSockets/internal/authn"
	chat "github.com/SilGosker/SimpleSockets/internal/chat"
	httpx "github.com/SilGosker/SimpleSockets/internal/http"
	store "github.com/SilGosker/SimpleSockets/internal/store"
	ws "github.com/SilGosker/SimpleSockets/internal/ws"
	"github.com/SilGosker/SimpleSockets/pkg/auth"
	"github.com/SilGosker/SimpleSockets/pkg/ratelimit"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)
	logger.Info("config", "values", cfg.Summary())

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts, err := cfg.SocketOptions()
	if err != nil {
		logger.Error("config.socket", "err", err)
		log.Fatal(err)
	}
	j := auth.New(cfg.JWTSecret)

	var checks []func(context.Context) error
	deps := httpx.Deps{JWT: j}

	// Postgres connection + migrations (optional)
	if cfg.PGURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.PGURL, cfg.PGMaxConn, logger)
		if err != nil {
			logger.Error("postgres connect", "err", err)
			log.Fatal(err)
		}
		defer pg.Close()
		if err := store.RunMigrations(ctx, pg, logger); err != nil {
			logger.Error("migrations", "err", err)
			log.Fatal(err)
		}
		deps.Accounts = pg
		checks = append(checks, pg.Ping)
	}

	// Redis bus for operator commands across instances (optional)
	var bus *ws.RedisBus
	if cfg.RedisAddr != "" {
		bus, err = ws.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisDB, logger)
		if err != nil {
			logger.Error("redis connect", "err", err)
			log.Fatal(err)
		}
		defer bus.Close()
		checks = append(checks, bus.Ping)
	}

	// Connection kinds: anonymous plain chat, token-gated event chats
	kinds := ws.NewRegistry()
	if err := chat.Register(kinds, opts, nil, []authn.Authenticator{
		authn.Token(j),
		authn.QueryRoom("room"),
	}); err != nil {
		logger.Error("kinds", "err", err)
		log.Fatal(err)
	}

	// WebSocket hub
	hub := ws.NewHub(logger, bus, ws.HubOptions{UniqueClients: cfg.WSUniqueClients})
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx, time.Minute)

	deps.Hub = hub
	deps.Kinds = kinds
	deps.Limiter = limiter
	deps.Ready = func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	// HTTP + WS router
	router := httpx.NewRouter(cfg, logger, deps)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// Hijacked sockets are not tracked by the server; the hub closes them.
	<-hubDone
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
