package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/SilGosker/SimpleSockets/internal/app"
	"github.com/SilGosker/SimpleSockets/internal/authn"
	"github.com/SilGosker/SimpleSockets/internal/ws"
	"github.com/SilGosker/SimpleSockets/pkg/auth"
	"github.com/SilGosker/SimpleSockets/pkg/metrics"
	"github.com/SilGosker/SimpleSockets/pkg/ratelimit"
)

// Deps are the components the router serves
type Deps struct {
	Hub   *ws.Hub
	Kinds *ws.Registry
	JWT   *auth.JWT

	// Accounts backs the /api/auth endpoints; nil leaves them out.
	Accounts Accounts

	Limiter *ratelimit.Limiter

	// Ready reports whether backing services answer; nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, d Deps) http.Handler {
	if d.Limiter == nil {
		d.Limiter = ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	mw := NewMiddleware(cfg, d.JWT, d.Limiter)
	admin := &AdminAPI{Hub: d.Hub, Kinds: d.Kinds}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				logger.Warn("server.unready", "err", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	}))
	mux.Handle("/metrics", metrics.Handler())

	// One WebSocket endpoint per registered kind
	defaults := authn.Defaults{}
	if cfg.WSDefaultRoom != "" {
		defaults.RoomID = authn.StaticRoom(cfg.WSDefaultRoom)
	}
	for _, k := range d.Kinds.Kinds() {
		mux.Handle(k.Path, &SocketHandler{
			Hub:            d.Hub,
			Kind:           k,
			Defaults:       defaults,
			OriginPatterns: originHosts(cfg.CORSAllow),
			Log:            logger,
		})
	}

	// Auth endpoints
	if d.Accounts != nil {
		authAPI := &AuthAPI{DB: d.Accounts, JWT: d.JWT}
		mux.Handle("POST /api/auth/register", http.HandlerFunc(authAPI.Register))
		mux.Handle("POST /api/auth/login", http.HandlerFunc(authAPI.Login))
		mux.Handle("GET /api/auth/me", mw.Auth(http.HandlerFunc(authAPI.Me)))
		mux.Handle("POST /api/auth/rooms/{room}/token", mw.Auth(http.HandlerFunc(authAPI.RoomToken)))
	}

	// Operator endpoints
	mux.Handle("GET /api/rooms", mw.Admin(http.HandlerFunc(admin.ListRooms)))
	mux.Handle("GET /api/rooms/{room}", mw.Admin(http.HandlerFunc(admin.GetRoom)))
	mux.Handle("DELETE /api/rooms/{room}", mw.Admin(http.HandlerFunc(admin.CloseRoom)))
	mux.Handle("DELETE /api/rooms/{room}/clients/{client}", mw.Admin(http.HandlerFunc(admin.KickClient)))
	mux.Handle("POST /api/rooms/{room}/messages", mw.Admin(http.HandlerFunc(admin.Send)))
	mux.Handle("GET /api/stats", mw.Admin(http.HandlerFunc(admin.Stats)))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}

// originHosts turns CORS origins into the host patterns the websocket
// acceptor matches against.
func originHosts(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
