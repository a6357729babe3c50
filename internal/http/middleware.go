package httpx

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/SilGosker/SimpleSockets/internal/app"
	"github.com/SilGosker/SimpleSockets/pkg/auth"
	"github.com/SilGosker/SimpleSockets/pkg/ratelimit"
)

type Middleware struct {
	cors       *cors.Cors
	auth       *auth.JWT
	rlimit     *ratelimit.Limiter
	adminToken string
}

// NewMiddleware builds the shared middleware stack from config
func NewMiddleware(cfg app.Config, j *auth.JWT, rl *ratelimit.Limiter) *Middleware {
	return &Middleware{
		cors: cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllow,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}),
		auth:       j,
		rlimit:     rl,
		adminToken: cfg.AdminToken,
	}
}

// Wrap applies CORS + rate limiting to a handler
func (m *Middleware) Wrap(h http.Handler) http.Handler {
	return m.cors.Handler(m.rlimit.Middleware(h))
}

// Auth enforces JWT auth and adds the claims to the request context
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearer(r)
		if !ok {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		claims, err := m.auth.Verify(tok)
		if err != nil {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// Admin accepts the static operator token or a JWT with the admin claim
func (m *Middleware) Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearer(r)
		if !ok {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		if m.adminToken != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(m.adminToken)) == 1 {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.auth.Verify(tok)
		if err != nil {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		if !claims.Admin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func bearer(r *http.Request) (string, bool) {
	b := r.Header.Get("Authorization")
	if !strings.HasPrefix(b, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(b, "Bearer "), true
}
