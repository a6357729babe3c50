package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const claimsKey ctxKey = 1

var (
	ErrNoSubject = errors.New("auth: token has no subject")
	ErrNoToken   = errors.New("auth: no token")
)

// Claims carried by hub tokens. Room pins the bearer to one room when set.
type Claims struct {
	Room  string `json:"room,omitempty"`
	Admin bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// WithClaims adds verified claims to the context
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// FromContext returns the claims stored by WithClaims
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

// UserID extracts the subject from the context, defaults to "anon"
func UserID(ctx context.Context) string {
	c, ok := FromContext(ctx)
	if !ok || c.Subject == "" {
		return "anon"
	}
	return c.Subject
}

// JWT wraps a signing secret for issuing/verifying tokens
type JWT struct{ secret []byte }

// New creates a new JWT signer/verifier.
func New(secret string) *JWT { return &JWT{secret: []byte(secret)} }

// Verify checks a token and returns its claims
func (j *JWT) Verify(tok string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tok, &claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, err
	}
	if claims.Subject == "" {
		return Claims{}, ErrNoSubject
	}
	return claims, nil
}

// Sign creates a token for c with the given TTL
func (j *JWT) Sign(c Claims, ttl time.Duration) (string, error) {
	if c.Subject == "" {
		return "", ErrNoSubject
	}
	now := time.Now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(j.secret)
}

// FromRequest returns the bearer token of r, falling back to the token
// query parameter used by browser WebSocket clients.
func FromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer "), nil
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, nil
	}
	return "", ErrNoToken
}
