package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SilGosker/SimpleSockets/internal/store"
	"github.com/SilGosker/SimpleSockets/pkg/auth"
)

const tokenTTL = 24 * time.Hour

// Accounts is the part of the user store the auth API needs
type Accounts interface {
	CreateUser(ctx context.Context, email, password string) (store.User, error)
	VerifyUser(ctx context.Context, email, password string) (store.User, error)
	GetUser(ctx context.Context, id string) (store.User, error)
}

type AuthAPI struct {
	DB  Accounts
	JWT *auth.JWT
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type tokenResp struct {
	Token string      `json:"token"`
	User  authUserDTO `json:"user"`
}
type authUserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin,omitempty"`
}

// Register handles user signup and returns a JWT
func (a *AuthAPI) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	// Basic validation
	if len(req.Password) < 8 || !strings.Contains(req.Email, "@") {
		http.Error(w, "invalid email or weak password", http.StatusBadRequest)
		return
	}

	u, err := a.DB.CreateUser(r.Context(), req.Email, req.Password)
	if errors.Is(err, store.ErrEmailTaken) {
		http.Error(w, "email already in use", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.issue(w, http.StatusCreated, u)
}

// Login verifies credentials and returns a JWT
func (a *AuthAPI) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	u, err := a.DB.VerifyUser(r.Context(), req.Email, req.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.issue(w, http.StatusOK, u)
}

func (a *AuthAPI) issue(w http.ResponseWriter, status int, u store.User) {
	tok, err := a.JWT.Sign(auth.Claims{
		Admin:            u.Admin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID},
	}, tokenTTL)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, tokenResp{Token: tok, User: authUserDTO{ID: u.ID, Email: u.Email, Admin: u.Admin}})
}

// RoomToken issues a short-lived socket token pinned to one room
func (a *AuthAPI) RoomToken(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	room := r.PathValue("room")
	if room == "" {
		http.Error(w, "room required", http.StatusBadRequest)
		return
	}
	claims.Room = room
	claims.Admin = false
	tok, err := a.JWT.Sign(claims, time.Hour)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok, "room": room})
}

// Me returns the authenticated user's ID
func (a *AuthAPI) Me(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if uid == "anon" || uid == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	u, err := a.DB.GetUser(r.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, authUserDTO{ID: u.ID, Email: u.Email, Admin: u.Admin})
}
