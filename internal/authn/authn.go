// Package authn decides, before the upgrade, whether a request may open a
// connection and which room and client id it gets.
package authn

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// DefaultRoomID is the room of connections whose chain assigns none.
const DefaultRoomID = "__0"

var (
	ErrMissingRoomID   = errors.New("authn: no room id after defaults")
	ErrMissingClientID = errors.New("authn: no client id after defaults")
)

// Result is the outcome of one authenticator. Empty ids mean "not decided".
type Result struct {
	Authenticated bool
	RoomID        string
	ClientID      string
}

// Authenticator inspects the upgrade request. current holds what earlier
// authenticators in the chain decided.
type Authenticator interface {
	Authenticate(r *http.Request, current Result) (Result, error)
}

type AuthenticatorFunc func(r *http.Request, current Result) (Result, error)

func (f AuthenticatorFunc) Authenticate(r *http.Request, current Result) (Result, error) {
	return f(r, current)
}

// Defaults supply ids the chain left empty. Nil functions fall back to
// DefaultRoomID and a random UUID.
type Defaults struct {
	RoomID   func(*http.Request) string
	ClientID func(*http.Request) string
}

func (d Defaults) roomID(r *http.Request) string {
	if d.RoomID == nil {
		return DefaultRoomID
	}
	return d.RoomID(r)
}

func (d Defaults) clientID(r *http.Request) string {
	if d.ClientID == nil {
		return uuid.NewString()
	}
	return d.ClientID(r)
}

// StaticRoom returns a room default that always yields id.
func StaticRoom(id string) func(*http.Request) string {
	return func(*http.Request) string { return id }
}

// Run evaluates chain in order. An empty chain authenticates. The first
// non-authenticated result stops the chain and is returned as is. On
// success, empty ids are filled from d.
func Run(r *http.Request, d Defaults, chain []Authenticator) (Result, error) {
	res := Result{Authenticated: len(chain) == 0}
	for i, a := range chain {
		next, err := a.Authenticate(r, res)
		if err != nil {
			return Result{}, fmt.Errorf("authenticator %d: %w", i, err)
		}
		if !next.Authenticated {
			return next, nil
		}
		res = next
	}

	if res.RoomID == "" {
		res.RoomID = d.roomID(r)
	}
	if res.ClientID == "" {
		res.ClientID = d.clientID(r)
	}
	if res.RoomID == "" {
		return Result{}, ErrMissingRoomID
	}
	if res.ClientID == "" {
		return Result{}, ErrMissingClientID
	}
	return res, nil
}
