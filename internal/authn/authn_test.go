package authn

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilGosker/SimpleSockets/pkg/auth"
)

func fixed(res Result) Authenticator {
	return AuthenticatorFunc(func(*http.Request, Result) (Result, error) { return res, nil })
}

func TestRunEmptyChainAuthenticatesWithDefaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)

	res, err := Run(r, Defaults{}, nil)
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
	assert.Equal(t, DefaultRoomID, res.RoomID)
	_, err = uuid.Parse(res.ClientID)
	assert.NoError(t, err)
}

func TestRunStopsAtFirstRejection(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	called := false
	last := AuthenticatorFunc(func(*http.Request, Result) (Result, error) {
		called = true
		return Result{Authenticated: true}, nil
	})

	res, err := Run(r, Defaults{}, []Authenticator{
		fixed(Result{Authenticated: true, RoomID: "r"}),
		fixed(Result{Authenticated: false}),
		last,
	})
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.False(t, called)
}

func TestRunPassesCurrentResultAlong(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	var seen Result
	res, err := Run(r, Defaults{}, []Authenticator{
		fixed(Result{Authenticated: true, RoomID: "room", ClientID: "me"}),
		AuthenticatorFunc(func(_ *http.Request, cur Result) (Result, error) {
			seen = cur
			return cur, nil
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Authenticated: true, RoomID: "room", ClientID: "me"}, seen)
	assert.Equal(t, seen, res)
}

func TestRunFillsOnlyEmptyIDs(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	d := Defaults{
		RoomID:   StaticRoom("fallback"),
		ClientID: func(*http.Request) string { return "anon" },
	}

	res, err := Run(r, d, []Authenticator{fixed(Result{Authenticated: true, RoomID: "mine"})})
	require.NoError(t, err)
	assert.Equal(t, "mine", res.RoomID)
	assert.Equal(t, "anon", res.ClientID)
}

func TestRunEmptyDefaultsAreErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	empty := func(*http.Request) string { return "" }

	_, err := Run(r, Defaults{RoomID: empty}, nil)
	assert.ErrorIs(t, err, ErrMissingRoomID)

	_, err = Run(r, Defaults{ClientID: empty}, nil)
	assert.ErrorIs(t, err, ErrMissingClientID)
}

func TestRunWrapsAuthenticatorErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	boom := errors.New("boom")

	_, err := Run(r, Defaults{}, []Authenticator{
		AuthenticatorFunc(func(*http.Request, Result) (Result, error) { return Result{}, boom }),
	})
	assert.ErrorIs(t, err, boom)
}

func TestToken(t *testing.T) {
	j := auth.New("secret")
	tok, err := j.Sign(auth.Claims{Room: "pinned", RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}}, time.Minute)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil)
	res, err := Run(r, Defaults{}, []Authenticator{Token(j)})
	require.NoError(t, err)
	assert.Equal(t, Result{Authenticated: true, RoomID: "pinned", ClientID: "alice"}, res)

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	res, err = Run(r, Defaults{}, []Authenticator{Token(j)})
	require.NoError(t, err)
	assert.True(t, res.Authenticated)

	r = httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil)
	res, err = Run(r, Defaults{}, []Authenticator{Token(j)})
	require.NoError(t, err)
	assert.False(t, res.Authenticated)

	other, err := auth.New("other").Sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "eve"}}, time.Minute)
	require.NoError(t, err)
	r = httptest.NewRequest(http.MethodGet, "/ws?token="+other, nil)
	res, err = Run(r, Defaults{}, []Authenticator{Token(j)})
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
}

func TestQueryRoom(t *testing.T) {
	chain := []Authenticator{QueryRoom("room")}

	res, err := Run(httptest.NewRequest(http.MethodGet, "/ws?room=lobby", nil), Defaults{}, chain)
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
	assert.Equal(t, "lobby", res.RoomID)

	res, err = Run(httptest.NewRequest(http.MethodGet, "/ws", nil), Defaults{}, chain)
	require.NoError(t, err)
	assert.False(t, res.Authenticated)

	pinned := []Authenticator{fixed(Result{Authenticated: true, RoomID: "a"}), QueryRoom("room")}
	res, err = Run(httptest.NewRequest(http.MethodGet, "/ws?room=b", nil), Defaults{}, pinned)
	require.NoError(t, err)
	assert.False(t, res.Authenticated)

	res, err = Run(httptest.NewRequest(http.MethodGet, "/ws", nil), Defaults{}, pinned)
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
	assert.Equal(t, "a", res.RoomID)
}

func TestQueryClient(t *testing.T) {
	res, err := Run(httptest.NewRequest(http.MethodGet, "/ws?client=bob", nil), Defaults{},
		[]Authenticator{QueryClient("client")})
	require.NoError(t, err)
	assert.Equal(t, "bob", res.ClientID)
}
