package authn

import (
	"net/http"

	"github.com/SilGosker/SimpleSockets/pkg/auth"
)

// Token authenticates a signed bearer token. The subject becomes the
// client id; a room claim pins the room.
func Token(j *auth.JWT) Authenticator {
	return AuthenticatorFunc(func(r *http.Request, cur Result) (Result, error) {
		raw, err := auth.FromRequest(r)
		if err != nil {
			return Result{}, nil
		}
		claims, err := j.Verify(raw)
		if err != nil {
			return Result{}, nil
		}
		cur.Authenticated = true
		cur.ClientID = claims.Subject
		if claims.Room != "" {
			cur.RoomID = claims.Room
		}
		return cur, nil
	})
}

// QueryRoom takes the room id from the query parameter param. A room
// pinned earlier in the chain stands in for a missing parameter and must
// match a present one. Without either the request is rejected.
func QueryRoom(param string) Authenticator {
	return AuthenticatorFunc(func(r *http.Request, cur Result) (Result, error) {
		room := r.URL.Query().Get(param)
		if room == "" {
			room = cur.RoomID
		}
		if room == "" || (cur.RoomID != "" && cur.RoomID != room) {
			return Result{}, nil
		}
		cur.Authenticated = true
		cur.RoomID = room
		return cur, nil
	})
}

// QueryClient takes the client id from the query parameter param when
// present. It never rejects.
func QueryClient(param string) Authenticator {
	return AuthenticatorFunc(func(r *http.Request, cur Result) (Result, error) {
		cur.Authenticated = true
		if id := r.URL.Query().Get(param); id != "" && cur.ClientID == "" {
			cur.ClientID = id
		}
		return cur, nil
	})
}
