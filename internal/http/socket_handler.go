package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/SilGosker/SimpleSockets/internal/authn"
	"github.com/SilGosker/SimpleSockets/internal/ws"
)

// SocketHandler upgrades requests for one connection kind and hands the
// connection to the hub. ServeHTTP returns when the connection is gone.
type SocketHandler struct {
	Hub            *ws.Hub
	Kind           ws.Kind
	Defaults       authn.Defaults
	OriginPatterns []string
	Log            *slog.Logger
}

func (s *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := authn.Run(r, s.Defaults, s.Kind.Authenticators)
	if err != nil {
		s.Log.Error("ws.auth", "kind", s.Kind.Name, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !res.Authenticated {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	wc, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		s.Log.Warn("ws.accept", "kind", s.Kind.Name, "err", err)
		return
	}
	if s.Kind.Options.ReadLimit > 0 {
		wc.SetReadLimit(s.Kind.Options.ReadLimit)
	}

	conn, err := ws.NewConn(wc, s.Kind.Name, res.RoomID, res.ClientID, s.Kind.New(), s.Kind.Options)
	if err != nil {
		s.Log.Error("ws.conn", "kind", s.Kind.Name, "err", err)
		_ = wc.Close(websocket.StatusInternalError, "setup failed")
		return
	}

	if err := s.Hub.AddConnection(r.Context(), conn); err != nil {
		code := websocket.StatusInternalError
		if errors.Is(err, ws.ErrDuplicateClient) {
			code = websocket.StatusPolicyViolation
		}
		s.Log.Warn("ws.register", "conn", conn.String(), "err", err)
		_ = wc.Close(code, "rejected")
	}
}
