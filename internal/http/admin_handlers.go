package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SilGosker/SimpleSockets/internal/ws"
)

// AdminAPI exposes the hub to operators
type AdminAPI struct {
	Hub   *ws.Hub
	Kinds *ws.Registry
}

type roomResp struct {
	ID      string   `json:"id"`
	Count   int      `json:"count"`
	Clients []string `json:"clients"`
}

type sendReq struct {
	Message  string `json:"message"`
	Event    string `json:"event,omitempty"`
	ClientID string `json:"clientId,omitempty"`
}

type statsResp struct {
	Rooms       int      `json:"rooms"`
	Connections int      `json:"connections"`
	Kinds       []string `json:"kinds"`
}

// ListRooms returns every room with its client ids
func (a *AdminAPI) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := a.Hub.Rooms()
	resp := make([]roomResp, 0, len(rooms))
	for _, ri := range rooms {
		resp = append(resp, roomResp{ID: ri.ID, Count: len(ri.Clients), Clients: ri.Clients})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRoom returns one room, 404 when it has no connections
func (a *AdminAPI) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("room")
	for _, ri := range a.Hub.Rooms() {
		if ri.ID == id {
			writeJSON(w, http.StatusOK, roomResp{ID: ri.ID, Count: len(ri.Clients), Clients: ri.Clients})
			return
		}
	}
	http.Error(w, "room not found", http.StatusNotFound)
}

// CloseRoom disconnects every client of a room
func (a *AdminAPI) CloseRoom(w http.ResponseWriter, r *http.Request) {
	a.publish(w, r, ws.Command{Op: ws.OpForceLeave, RoomID: r.PathValue("room")})
}

// KickClient disconnects one client
func (a *AdminAPI) KickClient(w http.ResponseWriter, r *http.Request) {
	a.publish(w, r, ws.Command{
		Op:       ws.OpForceLeave,
		RoomID:   r.PathValue("room"),
		ClientID: r.PathValue("client"),
	})
}

// Send delivers a message or event to a room or one of its clients
func (a *AdminAPI) Send(w http.ResponseWriter, r *http.Request) {
	var req sendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	cmd := ws.Command{
		Op:       ws.OpSend,
		RoomID:   r.PathValue("room"),
		ClientID: req.ClientID,
		Message:  req.Message,
	}
	if req.Event != "" {
		cmd.Op = ws.OpSendEvent
		cmd.Event = req.Event
	}
	a.publish(w, r, cmd)
}

// Stats summarises the hub
func (a *AdminAPI) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResp{
		Rooms:       len(a.Hub.Groups()),
		Connections: a.Hub.Count(),
		Kinds:       []string{},
	}
	if a.Kinds != nil {
		for _, k := range a.Kinds.Kinds() {
			resp.Kinds = append(resp.Kinds, k.Name)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// publish routes cmd through the bus so every instance applies it
func (a *AdminAPI) publish(w http.ResponseWriter, r *http.Request, cmd ws.Command) {
	if err := a.Hub.Publish(r.Context(), cmd); err != nil {
		if errors.Is(err, ws.ErrMissingRoomID) || errors.Is(err, ws.ErrUnknownOp) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "publish failed", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
