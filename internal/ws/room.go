package ws

import "sync"

type Room struct {
	id string

	mu    sync.RWMutex
	conns map[*Conn]struct{} // active connections in this room
}

// NewRoom creates a room holding first as its only member.
func NewRoom(id string, first *Conn) *Room {
	return &Room{id: id, conns: map[*Conn]struct{}{first: {}}}
}

// Join adds a connection to the room
func (r *Room) Join(c *Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// Leave removes a connection. ok is false if c was not a member.
func (r *Room) Leave(c *Conn) (remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok = r.conns[c]; ok {
		delete(r.conns, c)
	}
	return len(r.conns), ok
}

func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Members returns a snapshot of the room's connections
func (r *Room) Members() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Client returns the first connected member with clientID
func (r *Room) Client(clientID string) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.conns {
		if c.clientID == clientID && c.IsConnected() {
			return c
		}
	}
	return nil
}
