package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SilGosker/SimpleSockets/pkg/metrics"
)

// HubOptions tune registration policy.
type HubOptions struct {
	// UniqueClients rejects a second connection with the same client id in
	// one room. Client ids are advisory when false.
	UniqueClients bool
}

// Hub is the registry of rooms. It is the only component that changes
// room membership.
type Hub struct {
	log  *slog.Logger
	bus  *RedisBus
	opts HubOptions

	mu    sync.RWMutex
	rooms map[string]*Room // non-empty rooms by id

	// resubscribe backoff bounds
	retryMin, retryMax time.Duration
}

// NewHub sets up the hub; bus may be nil.
func NewHub(logger *slog.Logger, bus *RedisBus, opts HubOptions) *Hub {
	return &Hub{
		log:      logger,
		bus:      bus,
		opts:     opts,
		rooms:    map[string]*Room{},
		retryMin: 250 * time.Millisecond,
		retryMax: 30 * time.Second,
	}
}

// Run applies operator commands from the bus until ctx is done, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	if h.bus != nil {
		go h.consume(ctx)
	}
	<-ctx.Done()
	h.Shutdown(context.WithoutCancel(ctx))
}

// consume keeps a bus subscription alive until ctx is done. A lost
// subscription is retried with exponential backoff; a subscription that
// lived longer than retryMax resets the delay.
func (h *Hub) consume(ctx context.Context) {
	delay := h.retryMin
	for {
		started := time.Now()
		err := h.bus.Subscribe(ctx, func(cmd Command) {
			if err := h.Apply(ctx, cmd); err != nil {
				h.log.Warn("bus.command", "op", cmd.Op, "room", cmd.RoomID, "err", err)
			}
		})
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > h.retryMax {
			delay = h.retryMin
		}
		h.log.Error("bus.subscribe", "err", err, "retry_in", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		delay = min(delay*2, h.retryMax)
	}
}

// AddConnection registers c in its room, runs its connect hook and then
// its receive loop. It returns when the connection is gone. A connection
// that is already closed is ignored.
func (h *Hub) AddConnection(ctx context.Context, c *Conn) error {
	if !c.IsConnected() {
		return nil
	}
	if !c.registered.CompareAndSwap(false, true) {
		return ErrAlreadyRegistered
	}

	c.log = h.log.With("room", c.roomID, "client", c.clientID, "kind", c.kind)
	c.emit = h.BroadCast
	c.release = h.RemoveConnection

	created, err := h.join(c)
	if err != nil {
		// Never joined, so there is nothing to tear down beyond the handle.
		c.closing.Store(true)
		c.closed.Store(true)
		c.cancel()
		return err
	}
	observeJoin(c, created)
	c.log.Info("ws.join", "new_room", created)

	// Cancelling the owner unwinds the receive loop into the close sequence.
	stop := context.AfterFunc(ctx, c.cancel)
	defer stop()

	if err := c.call(func() error { return c.handler.OnConnect(c.ctx, c) }); err != nil {
		c.log.Warn("ws.connect.handler", "err", err)
		c.Close(context.WithoutCancel(ctx))
		return nil
	}
	go c.keepalive(c.ctx)
	c.receive(c.ctx)
	return nil
}

func (h *Hub) join(c *Conn) (created bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm := h.rooms[c.roomID]
	if rm == nil {
		h.rooms[c.roomID] = NewRoom(c.roomID, c)
		return true, nil
	}
	if h.opts.UniqueClients && rm.Client(c.clientID) != nil {
		return false, fmt.Errorf("%s/%s: %w", c.roomID, c.clientID, ErrDuplicateClient)
	}
	rm.Join(c)
	return false, nil
}

// RemoveConnection drops c from its room and deletes the room when it
// becomes empty. Removing an absent connection is a no-op.
func (h *Hub) RemoveConnection(c *Conn) {
	h.mu.Lock()
	rm := h.rooms[c.roomID]
	if rm == nil {
		h.mu.Unlock()
		return
	}
	remaining, ok := rm.Leave(c)
	deleted := ok && remaining == 0
	if deleted {
		delete(h.rooms, c.roomID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	observeLeave(c, deleted)
	c.log.Info("ws.leave", "room_deleted", deleted)
}

// BroadCast sends msg to the connections selected by f relative to
// sender. Recipients are written to concurrently; one failing recipient
// does not affect the others.
func (h *Hub) BroadCast(ctx context.Context, sender *Conn, f Filter, msg string) {
	if sender == nil || msg == "" {
		return
	}
	recipients := Resolve(sender, f, h.snapshot(sender, f))
	metrics.BroadcastFanout.Observe(float64(len(recipients)))
	h.log.Debug("ws.broadcast", "room", sender.roomID, "client", sender.clientID,
		"filter", f.String(), "recipients", len(recipients))

	fanout(recipients, func(c *Conn) { c.Send(ctx, msg) })
}

// snapshot copies the part of the population a broadcast under f can reach.
func (h *Hub) snapshot(sender *Conn, f Filter) Population {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if f.Has(EqualRoomID) {
		rm := h.rooms[sender.roomID]
		if rm == nil {
			return Population{}
		}
		return Population{rm.id: rm.Members()}
	}
	pop := make(Population, len(h.rooms))
	for id, rm := range h.rooms {
		pop[id] = rm.Members()
	}
	return pop
}

func fanout(conns []*Conn, fn func(c *Conn)) {
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			fn(c)
		}(c)
	}
	wg.Wait()
}

func (h *Hub) room(roomID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomID]
}

func (h *Hub) members(roomID string) []*Conn {
	if rm := h.room(roomID); rm != nil {
		return rm.Members()
	}
	return nil
}

func (h *Hub) client(roomID, clientID string) *Conn {
	if rm := h.room(roomID); rm != nil {
		return rm.Client(clientID)
	}
	return nil
}

// Any reports whether at least one room exists.
func (h *Hub) Any() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms) > 0
}

// AnyRoom reports whether roomID has at least one connection.
func (h *Hub) AnyRoom(roomID string) bool { return h.room(roomID) != nil }

// AnyClient reports whether clientID is connected in roomID.
func (h *Hub) AnyClient(roomID, clientID string) bool { return h.client(roomID, clientID) != nil }

// Count returns the number of connections on the server.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, rm := range h.rooms {
		n += rm.Len()
	}
	return n
}

// CountRoom returns the number of connections in roomID.
func (h *Hub) CountRoom(roomID string) int {
	if rm := h.room(roomID); rm != nil {
		return rm.Len()
	}
	return 0
}

// ForceLeave closes every connection in roomID.
func (h *Hub) ForceLeave(ctx context.Context, roomID string) {
	fanout(h.members(roomID), func(c *Conn) { c.Close(ctx) })
}

// ForceLeaveClient closes the connection of clientID in roomID.
func (h *Hub) ForceLeaveClient(ctx context.Context, roomID, clientID string) bool {
	c := h.client(roomID, clientID)
	if c == nil {
		return false
	}
	c.Close(ctx)
	return true
}

// SendToRoom writes msg to every connection in roomID.
func (h *Hub) SendToRoom(ctx context.Context, roomID, msg string) {
	fanout(h.members(roomID), func(c *Conn) { c.Send(ctx, msg) })
}

// SendToClient writes msg to clientID in roomID.
func (h *Hub) SendToClient(ctx context.Context, roomID, clientID, msg string) bool {
	c := h.client(roomID, clientID)
	if c == nil {
		return false
	}
	c.Send(ctx, msg)
	return true
}

// SendEventToRoom sends an event to every connection in roomID whose
// handler has an event codec. Others are skipped.
func (h *Hub) SendEventToRoom(ctx context.Context, roomID, event, msg string) {
	fanout(h.members(roomID), func(c *Conn) {
		if err := c.SendEvent(ctx, event, msg); err != nil && !errors.Is(err, ErrNoEventCodec) {
			c.log.Warn("ws.event.bind", "event", event, "err", err)
		}
	})
}

// SendEventToClient sends an event to clientID in roomID.
func (h *Hub) SendEventToClient(ctx context.Context, roomID, clientID, event, msg string) (bool, error) {
	c := h.client(roomID, clientID)
	if c == nil {
		return false, nil
	}
	return true, c.SendEvent(ctx, event, msg)
}

// Groups returns the connections of every room keyed by room id.
func (h *Hub) Groups() map[string][]*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string][]*Conn, len(h.rooms))
	for id, rm := range h.rooms {
		out[id] = rm.Members()
	}
	return out
}

// RoomInfo describes one room for operators.
type RoomInfo struct {
	ID      string   `json:"id"`
	Clients []string `json:"clients"`
}

// Rooms lists rooms and their client ids, sorted by room id.
func (h *Hub) Rooms() []RoomInfo {
	groups := h.Groups()
	out := make([]RoomInfo, 0, len(groups))
	for id, conns := range groups {
		ri := RoomInfo{ID: id, Clients: make([]string, 0, len(conns))}
		for _, c := range conns {
			ri.Clients = append(ri.Clients, c.clientID)
		}
		sort.Strings(ri.Clients)
		out = append(out, ri)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown closes every connection on the server.
func (h *Hub) Shutdown(ctx context.Context) {
	var all []*Conn
	for _, conns := range h.Groups() {
		all = append(all, conns...)
	}
	fanout(all, func(c *Conn) { c.Close(ctx) })
	h.log.Info("ws.shutdown", "closed", len(all))
}
