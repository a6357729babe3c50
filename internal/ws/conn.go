package ws

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"
)

// Handler is the application side of a connection. OnMessage is only ever
// called from the connection's receive loop, one message at a time.
type Handler interface {
	OnConnect(ctx context.Context, c *Conn) error
	OnMessage(ctx context.Context, c *Conn, msg string) error
	OnDisconnect(ctx context.Context, c *Conn)
}

// EventBinder is implemented by handlers that speak an event protocol on
// top of plain text messages.
type EventBinder interface {
	BindEvent(name, msg string) (string, error)
}

// HandlerFuncs adapts optional functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Connect    func(ctx context.Context, c *Conn) error
	Message    func(ctx context.Context, c *Conn, msg string) error
	Disconnect func(ctx context.Context, c *Conn)
}

func (h HandlerFuncs) OnConnect(ctx context.Context, c *Conn) error {
	if h.Connect == nil {
		return nil
	}
	return h.Connect(ctx, c)
}

func (h HandlerFuncs) OnMessage(ctx context.Context, c *Conn, msg string) error {
	if h.Message == nil {
		return nil
	}
	return h.Message(ctx, c, msg)
}

func (h HandlerFuncs) OnDisconnect(ctx context.Context, c *Conn) {
	if h.Disconnect != nil {
		h.Disconnect(ctx, c)
	}
}

// Conn is one client's session: identity, transport and framing state.
// Once added to a Hub, the Hub owns its membership.
type Conn struct {
	roomID   string
	clientID string
	kind     string

	handler Handler
	opts    Options
	framer  *framer
	sendMu  sync.Mutex
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	registered atomic.Bool
	receiving  atomic.Bool
	closing    atomic.Bool
	closed     atomic.Bool

	// Wired by the hub before the connection becomes visible to others.
	emit    func(ctx context.Context, sender *Conn, f Filter, msg string)
	release func(c *Conn)
}

// NewConn wraps an accepted transport. roomID and clientID are fixed for
// the lifetime of the connection.
func NewConn(t Transport, kind, roomID, clientID string, h Handler, opts Options) (*Conn, error) {
	if t == nil {
		return nil, ErrNilTransport
	}
	if h == nil {
		return nil, ErrNilHandler
	}
	if roomID == "" {
		return nil, ErrMissingRoomID
	}
	if clientID == "" {
		return nil, ErrMissingClientID
	}
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		roomID:   roomID,
		clientID: clientID,
		kind:     kind,
		handler:  h,
		opts:     opts,
		framer:   newFramer(t, opts),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func (c *Conn) RoomID() string   { return c.roomID }
func (c *Conn) ClientID() string { return c.clientID }

// Kind is the registered name of the connection type.
func (c *Conn) Kind() string { return c.kind }

// IsConnected reports whether the connection is still usable for sends.
func (c *Conn) IsConnected() bool { return !c.closed.Load() }

func (c *Conn) String() string {
	return fmt.Sprintf("%s/%s (%s)", c.roomID, c.clientID, c.kind)
}

// Broadcast sends msg to the other members of the connection's room.
func (c *Conn) Broadcast(ctx context.Context, msg string) {
	c.BroadcastTo(ctx, RoomMembers, msg)
}

// BroadcastTo sends msg to every connection selected by f.
func (c *Conn) BroadcastTo(ctx context.Context, f Filter, msg string) {
	if c.emit == nil {
		return
	}
	c.emit(ctx, c, f, msg)
}

// SendEvent binds name and msg with the handler's event codec and sends
// the result to this client.
func (c *Conn) SendEvent(ctx context.Context, name, msg string) error {
	raw, err := c.bindEvent(name, msg)
	if err != nil {
		return err
	}
	c.Send(ctx, raw)
	return nil
}

// BroadcastEvent binds name and msg with the handler's event codec and
// broadcasts the result under f.
func (c *Conn) BroadcastEvent(ctx context.Context, f Filter, name, msg string) error {
	raw, err := c.bindEvent(name, msg)
	if err != nil {
		return err
	}
	c.BroadcastTo(ctx, f, raw)
	return nil
}

func (c *Conn) bindEvent(name, msg string) (string, error) {
	b, ok := c.handler.(EventBinder)
	if !ok {
		return "", ErrNoEventCodec
	}
	return b.BindEvent(name, msg)
}

// Close runs the close sequence: disconnect hook, transport close,
// cancellation of pending reads and writes, removal from the room. Every step runs
// even when an earlier one fails. Calls after the first return at once.
func (c *Conn) Close(ctx context.Context) {
	if !c.closing.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		if c.release != nil {
			c.release(c)
		}
	}()

	if err := c.call(func() error {
		c.handler.OnDisconnect(ctx, c)
		return nil
	}); err != nil {
		c.log.Error("ws.disconnect.handler", "err", err)
	}

	c.closed.Store(true)

	// The close handshake needs the read side alive, so the transport is
	// closed before pending reads and writes are cancelled.
	if err := c.framer.t.Close(websocket.StatusNormalClosure, c.opts.ClosingStatusDescription); err != nil {
		c.log.Debug("ws.close.transport", "err", err)
	}
	c.cancel()
}

// call runs fn and turns a panic into an error.
func (c *Conn) call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ws: handler panic: %v", r)
		}
	}()
	return fn()
}
