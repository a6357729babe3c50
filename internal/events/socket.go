package events

import (
	"context"

	"github.com/SilGosker/SimpleSockets/internal/ws"
)

// Connector is implemented by receivers that want the connect hook.
type Connector interface {
	OnConnect(ctx context.Context, c *ws.Conn) error
}

// Disconnector is implemented by receivers that want the disconnect hook.
type Disconnector interface {
	OnDisconnect(ctx context.Context, c *ws.Conn)
}

// Unhandler receives messages that are not a known event.
type Unhandler interface {
	OnUnhandled(ctx context.Context, c *ws.Conn, raw string) error
}

// Socket dispatches the text messages of one connection to the handlers
// of its receiver.
type Socket[T any] struct {
	recv  T
	table *Table[T]
	codec Codec
}

var (
	_ ws.Handler     = (*Socket[any])(nil)
	_ ws.EventBinder = (*Socket[any])(nil)
)

func NewSocket[T any](recv T, table *Table[T], codec Codec) *Socket[T] {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Socket[T]{recv: recv, table: table, codec: codec}
}

// Factory returns a ws.Kind constructor that pairs a fresh receiver with
// the shared table.
func Factory[T any](table *Table[T], codec Codec, newRecv func() T) func() ws.Handler {
	return func() ws.Handler { return NewSocket(newRecv(), table, codec) }
}

// Receiver returns the per-connection receiver.
func (s *Socket[T]) Receiver() T { return s.recv }

func (s *Socket[T]) OnConnect(ctx context.Context, c *ws.Conn) error {
	if h, ok := any(s.recv).(Connector); ok {
		return h.OnConnect(ctx, c)
	}
	return nil
}

func (s *Socket[T]) OnDisconnect(ctx context.Context, c *ws.Conn) {
	if h, ok := any(s.recv).(Disconnector); ok {
		h.OnDisconnect(ctx, c)
	}
}

// OnMessage decodes msg and runs the matching handler. Messages that do
// not decode or name no known event go to the Unhandler hook, if any.
func (s *Socket[T]) OnMessage(ctx context.Context, c *ws.Conn, msg string) error {
	ev, err := s.codec.Decode(msg)
	if err == nil {
		if fn, ok := s.table.Lookup(ev.Name); ok {
			return fn(s.recv, ctx, c, ev)
		}
	}
	if h, ok := any(s.recv).(Unhandler); ok {
		return h.OnUnhandled(ctx, c, msg)
	}
	return nil
}

// BindEvent encodes an outbound event with the socket's codec.
func (s *Socket[T]) BindEvent(name, msg string) (string, error) {
	return s.codec.Encode(Event{Name: name, Message: msg})
}
