// Package chat holds the connection kinds served by the binary.
package chat

import (
	"context"
	"fmt"

	"github.com/SilGosker/SimpleSockets/internal/authn"
	"github.com/SilGosker/SimpleSockets/internal/events"
	"github.com/SilGosker/SimpleSockets/internal/ws"
)

// Plain relays every text message to the rest of the room.
func Plain() ws.Handler {
	return ws.HandlerFuncs{
		Connect: func(ctx context.Context, c *ws.Conn) error {
			c.BroadcastTo(ctx, ws.EqualRoomID,
				fmt.Sprintf("Welcome %s. You are currently in room '%s'", c.ClientID(), c.RoomID()))
			return nil
		},
		Message: func(ctx context.Context, c *ws.Conn, msg string) error {
			c.Broadcast(ctx, msg)
			return nil
		},
	}
}

// Chat is the receiver of the event kinds. One per connection.
type Chat struct{}

// Typing tells the room that the sender is typing.
func (ch *Chat) Typing(ctx context.Context, c *ws.Conn, ev events.Event) error {
	return c.BroadcastEvent(ctx, ws.RoomMembers, "typing", c.ClientID())
}

// Message relays a chat line to the room.
func (ch *Chat) Message(ctx context.Context, c *ws.Conn, ev events.Event) error {
	if ev.Message == "" {
		return nil
	}
	return c.BroadcastEvent(ctx, ws.RoomMembers, "message", ev.Message)
}

func (ch *Chat) OnConnect(ctx context.Context, c *ws.Conn) error {
	return c.BroadcastEvent(ctx, ws.RoomMembers, "joined", c.ClientID())
}

func (ch *Chat) OnDisconnect(ctx context.Context, c *ws.Conn) {
	_ = c.BroadcastEvent(ctx, ws.RoomMembers, "left", c.ClientID())
}

// OnUnhandled answers the sender with an error event.
func (ch *Chat) OnUnhandled(ctx context.Context, c *ws.Conn, raw string) error {
	return c.SendEvent(ctx, "error", "unknown event")
}

// Table is shared by every event chat connection.
var Table = events.NewBuilder[*Chat]().
	On((*Chat).Typing, events.Convention("OnTyping"), "typing").
	On((*Chat).Message, events.Convention("OnMessage"), "message").
	MustBuild()

// Paths of the kinds installed by Register.
const (
	PlainPath = "/ws/chat"
	EventPath = "/ws/events"
	XMLPath   = "/ws/xml"
)

// Register installs the chat kinds with shared framing options. The plain
// chat runs the open chain, the event chats the gated one.
func Register(reg *ws.Registry, opts ws.Options, open, gated []authn.Authenticator) error {
	kinds := []ws.Kind{
		{Name: "chat", Path: PlainPath, New: Plain, Authenticators: open},
		{Name: "events", Path: EventPath, New: events.Factory(Table, events.JSONCodec{}, newChat), Authenticators: gated},
		{Name: "xml", Path: XMLPath, New: events.Factory(Table, events.XMLCodec{}, newChat), Authenticators: gated},
	}
	for _, k := range kinds {
		k.Options = opts
		if err := reg.Register(k); err != nil {
			return err
		}
	}
	return nil
}

func newChat() *Chat { return &Chat{} }
