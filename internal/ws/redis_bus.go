package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Command operations carried on the bus.
const (
	OpSend       = "send"
	OpSendEvent  = "send_event"
	OpForceLeave = "force_leave"
)

var ErrUnknownOp = errors.New("ws: unknown bus command")

// Command is an operator instruction for the connections of one room,
// published so that every server instance applies it to its own clients.
type Command struct {
	Op       string `json:"op"`
	RoomID   string `json:"roomId"`
	ClientID string `json:"clientId,omitempty"`
	Event    string `json:"event,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (c Command) validate() error {
	if c.RoomID == "" {
		return ErrMissingRoomID
	}
	switch c.Op {
	case OpSend, OpForceLeave:
		return nil
	case OpSendEvent:
		if c.Event == "" {
			return errors.New("ws: send_event requires an event name")
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownOp, c.Op)
}

type RedisBus struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewRedisBus connects to redis and verifies connectivity
func NewRedisBus(ctx context.Context, addr string, db int, log *slog.Logger) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &RedisBus{rdb: rdb, log: log}, nil
}

// Publish sends a command on the channel of its room
func (b *RedisBus) Publish(ctx context.Context, cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel(cmd.RoomID), raw).Err()
}

// Subscribe listens to all room channels and invokes fn for each valid
// command until ctx is done. It returns once the subscription is torn down.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(Command)) error {
	pubsub := b.rdb.PSubscribe(ctx, channel("*"))
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading messages.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var cmd Command
			if err := json.Unmarshal([]byte(msg.Payload), &cmd); err != nil {
				b.log.Warn("bus.decode", "channel", msg.Channel, "err", err)
				continue
			}
			// Commands without a room take it from their channel.
			if room := strings.TrimPrefix(msg.Channel, channelPrefix); cmd.RoomID == "" {
				cmd.RoomID = room
			}
			if err := cmd.validate(); err != nil {
				b.log.Warn("bus.invalid", "channel", msg.Channel, "err", err)
				continue
			}
			fn(cmd)
		}
	}
}

// Ping reports whether redis is reachable
func (b *RedisBus) Ping(ctx context.Context) error { return b.rdb.Ping(ctx).Err() }

// Close shuts down the redis connection
func (b *RedisBus) Close() { _ = b.rdb.Close() }

const channelPrefix = "roomhub:cmd:"

// channel namespacing for room pub/sub
func channel(roomID string) string { return channelPrefix + roomID }

// Apply runs cmd against the local connections.
func (h *Hub) Apply(ctx context.Context, cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	switch cmd.Op {
	case OpSend:
		if cmd.ClientID != "" {
			h.SendToClient(ctx, cmd.RoomID, cmd.ClientID, cmd.Message)
			return nil
		}
		h.SendToRoom(ctx, cmd.RoomID, cmd.Message)
	case OpSendEvent:
		if cmd.ClientID != "" {
			_, err := h.SendEventToClient(ctx, cmd.RoomID, cmd.ClientID, cmd.Event, cmd.Message)
			if errors.Is(err, ErrNoEventCodec) {
				return nil
			}
			return err
		}
		h.SendEventToRoom(ctx, cmd.RoomID, cmd.Event, cmd.Message)
	case OpForceLeave:
		if cmd.ClientID != "" {
			h.ForceLeaveClient(ctx, cmd.RoomID, cmd.ClientID)
			return nil
		}
		h.ForceLeave(ctx, cmd.RoomID)
	}
	return nil
}

// Publish sends cmd through the bus when one is configured, otherwise it
// applies it locally.
func (h *Hub) Publish(ctx context.Context, cmd Command) error {
	if h.bus == nil {
		return h.Apply(ctx, cmd)
	}
	return h.bus.Publish(ctx, cmd)
}
