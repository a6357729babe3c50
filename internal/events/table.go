// Package events layers named events on top of plain text connections.
// A kind declares its events once in a Table; every connection of the kind
// dispatches through that table.
package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/SilGosker/SimpleSockets/internal/ws"
)

var (
	ErrDuplicateEvent = errors.New("events: event name registered twice")
	ErrNoAlias        = errors.New("events: handler has no event name")
	ErrNilEvent       = errors.New("events: nil handler")
)

// HandlerFunc handles one event for receiver T. Method expressions such as
// (*Chat).Typing have this shape.
type HandlerFunc[T any] func(recv T, ctx context.Context, c *ws.Conn, ev Event) error

type binding[T any] struct {
	fn      HandlerFunc[T]
	aliases []string
}

// Builder collects handlers and their event names.
type Builder[T any] struct {
	bindings []binding[T]
}

func NewBuilder[T any]() *Builder[T] { return &Builder[T]{} }

// On binds fn to every name in aliases.
func (b *Builder[T]) On(fn HandlerFunc[T], aliases ...string) *Builder[T] {
	b.bindings = append(b.bindings, binding[T]{fn: fn, aliases: aliases})
	return b
}

// Build validates the bindings and freezes them into a Table.
func (b *Builder[T]) Build() (*Table[T], error) {
	t := &Table[T]{handlers: make(map[string]HandlerFunc[T])}
	for i, bd := range b.bindings {
		if bd.fn == nil {
			return nil, fmt.Errorf("handler %d: %w", i, ErrNilEvent)
		}
		if len(bd.aliases) == 0 {
			return nil, fmt.Errorf("handler %d: %w", i, ErrNoAlias)
		}
		for _, name := range bd.aliases {
			if name == "" {
				return nil, fmt.Errorf("handler %d: %w", i, ErrNoAlias)
			}
			if _, dup := t.handlers[name]; dup {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateEvent, name)
			}
			t.handlers[name] = bd.fn
		}
	}
	return t, nil
}

// MustBuild is Build for package-level tables.
func (b *Builder[T]) MustBuild() *Table[T] {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// Table maps event names to handlers. It is immutable once built.
type Table[T any] struct {
	handlers map[string]HandlerFunc[T]
}

// Lookup finds the handler for name. Matching is exact.
func (t *Table[T]) Lookup(name string) (HandlerFunc[T], bool) {
	fn, ok := t.handlers[name]
	return fn, ok
}

// Events lists the registered names in order.
func (t *Table[T]) Events() []string {
	out := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Convention derives an event name from a handler name by stripping a
// leading "On": "OnTyping" becomes "Typing".
func Convention(method string) string {
	if rest, ok := strings.CutPrefix(method, "On"); ok && rest != "" {
		return rest
	}
	return method
}
