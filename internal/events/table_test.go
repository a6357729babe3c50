package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilGosker/SimpleSockets/internal/ws"
)

type probe struct {
	calls []string
}

func (p *probe) Typing(_ context.Context, _ *ws.Conn, ev Event) error {
	p.calls = append(p.calls, "typing:"+ev.Message)
	return nil
}

func (p *probe) Message(_ context.Context, _ *ws.Conn, ev Event) error {
	p.calls = append(p.calls, "message:"+ev.Message)
	return nil
}

func TestBuildAndLookup(t *testing.T) {
	table, err := NewBuilder[*probe]().
		On((*probe).Typing, "Typing", "typing").
		On((*probe).Message, "Message").
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"Message", "Typing", "typing"}, table.Events())

	p := &probe{}
	fn, ok := table.Lookup("typing")
	require.True(t, ok)
	require.NoError(t, fn(p, context.Background(), nil, Event{Name: "typing", Message: "x"}))
	assert.Equal(t, []string{"typing:x"}, p.calls)

	_, ok = table.Lookup("TYPING")
	assert.False(t, ok)
	_, ok = table.Lookup("message")
	assert.False(t, ok)
}

func TestBuildRejects(t *testing.T) {
	_, err := NewBuilder[*probe]().
		On((*probe).Typing, "typing").
		On((*probe).Message, "typing").
		Build()
	assert.ErrorIs(t, err, ErrDuplicateEvent)

	_, err = NewBuilder[*probe]().On((*probe).Typing, "typing", "typing").Build()
	assert.ErrorIs(t, err, ErrDuplicateEvent)

	_, err = NewBuilder[*probe]().On((*probe).Typing).Build()
	assert.ErrorIs(t, err, ErrNoAlias)

	_, err = NewBuilder[*probe]().On((*probe).Typing, "").Build()
	assert.ErrorIs(t, err, ErrNoAlias)

	_, err = NewBuilder[*probe]().On(nil, "x").Build()
	assert.ErrorIs(t, err, ErrNilEvent)

	assert.Panics(t, func() {
		NewBuilder[*probe]().On((*probe).Typing).MustBuild()
	})
}

func TestConvention(t *testing.T) {
	assert.Equal(t, "Typing", Convention("OnTyping"))
	assert.Equal(t, "Message", Convention("Message"))
	assert.Equal(t, "On", Convention("On"))
	assert.Equal(t, "Online", Convention("OnOnline"))
}
