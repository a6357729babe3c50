package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler() Handler { return HandlerFuncs{} }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Kind{Name: "chat", Path: "/ws/chat", New: newHandler}))
	require.NoError(t, r.Register(Kind{Name: "events", Path: "/ws/events", New: newHandler}))

	k, ok := r.Lookup("/ws/chat")
	require.True(t, ok)
	assert.Equal(t, "chat", k.Name)
	assert.Equal(t, DefaultBufferSize, k.Options.SendBufferSize)

	_, ok = r.Lookup("/nope")
	assert.False(t, ok)

	kinds := r.Kinds()
	require.Len(t, kinds, 2)
	assert.Equal(t, "/ws/chat", kinds[0].Path)
	assert.Equal(t, "/ws/events", kinds[1].Path)
}

func TestRegistryRejects(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Kind{Name: "chat", Path: "/ws/chat", New: newHandler}))

	tests := []struct {
		name string
		kind Kind
		want error
	}{
		{"empty name", Kind{Path: "/x", New: newHandler}, ErrInvalidKind},
		{"relative path", Kind{Name: "x", Path: "x", New: newHandler}, ErrInvalidKind},
		{"no constructor", Kind{Name: "x", Path: "/x"}, ErrInvalidKind},
		{"duplicate path", Kind{Name: "other", Path: "/ws/chat", New: newHandler}, ErrDuplicatePath},
		{"duplicate name", Kind{Name: "chat", Path: "/other", New: newHandler}, ErrDuplicateKind},
		{"small buffer", Kind{Name: "x", Path: "/x", New: newHandler, Options: Options{SendBufferSize: 1}}, ErrBufferTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.Register(tt.kind), tt.want)
		})
	}
	assert.Len(t, r.Kinds(), 1)
	assert.Panics(t, func() { r.MustRegister(Kind{Name: "chat", Path: "/ws/chat", New: newHandler}) })
}
