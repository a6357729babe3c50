package ws

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

type inbound struct {
	typ websocket.MessageType
	r   io.Reader
}

// fakeTransport is an in-memory Transport. Inbound messages are queued
// with push; outbound messages are recorded frame by frame.
type fakeTransport struct {
	in     chan inbound
	closed chan struct{}

	mu        sync.Mutex
	messages  [][][]byte // frames per outbound message
	closes    int
	code      websocket.StatusCode
	reason    string
	failWrite error
	stalled   bool // writes block until their context ends
	deaf      bool // pings are never answered
	pings     int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan inbound, 16), closed: make(chan struct{})}
}

func (t *fakeTransport) push(msg string) {
	t.in <- inbound{typ: websocket.MessageText, r: bytes.NewReader([]byte(msg))}
}

func (t *fakeTransport) pushReader(typ websocket.MessageType, r io.Reader) {
	t.in <- inbound{typ: typ, r: r}
}

func (t *fakeTransport) Reader(ctx context.Context) (websocket.MessageType, io.Reader, error) {
	select {
	case m := <-t.in:
		return m.typ, m.r, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	case <-t.closed:
		return 0, nil, net.ErrClosed
	}
}

func (t *fakeTransport) Writer(ctx context.Context, typ websocket.MessageType) (io.WriteCloser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWrite != nil {
		return nil, t.failWrite
	}
	select {
	case <-t.closed:
		return nil, net.ErrClosed
	default:
	}
	return &fakeWriter{t: t, ctx: ctx, stalled: t.stalled}, nil
}

func (t *fakeTransport) Ping(ctx context.Context) error {
	t.mu.Lock()
	t.pings++
	deaf := t.deaf
	t.mu.Unlock()
	if !deaf {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (t *fakeTransport) pingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pings
}

func (t *fakeTransport) Close(code websocket.StatusCode, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closes++
	if t.closes > 1 {
		return errors.New("already closed")
	}
	t.code, t.reason = code, reason
	close(t.closed)
	return nil
}

func (t *fakeTransport) sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.messages))
	for _, frames := range t.messages {
		out = append(out, string(bytes.Join(frames, nil)))
	}
	return out
}

func (t *fakeTransport) frames(i int) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messages[i]
}

func (t *fakeTransport) closeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

type fakeWriter struct {
	t       *fakeTransport
	ctx     context.Context
	stalled bool
	frames  [][]byte
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	if w.stalled {
		<-w.ctx.Done()
		return 0, w.ctx.Err()
	}
	w.frames = append(w.frames, append([]byte(nil), p...))
	return len(p), nil
}

func (w *fakeWriter) Close() error {
	w.t.mu.Lock()
	w.t.messages = append(w.t.messages, w.frames)
	w.t.mu.Unlock()
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub() *Hub {
	return NewHub(testLogger(), nil, HubOptions{})
}

// join creates a connection and runs it on h until the test ends.
func join(t *testing.T, h *Hub, kind, room, client string, handler Handler) (*Conn, *fakeTransport) {
	t.Helper()
	return joinWith(t, h, newFakeTransport(), kind, room, client, handler, Options{})
}

// joinWith is join over a prepared transport and options.
func joinWith(t *testing.T, h *Hub, tr *fakeTransport, kind, room, client string, handler Handler, opts Options) (*Conn, *fakeTransport) {
	t.Helper()
	c, err := NewConn(tr, kind, room, client, handler, opts)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.AddConnection(context.Background(), c)
	}()
	t.Cleanup(func() {
		c.Close(context.Background())
		<-done
	})

	require.Eventually(t, func() bool { return h.AnyClient(room, client) },
		time.Second, 5*time.Millisecond)
	return c, tr
}

// relay broadcasts every inbound message under f.
func relay(f Filter) Handler {
	return HandlerFuncs{Message: func(ctx context.Context, c *Conn, msg string) error {
		c.BroadcastTo(ctx, f, msg)
		return nil
	}}
}
