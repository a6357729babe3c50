package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
	"nhooyr.io/websocket"
)

// Transport is a connection that delivers messages as bounded chunks.
// *websocket.Conn satisfies it: the message reader reports io.EOF at the
// end of a message, every Write on a message writer is one frame and
// closing the writer marks the final frame. Close must be safe to call
// while a read or write is pending. Ping returns once the peer answered;
// answers are only seen while a read is pending.
type Transport interface {
	Reader(ctx context.Context) (websocket.MessageType, io.Reader, error)
	Writer(ctx context.Context, typ websocket.MessageType) (io.WriteCloser, error)
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

var errShortBuffer = errors.New("ws: send buffer cannot hold one encoded character")

// framer turns chunks into whole text messages and back.
type framer struct {
	t   Transport
	enc encoding.Encoding

	rbuf []byte          // receive goroutine only
	acc  strings.Builder // receive goroutine only
	wbuf []byte          // guarded by Conn.sendMu
}

func newFramer(t Transport, o Options) *framer {
	return &framer{
		t:    t,
		enc:  o.Encoding,
		rbuf: make([]byte, o.ReceiveBufferSize),
		wbuf: make([]byte, o.SendBufferSize),
	}
}

// readMessage blocks until one whole message has arrived. ok is false for
// non-text messages, which are drained and dropped.
func (f *framer) readMessage(ctx context.Context) (msg string, ok bool, err error) {
	typ, r, err := f.t.Reader(ctx)
	if err != nil {
		return "", false, err
	}
	if typ != websocket.MessageText {
		_, err = io.Copy(io.Discard, r)
		return "", false, err
	}

	f.acc.Reset()
	dec := f.enc.NewDecoder().Reader(r)
	for {
		n, err := dec.Read(f.rbuf)
		f.acc.Write(f.rbuf[:n])
		if errors.Is(err, io.EOF) {
			return f.acc.String(), true, nil
		}
		if err != nil {
			return "", false, err
		}
	}
}

// writeMessage streams msg as frames no larger than the send buffer. The
// encoder keeps its state between chunks so a character is never split
// into an invalid sequence.
func (f *framer) writeMessage(ctx context.Context, msg string) error {
	w, err := f.t.Writer(ctx, websocket.MessageText)
	if err != nil {
		return err
	}

	enc := encoding.ReplaceUnsupported(f.enc.NewEncoder())
	src := []byte(msg)
	for {
		nDst, nSrc, terr := enc.Transform(f.wbuf, src, true)
		src = src[nSrc:]
		if nDst > 0 {
			if _, err := w.Write(f.wbuf[:nDst]); err != nil {
				return err
			}
		}
		if terr == nil {
			break
		}
		if !errors.Is(terr, transform.ErrShortDst) {
			return fmt.Errorf("ws: encode: %w", terr)
		}
		if nDst == 0 && nSrc == 0 {
			return errShortBuffer
		}
	}
	return w.Close()
}

// receive runs the read loop until the connection closes, its context is
// cancelled or the transport fails, then runs the close sequence. Only one
// loop may run per connection; later calls return at once.
func (c *Conn) receive(ctx context.Context) {
	if !c.receiving.CompareAndSwap(false, true) {
		return
	}
	defer c.Close(context.WithoutCancel(ctx))

	for c.IsConnected() && ctx.Err() == nil {
		msg, ok, err := c.framer.readMessage(ctx)
		if err != nil {
			if ctx.Err() == nil && c.IsConnected() {
				c.log.Debug("ws.read.end", "err", err)
			}
			return
		}
		if !ok || !c.IsConnected() {
			continue
		}

		observeInbound(c)
		if err := c.call(func() error { return c.handler.OnMessage(ctx, c, msg) }); err != nil {
			c.log.Warn("ws.message.handler", "err", err)
		}
	}
}

// Send writes msg to the client. It is a no-op on a closed connection. A
// transport failure closes the connection; it is not reported to the
// caller, delivery is best effort.
func (c *Conn) Send(ctx context.Context, msg string) {
	if !c.IsConnected() {
		return
	}

	// A pending write is abandoned when the caller or the connection gives
	// up, or when the client does not drain it within WriteTimeout.
	c.sendMu.Lock()
	if !c.IsConnected() {
		c.sendMu.Unlock()
		return
	}
	wctx, cancel := context.WithTimeout(c.ctx, c.opts.WriteTimeout)
	stop := context.AfterFunc(ctx, cancel)
	err := c.framer.writeMessage(wctx, msg)
	stop()
	cancel()
	c.sendMu.Unlock()

	if err != nil {
		if c.IsConnected() {
			c.log.Debug("ws.write.failed", "err", err)
		}
		c.Close(context.WithoutCancel(ctx))
		return
	}
	observeOutbound(c)
}

// keepalive pings the peer every PingInterval until ctx is done. A ping
// that is not answered within one interval closes the connection.
func (c *Conn) keepalive(ctx context.Context) {
	if c.opts.PingInterval < 0 {
		return
	}
	t := time.NewTicker(c.opts.PingInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		pctx, cancel := context.WithTimeout(ctx, c.opts.PingInterval)
		err := c.framer.t.Ping(pctx)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Info("ws.ping.failed", "err", err)
				c.Close(context.WithoutCancel(ctx))
			}
			return
		}
	}
}
