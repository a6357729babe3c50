package ws

import (
	"fmt"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

const (
	DefaultBufferSize   = 4096
	DefaultReadLimit    = 1 << 20
	DefaultCloseReason  = "Closing"
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 20 * time.Second
	defaultProbeEncoded = "aé€\U0001F600"
)

// Options configure the framing of one connection kind.
type Options struct {
	ReceiveBufferSize int
	SendBufferSize    int

	// Encoding of the text payloads on the wire. nil means UTF-8.
	Encoding encoding.Encoding

	ClosingStatusDescription string

	// ReadLimit caps one inbound message in bytes; applied by the acceptor.
	ReadLimit int64

	// WriteTimeout bounds one outbound message. A client that does not
	// drain it in time is disconnected.
	WriteTimeout time.Duration

	// PingInterval is the keepalive period. The peer must answer each ping
	// within one interval. Negative disables pings.
	PingInterval time.Duration
}

// DefaultOptions returns UTF-8 framing with 4 KiB chunks.
func DefaultOptions() Options {
	return Options{
		ReceiveBufferSize:        DefaultBufferSize,
		SendBufferSize:           DefaultBufferSize,
		Encoding:                 unicode.UTF8,
		ClosingStatusDescription: DefaultCloseReason,
		ReadLimit:                DefaultReadLimit,
		WriteTimeout:             DefaultWriteTimeout,
		PingInterval:             DefaultPingInterval,
	}
}

// withDefaults fills unset fields. Negative sizes are left alone so that
// Validate reports them.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReceiveBufferSize == 0 {
		o.ReceiveBufferSize = d.ReceiveBufferSize
	}
	if o.SendBufferSize == 0 {
		o.SendBufferSize = d.SendBufferSize
	}
	if o.Encoding == nil {
		o.Encoding = d.Encoding
	}
	if o.ClosingStatusDescription == "" {
		o.ClosingStatusDescription = d.ClosingStatusDescription
	}
	if o.ReadLimit == 0 {
		o.ReadLimit = d.ReadLimit
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PingInterval == 0 {
		o.PingInterval = d.PingInterval
	}
	return o
}

// Validate checks that both buffers can carry at least one encoded
// character of the configured encoding.
func (o Options) Validate() error {
	o = o.withDefaults()
	need := MaxEncodedCharLen(o.Encoding)
	if o.ReceiveBufferSize < need {
		return fmt.Errorf("receive buffer %d < %d: %w", o.ReceiveBufferSize, need, ErrBufferTooSmall)
	}
	if o.SendBufferSize < need {
		return fmt.Errorf("send buffer %d < %d: %w", o.SendBufferSize, need, ErrBufferTooSmall)
	}
	if o.ReadLimit < 0 {
		return fmt.Errorf("ws: negative read limit %d", o.ReadLimit)
	}
	if o.WriteTimeout < 0 {
		return fmt.Errorf("ws: negative write timeout %s", o.WriteTimeout)
	}
	return nil
}

// MaxEncodedCharLen reports the largest number of bytes a fresh encoder of
// enc emits for a single character, byte order marks included.
func MaxEncodedCharLen(enc encoding.Encoding) int {
	longest := 1
	for _, r := range defaultProbeEncoded {
		e := encoding.ReplaceUnsupported(enc.NewEncoder())
		out, err := e.String(string(r))
		if err != nil {
			continue
		}
		if len(out) > longest {
			longest = len(out)
		}
	}
	return longest
}
