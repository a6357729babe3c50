package ws

import "errors"

// Configuration errors. These surface at setup time and are never
// downgraded to runtime behaviour.
var (
	ErrMissingRoomID     = errors.New("ws: room id is required")
	ErrMissingClientID   = errors.New("ws: client id is required")
	ErrBufferTooSmall    = errors.New("ws: buffer too small for one encoded character")
	ErrNilTransport      = errors.New("ws: transport is required")
	ErrNilHandler        = errors.New("ws: handler is required")
	ErrAlreadyRegistered = errors.New("ws: connection already registered")
	ErrDuplicateClient   = errors.New("ws: client id already present in room")
	ErrDuplicatePath     = errors.New("ws: path already registered")
	ErrDuplicateKind     = errors.New("ws: kind name already registered")
	ErrInvalidKind       = errors.New("ws: invalid kind")
)

// ErrNoEventCodec is returned by the event helpers on a connection whose
// handler does not speak an event protocol.
var ErrNoEventCodec = errors.New("ws: handler has no event codec")
