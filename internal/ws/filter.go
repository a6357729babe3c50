package ws

import "strings"

// Filter selects the recipients of a broadcast. Flags combine with |.
type Filter uint8

const (
	// Everyone is every connection on the server, across all rooms.
	Everyone Filter = 0
	// Members excludes the sender.
	Members Filter = 1 << 0
	// EqualType keeps connections of the sender's kind.
	EqualType Filter = 1 << 1
	// EqualRoomID keeps connections in the sender's room.
	EqualRoomID Filter = 1 << 2

	RoomMembers = Members | EqualRoomID
	TypeMembers = Members | EqualType
)

// Has reports whether every flag in flag is set in f.
func (f Filter) Has(flag Filter) bool { return f&flag == flag }

func (f Filter) String() string {
	if f == Everyone {
		return "everyone"
	}
	var parts []string
	if f.Has(Members) {
		parts = append(parts, "members")
	}
	if f.Has(EqualType) {
		parts = append(parts, "type")
	}
	if f.Has(EqualRoomID) {
		parts = append(parts, "room")
	}
	return strings.Join(parts, "|")
}

// Population is a snapshot of connections grouped by room id.
type Population map[string][]*Conn

// Resolve returns the connections that a message from sender reaches under
// f. It does not mutate pop.
func Resolve(sender *Conn, f Filter, pop Population) []*Conn {
	if sender == nil {
		return nil
	}

	var candidates []*Conn
	if f.Has(EqualRoomID) {
		candidates = pop[sender.roomID]
	} else {
		for _, conns := range pop {
			candidates = append(candidates, conns...)
		}
	}

	out := make([]*Conn, 0, len(candidates))
	for _, c := range candidates {
		if f.Has(EqualType) && c.kind != sender.kind {
			continue
		}
		if f.Has(Members) && c == sender {
			continue
		}
		out = append(out, c)
	}
	return out
}
