package events

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrMalformed = errors.New("events: malformed envelope")

// Event is one named message.
type Event struct {
	Name    string
	Message string
}

// Codec converts between raw text messages and events.
type Codec interface {
	Decode(raw string) (Event, error)
	Encode(ev Event) (string, error)
}

// JSONCodec reads and writes {"event": "...", "message": "..."}. Keys
// match case-insensitively, both are required and no others are allowed.
type JSONCodec struct{}

type jsonEnvelope struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

func (JSONCodec) Decode(raw string) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var ev Event
	var haveName, haveMsg bool
	for k, v := range fields {
		var dst *string
		switch {
		case strings.EqualFold(k, "event") && !haveName:
			dst, haveName = &ev.Name, true
		case strings.EqualFold(k, "message") && !haveMsg:
			dst, haveMsg = &ev.Message, true
		default:
			return Event{}, fmt.Errorf("%w: unexpected key %q", ErrMalformed, k)
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return Event{}, fmt.Errorf("%w: %s: %v", ErrMalformed, k, err)
		}
	}
	if !haveName || !haveMsg {
		return Event{}, fmt.Errorf("%w: event and message are required", ErrMalformed)
	}
	return ev, nil
}

func (JSONCodec) Encode(ev Event) (string, error) {
	b, err := json.Marshal(jsonEnvelope{Event: ev.Name, Message: ev.Message})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// XMLCodec reads and writes <Event><Name>..</Name><Message>..</Message></Event>.
type XMLCodec struct{}

type xmlEnvelope struct {
	XMLName xml.Name `xml:"Event"`
	Name    *string  `xml:"Name"`
	Message *string  `xml:"Message"`
}

func (XMLCodec) Decode(raw string) (Event, error) {
	var env xmlEnvelope
	dec := xml.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// Only whitespace may follow the root element.
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		cd, ok := tok.(xml.CharData)
		if err != nil || !ok || len(bytes.TrimSpace(cd)) > 0 {
			return Event{}, fmt.Errorf("%w: trailing content", ErrMalformed)
		}
	}
	if env.Name == nil || env.Message == nil {
		return Event{}, fmt.Errorf("%w: Name and Message are required", ErrMalformed)
	}
	return Event{Name: *env.Name, Message: *env.Message}, nil
}

func (XMLCodec) Encode(ev Event) (string, error) {
	var buf bytes.Buffer
	env := xmlEnvelope{Name: &ev.Name, Message: &ev.Message}
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return "", err
	}
	return buf.String(), nil
}
