// Package relaytest provides an in-memory relay.Transport for tests.
package relaytest

import (
	"encoding/json"
	"sync"

	"PRelay/service/relay"
)

// Envelope is a decoded outbound frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v and panics on malformed frames.
func (e Envelope) Decode(v any) {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		panic(err)
	}
}

// Transport records every frame it is sent.
type Transport struct {
	id string

	mu         sync.Mutex
	frames     [][]byte
	closed     bool
	closeCalls int
}

func NewTransport(id string) *Transport {
	return &Transport{id: id}
}

func (t *Transport) ID() string { return t.id }

func (t *Transport) Send(data []byte) relay.SendOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return relay.TransportClosed
	}
	t.frames = append(t.frames, append([]byte(nil), data...))
	return relay.Delivered
}

func (t *Transport) Close() {
	t.mu.Lock()
	t.closed = true
	t.closeCalls++
	t.mu.Unlock()
}

func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// CloseCalls reports how many times Close was requested.
func (t *Transport) CloseCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCalls
}

func (t *Transport) Messages() []Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Envelope, 0, len(t.frames))
	for _, f := range t.frames {
		var e Envelope
		if err := json.Unmarshal(f, &e); err != nil {
			panic(err)
		}
		out = append(out, e)
	}
	return out
}

func (t *Transport) MessagesOfType(typ relay.OutboundType) []Envelope {
	var out []Envelope
	for _, e := range t.Messages() {
		if e.Type == string(typ) {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets recorded frames.
func (t *Transport) Reset() {
	t.mu.Lock()
	t.frames = nil
	t.mu.Unlock()
}
