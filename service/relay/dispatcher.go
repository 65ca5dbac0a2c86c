package relay

import (
	"fmt"
	"sync"
)

type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[InboundType]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[InboundType]Handler)}
}

// Register replaces any handler already bound to h.Type().
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	d.handlers[h.Type()] = h
	d.mu.Unlock()
}

func (d *Dispatcher) GetHandler(t InboundType) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[t]
}

func (d *Dispatcher) Dispatch(ctx *Context, m Inbound, s *Session) error {
	h := d.GetHandler(m.Type())
	if h == nil {
		return fmt.Errorf("no handler for type=%s", m.Type())
	}
	return h.Handle(ctx, m, s)
}
