package relay

import (
	"go.uber.org/zap"
)

// Router delivers outbound messages over the registry. Delivery is best effort:
// a missing or closed connection is an outcome, not an error.
type Router struct {
	reg *Registry
	log *zap.Logger
}

func NewRouter(reg *Registry, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{reg: reg, log: log}
}

// SendTargeted sends m once to userID's connection, if there is an open one.
func (r *Router) SendTargeted(userID string, m Outbound) SendOutcome {
	c, ok := r.reg.Lookup(userID)
	if !ok {
		return NotConnected
	}
	if !c.Transport.IsOpen() {
		return TransportClosed
	}
	data, err := Encode(m)
	if err != nil {
		r.log.Error("[router] encode failed", zap.String("type", string(m.Type())), zap.Error(err))
		return TransportClosed
	}
	return c.Transport.Send(data)
}

// Broadcast sends m once to every open connection except excludeUserID ("" excludes nobody)
// and returns how many transports accepted it.
func (r *Router) Broadcast(m Outbound, excludeUserID string) int {
	conns := r.reg.Connections()
	if len(conns) == 0 {
		return 0
	}
	data, err := Encode(m)
	if err != nil {
		r.log.Error("[router] encode failed", zap.String("type", string(m.Type())), zap.Error(err))
		return 0
	}

	delivered := 0
	for _, c := range conns {
		if c.UserID == excludeUserID || !c.Transport.IsOpen() {
			continue
		}
		if c.Transport.Send(data) == Delivered {
			delivered++
		}
	}
	return delivered
}
