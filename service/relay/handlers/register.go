package handlers

import (
	"PRelay/service/relay"
)

// RegisterDefaults binds the handlers for every post-auth message type.
func RegisterDefaults(s *relay.Server) {
	d := s.Disp()
	d.Register(NewPingHandler())
	d.Register(NewPresenceHandler())
	d.Register(NewTypingStartHandler())
	d.Register(NewTypingStopHandler())
}
