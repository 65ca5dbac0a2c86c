package handlers

import (
	"PRelay/service/relay"
)

// PingHandler renews the sender's liveness. No pong is written back.
type PingHandler struct{}

func NewPingHandler() relay.Handler { return &PingHandler{} }

func (h *PingHandler) Type() relay.InboundType { return relay.InPing }

func (h *PingHandler) Handle(ctx *relay.Context, _ relay.Inbound, sess *relay.Session) error {
	userID := sess.UserID()
	if !ctx.S.Registry().TouchLivenessFor(userID, sess.Transport()) {
		return nil
	}
	ctx.S.Presence().Touched(userID)
	return nil
}
