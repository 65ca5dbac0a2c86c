package handlers

import (
	"PRelay/service/relay"
)

type PresenceHandler struct{}

func NewPresenceHandler() relay.Handler { return &PresenceHandler{} }

func (h *PresenceHandler) Type() relay.InboundType { return relay.InPresenceRequest }

func (h *PresenceHandler) Handle(ctx *relay.Context, _ relay.Inbound, sess *relay.Session) error {
	ctx.S.Presence().SendSnapshot(sess.UserID())
	return nil
}
