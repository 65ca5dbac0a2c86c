package handlers

import (
	"fmt"

	"PRelay/service/relay"
)

// TypingHandler serves typing_start or typing_stop, depending on start.
type TypingHandler struct{ start bool }

func NewTypingStartHandler() relay.Handler { return &TypingHandler{start: true} }
func NewTypingStopHandler() relay.Handler  { return &TypingHandler{start: false} }

func (h *TypingHandler) Type() relay.InboundType {
	if h.start {
		return relay.InTypingStart
	}
	return relay.InTypingStop
}

func (h *TypingHandler) Handle(ctx *relay.Context, m relay.Inbound, sess *relay.Session) error {
	tm, ok := m.(relay.TypingMsg)
	if !ok {
		return fmt.Errorf("typing handler got %T", m)
	}
	ctx.S.Typing().Relay(sess.UserID(), tm)
	return nil
}
