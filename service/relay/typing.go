package relay

// TypingRelay forwards typing state to the one other party of a conversation.
type TypingRelay struct {
	router *Router
}

func NewTypingRelay(router *Router) *TypingRelay {
	return &TypingRelay{router: router}
}

// Relay sends a typing_indicator to m.TargetUserID only. Frames without both ids,
// or addressed to the sender itself, are dropped.
func (r *TypingRelay) Relay(senderID string, m TypingMsg) SendOutcome {
	if senderID == "" || m.ConversationID == "" || m.TargetUserID == "" || m.TargetUserID == senderID {
		return NotConnected
	}
	return r.router.SendTargeted(m.TargetUserID, TypingIndicator{
		UserID:         senderID,
		ConversationID: m.ConversationID,
		IsTyping:       m.Start,
	})
}
