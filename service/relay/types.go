package relay

// Handler serves one inbound message type for authenticated sessions.
type Handler interface {
	Type() InboundType
	Handle(*Context, Inbound, *Session) error
}

type Context struct {
	S *Server
}
