package relay

// SendOutcome is the result of handing one frame to a connection.
type SendOutcome int

const (
	Delivered       SendOutcome = iota // queued on an open transport
	NotConnected                       // no registered connection for the user
	TransportClosed                    // registered, but the transport is closed or cannot take more frames
)

func (o SendOutcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case NotConnected:
		return "not_connected"
	case TransportClosed:
		return "transport_closed"
	default:
		return "unknown"
	}
}

// Transport is one full-duplex client connection as seen by the relay.
// Send must not block; Close is idempotent and returns before the socket is torn down.
type Transport interface {
	ID() string
	Send(data []byte) SendOutcome
	Close()
	IsOpen() bool
}
