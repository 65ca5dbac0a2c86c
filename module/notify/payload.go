package notify

import (
	"encoding/json"
	"strings"

	"PRelay/service/relay"
	"PRelay/tools/errs"
)

// Payload is what producers send; id and createdAt are filled in by the relay when omitted.
type Payload struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Record is one message on the bus: an empty UserID means broadcast.
type Record struct {
	UserID       string  `json:"userId,omitempty"`
	Notification Payload `json:"notification"`
}

func (p Payload) Validate() error {
	switch {
	case strings.TrimSpace(p.Type) == "":
		return errs.ErrArgs.WrapMsg("missing field", "field", "type")
	case strings.TrimSpace(p.Title) == "":
		return errs.ErrArgs.WrapMsg("missing field", "field", "title")
	case p.Message == "":
		return errs.ErrArgs.WrapMsg("missing field", "field", "message")
	}
	return nil
}

func (p Payload) Notification() relay.Notification {
	return relay.Notification{
		ID:        p.ID,
		Type:      p.Type,
		Title:     p.Title,
		Message:   p.Message,
		Link:      p.Link,
		CreatedAt: p.CreatedAt,
	}
}

func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, errs.ErrArgs.WrapMsg("invalid json", "err", err.Error())
	}
	return p, p.Validate()
}

func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, errs.ErrArgs.WrapMsg("invalid json", "err", err.Error())
	}
	return r, r.Notification.Validate()
}

// Deliver pushes p to userID, or to everyone when userID is empty, and
// returns how many connections accepted it.
func Deliver(sink relay.NotificationSink, userID string, p Payload) int {
	if userID == "" {
		return sink.BroadcastNotification(p.Notification())
	}
	if sink.NotifyUser(userID, p.Notification()) == relay.Delivered {
		return 1
	}
	return 0
}
