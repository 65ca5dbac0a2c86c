package relay

import (
	"time"

	"PRelay/tools/ids"
)

// NotificationSink is what notification producers (HTTP, NATS, Kafka) push into.
type NotificationSink interface {
	NotifyUser(userID string, n Notification) SendOutcome
	BroadcastNotification(n Notification) int
}

// NotificationDispatcher is the producer-facing side of the relay.
// Nothing here fails for an offline user; the outcome is only informational.
type NotificationDispatcher struct {
	router *Router
	ids    *ids.Generator
	clock  func() time.Time
}

func NewNotificationDispatcher(router *Router, gen *ids.Generator, clock func() time.Time) *NotificationDispatcher {
	if gen == nil {
		gen = ids.NewGenerator(1)
	}
	if clock == nil {
		clock = time.Now
	}
	return &NotificationDispatcher{router: router, ids: gen, clock: clock}
}

func (d *NotificationDispatcher) NotifyUser(userID string, n Notification) SendOutcome {
	return d.router.SendTargeted(userID, d.build(n))
}

// BroadcastNotification returns the number of connections that accepted the notification.
func (d *NotificationDispatcher) BroadcastNotification(n Notification) int {
	return d.router.Broadcast(d.build(n), "")
}

func (d *NotificationDispatcher) build(n Notification) NotificationFrame {
	if n.ID == "" {
		n.ID = "notif_" + d.ids.NextString()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = d.clock().UnixMilli()
	}
	return NotificationFrame{Notification: n}
}
