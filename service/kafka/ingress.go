package kafka

import (
	"PRelay/module/notify"
	"PRelay/service/relay"

	"go.uber.org/zap"
)

// NotificationHandler decodes {userId?, notification} records and delivers them.
// An empty userId broadcasts.
func NotificationHandler(sink relay.NotificationSink, log *zap.Logger) MessageHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(topic string, _, value []byte) error {
		rec, err := notify.DecodeRecord(value)
		if err != nil {
			return err
		}
		n := notify.Deliver(sink, rec.UserID, rec.Notification)
		log.Debug("[kafka] notification relayed", zap.String("topic", topic), zap.String("user", rec.UserID), zap.Int("delivered", n))
		return nil
	}
}
