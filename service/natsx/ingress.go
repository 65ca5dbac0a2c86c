package natsx

import (
	"context"
	"strings"
	"time"

	"PRelay/module/notify"
	"PRelay/service/relay"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	bizNotifyUser      = "notify.user"
	bizNotifyBroadcast = "notify.broadcast"
)

// Ingress feeds notifications published on NATS into the relay.
//
//	<prefix>.user.<userId>  → NotifyUser
//	<prefix>.broadcast      → BroadcastNotification
type Ingress struct {
	client   *NatsxClient
	consumer *NatsxConsumer
	sink     relay.NotificationSink
	prefix   string
	queue    string
	log      *zap.Logger
}

func NewIngress(client *NatsxClient, sink relay.NotificationSink, prefix, queue string, log *zap.Logger) *Ingress {
	if log == nil {
		log = zap.NewNop()
	}
	prefix = strings.TrimSuffix(prefix, ".")
	consumer := NewNatsxConsumer(client,
		Recover(),
		Logging(log),
		NatsxIdemMiddleware(NewMemIdem(time.Minute), 0),
	)
	return &Ingress{client: client, consumer: consumer, sink: sink, prefix: prefix, queue: queue, log: log}
}

func (in *Ingress) UserSubject(userID string) string { return in.prefix + ".user." + userID }
func (in *Ingress) BroadcastSubject() string         { return in.prefix + ".broadcast" }

// Start subscribes both subjects.
func (in *Ingress) Start() error {
	routes := []NatsxRoute{
		{Biz: bizNotifyUser, Subject: in.prefix + ".user.*", Queue: in.queue},
		{Biz: bizNotifyBroadcast, Subject: in.BroadcastSubject(), Queue: in.queue},
	}
	for _, r := range routes {
		if err := in.client.RegisterRoute(r); err != nil {
			return err
		}
		if err := in.consumer.Subscribe(r.Biz, in.Handle); err != nil {
			return err
		}
	}
	in.log.Info("[natsx] notification ingress subscribed", zap.String("prefix", in.prefix), zap.String("queue", in.queue))
	return nil
}

// Handle delivers one message. An error means the message was malformed and dropped.
func (in *Ingress) Handle(_ context.Context, msg NatsxMessage) error {
	userID, broadcast, err := in.target(msg.Subject)
	if err != nil {
		return err
	}
	p, err := notify.DecodePayload(msg.Data)
	if err != nil {
		return err
	}
	if broadcast {
		userID = ""
	}
	n := notify.Deliver(in.sink, userID, p)
	in.log.Debug("[natsx] notification relayed", zap.String("subject", msg.Subject), zap.Int("delivered", n))
	return nil
}

func (in *Ingress) target(subject string) (userID string, broadcast bool, err error) {
	if subject == in.BroadcastSubject() {
		return "", true, nil
	}
	userID = strings.TrimPrefix(subject, in.prefix+".user.")
	if userID == subject || userID == "" || strings.Contains(userID, ".") {
		return "", false, errors.Errorf("unexpected subject %s", subject)
	}
	return userID, false, nil
}
