package kafka

import (
	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
)

// NewSyncProducer is used by platform services (and tests) publishing notification records.
func NewSyncProducer(c Config) (sarama.SyncProducer, error) {
	cfg, err := BuildBaseConfig(c)
	if err != nil {
		return nil, err
	}
	p, err := sarama.NewSyncProducer(c.Brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "kafka sync producer")
	}
	return p, nil
}

// SendSync publishes value keyed by key (the target user id, so one user's records stay ordered).
func SendSync(p sarama.SyncProducer, topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	_, _, err := p.SendMessage(msg)
	return errors.Wrapf(err, "kafka send %s", topic)
}
