package kafka

import (
	"context"
	"time"

	"PRelay/tools/safe"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type ConsumerGroupHandler struct {
	router *Router
	log    *zap.Logger
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Debug("[kafka] consumer group setup")
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Debug("[kafka] consumer group cleanup")
	return nil
}

// ConsumeClaim hands every record to its topic handler and marks it, whether or not the handler failed.
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h.handle(msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

func (h *ConsumerGroupHandler) handle(msg *sarama.ConsumerMessage) {
	handler, err := h.router.GetHandler(msg.Topic)
	if err != nil {
		h.log.Warn("[kafka] no handler", zap.String("topic", msg.Topic))
		return
	}
	ok := safe.Run("kafka-"+msg.Topic, func() {
		err = handler(msg.Topic, msg.Key, msg.Value)
	})
	if ok && err != nil {
		h.log.Warn("[kafka] record dropped",
			zap.String("topic", msg.Topic), zap.Int32("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
	}
}

// Consumer runs a consumer group over the router's topics until its context ends.
type Consumer struct {
	group  sarama.ConsumerGroup
	router *Router
	log    *zap.Logger
	done   chan struct{}
}

func NewConsumer(c Config, router *Router, log *zap.Logger) (*Consumer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg, err := BuildBaseConfig(c)
	if err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(c.Brokers, c.GroupID, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "kafka consumer group")
	}
	return &Consumer{group: group, router: router, log: log, done: make(chan struct{})}, nil
}

// Start consumes in the background. Close the consumer after ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	handler := &ConsumerGroupHandler{router: c.router, log: c.log}
	topics := c.router.Topics()

	safe.Go("kafka-errors", func() {
		for err := range c.group.Errors() {
			c.log.Warn("[kafka] consumer group error", zap.Error(err))
		}
	})
	go func() {
		defer close(c.done)
		for ctx.Err() == nil {
			if err := c.group.Consume(ctx, topics, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.log.Warn("[kafka] consume error", zap.Error(err))
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}()
	c.log.Info("[kafka] consumer started", zap.Strings("topics", topics))
}

func (c *Consumer) Close() error {
	err := c.group.Close()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
	}
	return err
}
