package global

import (
	"context"
	"time"

	"PRelay/global/config"
	"PRelay/logger"
	"PRelay/service/kafka"
	"PRelay/service/natsx"
	"PRelay/service/relay"
	"PRelay/service/storage"
	redisx "PRelay/service/storage/redis"
	"PRelay/tools/ids"

	"go.uber.org/zap"
)

// Closer releases one started component. Closers run in reverse start order.
type Closer struct {
	Name  string
	Close func() error
}

type Closers []Closer

func (cs *Closers) Add(name string, f func() error) {
	*cs = append(*cs, Closer{Name: name, Close: f})
}

func (cs Closers) CloseAll() {
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].Close(); err != nil {
			logger.Warn("[bootstrap] close failed", zap.String("component", cs[i].Name), zap.Error(err))
		}
	}
}

func ConfigLogger(cfg *config.AppConfig) error {
	return logger.SetLevel(cfg.Log.Level)
}

func ConfigIds(cfg *config.AppConfig) {
	ids.SetNodeID(cfg.NodeNum)
}

// ConfigRedis returns the presence mirror, or nil when redis is disabled.
func ConfigRedis(ctx context.Context, cfg *config.AppConfig, closers *Closers) (relay.PresenceMirror, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rdb, err := redisx.NewClient(ctx, redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return nil, err
	}
	closers.Add("redis", rdb.Close)
	logger.Info("[bootstrap] redis presence mirror enabled", zap.String("addr", cfg.Redis.Addr))
	return storage.NewPresenceStore(rdb, cfg.Redis.KeyPrefix, cfg.NodeID, cfg.Relay.LivenessThreshold), nil
}

func ConfigNats(cfg *config.AppConfig, sink relay.NotificationSink, closers *Closers) error {
	if !cfg.Nats.Enabled {
		return nil
	}
	c := cfg.Nats
	log := logger.Named("natsx")
	client, err := natsx.NewNatsxClient(natsx.NatsxConfig{
		Servers:       c.Servers,
		Name:          c.Name,
		User:          c.User,
		Password:      c.Password,
		ReconnectWait: c.ReconnectWait,
		Timeout:       c.Timeout,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	closers.Add("nats", client.Close)
	return natsx.NewIngress(client, sink, c.SubjectPrefix, c.Queue, log).Start()
}

func ConfigKafka(ctx context.Context, cfg *config.AppConfig, sink relay.NotificationSink, closers *Closers) error {
	if !cfg.Kafka.Enabled {
		return nil
	}
	c := cfg.Kafka
	log := logger.Named("kafka")
	router := kafka.NewRouter()
	router.RegisterHandler(c.Topic, kafka.NotificationHandler(sink, log))

	consumer, err := kafka.NewConsumer(kafka.Config{
		Brokers:       c.Brokers,
		GroupID:       c.GroupID,
		Topic:         c.Topic,
		Version:       c.Version,
		InitialOffset: c.InitialOffset,
		ClientID:      cfg.NodeID,
	}, router, log)
	if err != nil {
		return err
	}
	consumer.Start(ctx)
	closers.Add("kafka", consumer.Close)
	return nil
}

// ShutdownTimeout bounds how long the process waits for connections to drain.
const ShutdownTimeout = 5 * time.Second
