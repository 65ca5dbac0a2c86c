package config

import (
	"time"

	"github.com/pkg/errors"
)

type AppConfig struct {
	NodeID  string      `mapstructure:"node_id"`  // 节点ID（redis presence value / kafka client id）
	NodeNum int64       `mapstructure:"node_num"` // 雪花节点号 0~1023
	Log     LogConfig   `mapstructure:"log"`
	HTTP    HTTPConfig  `mapstructure:"http"`
	GRPC    GRPCConfig  `mapstructure:"grpc"`
	Relay   RelayConfig `mapstructure:"relay"`
	API     APIConfig   `mapstructure:"api"`
	Redis   RedisConfig `mapstructure:"redis"`
	Nats    NatsConfig  `mapstructure:"nats"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr   string `mapstructure:"addr"`
	WSPath string `mapstructure:"ws_path"`
}

type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type RelayConfig struct {
	AuthTimeout       time.Duration `mapstructure:"auth_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	LivenessThreshold time.Duration `mapstructure:"liveness_threshold"`
	SendQueue         int           `mapstructure:"send_queue"`    // 每连接发送队列长度
	ReadLimit         int64         `mapstructure:"read_limit"`    // 单帧最大字节
	WriteWait         time.Duration `mapstructure:"write_wait"`    // 单次写超时
	InboundRate       float64       `mapstructure:"inbound_rate"`  // 每连接每秒入站帧（<=0 不限制）
	InboundBurst      int           `mapstructure:"inbound_burst"` // 令牌桶容量
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

type APIConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTAlg    string `mapstructure:"jwt_alg"`
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type NatsConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Servers       []string      `mapstructure:"servers"`
	Name          string        `mapstructure:"name"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	Queue         string        `mapstructure:"queue"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	GroupID       string   `mapstructure:"group_id"`
	Topic         string   `mapstructure:"topic"`
	Version       string   `mapstructure:"version"`
	InitialOffset string   `mapstructure:"initial_offset"` // newest/oldest
}

// Default 默认配置（可直接改）
func Default() AppConfig {
	return AppConfig{
		NodeID:  "relay-1",
		NodeNum: 1,
		Log:     LogConfig{Level: "info"},
		HTTP:    HTTPConfig{Addr: ":8080", WSPath: "/ws"},
		GRPC:    GRPCConfig{Enabled: false, Addr: ":50052"},
		Relay: RelayConfig{
			AuthTimeout:       10 * time.Second,
			HeartbeatInterval: 30 * time.Second,
			LivenessThreshold: 45 * time.Second,
			SendQueue:         256,
			ReadLimit:         64 * 1024,
			WriteWait:         10 * time.Second,
			InboundRate:       20,
			InboundBurst:      40,
		},
		API: APIConfig{Enabled: true, JWTAlg: "HS256"},
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			PoolSize:  10,
			KeyPrefix: "relay",
		},
		Nats: NatsConfig{
			Servers:       []string{"nats://127.0.0.1:4222"},
			Name:          "presence-relay",
			SubjectPrefix: "relay.notify",
			Queue:         "presence-relay",
			ReconnectWait: 500 * time.Millisecond,
			Timeout:       3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"127.0.0.1:9092"},
			GroupID:       "presence-relay",
			Topic:         "relay.notifications",
			Version:       "2.1.0",
			InitialOffset: "newest",
		},
	}
}

func (c *AppConfig) Validate() error {
	r := c.Relay
	switch {
	case r.AuthTimeout <= 0:
		return errors.New("relay.auth_timeout must be > 0")
	case r.HeartbeatInterval <= 0:
		return errors.New("relay.heartbeat_interval must be > 0")
	case r.LivenessThreshold <= 0:
		return errors.New("relay.liveness_threshold must be > 0")
	case r.SendQueue <= 0:
		return errors.New("relay.send_queue must be > 0")
	case r.WriteWait <= 0:
		return errors.New("relay.write_wait must be > 0")
	}
	if c.NodeNum < 0 || c.NodeNum > 1023 {
		return errors.Errorf("node_num %d out of range 0~1023", c.NodeNum)
	}
	if c.API.Enabled && c.API.JWTSecret == "" {
		return errors.New("api.jwt_secret is required when the producer API is enabled")
	}
	if c.Nats.Enabled && len(c.Nats.Servers) == 0 {
		return errors.New("nats.servers missing")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" || c.Kafka.GroupID == "") {
		return errors.New("kafka.brokers, kafka.topic and kafka.group_id are required")
	}
	return nil
}
