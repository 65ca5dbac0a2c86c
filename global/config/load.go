package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	yaml "go.yaml.in/yaml/v3"
)

// Load builds the configuration: defaults, then the YAML file at path (optional), then RELAY_* env vars.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(raw []byte, out *AppConfig) error {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return errors.Wrap(err, "yaml unmarshal")
	}
	if len(m) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *AppConfig, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	flag := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		*dst = b
		return nil
	}

	str("RELAY_NODE_ID", &cfg.NodeID)
	str("RELAY_LOG_LEVEL", &cfg.Log.Level)
	str("RELAY_HTTP_ADDR", &cfg.HTTP.Addr)
	str("RELAY_GRPC_ADDR", &cfg.GRPC.Addr)
	str("RELAY_JWT_SECRET", &cfg.API.JWTSecret)
	str("RELAY_REDIS_ADDR", &cfg.Redis.Addr)
	str("RELAY_REDIS_PASSWORD", &cfg.Redis.Password)
	list("RELAY_NATS_SERVERS", &cfg.Nats.Servers)
	list("RELAY_KAFKA_BROKERS", &cfg.Kafka.Brokers)
	str("RELAY_KAFKA_TOPIC", &cfg.Kafka.Topic)

	for key, dst := range map[string]*bool{
		"RELAY_GRPC_ENABLED":  &cfg.GRPC.Enabled,
		"RELAY_API_ENABLED":   &cfg.API.Enabled,
		"RELAY_REDIS_ENABLED": &cfg.Redis.Enabled,
		"RELAY_NATS_ENABLED":  &cfg.Nats.Enabled,
		"RELAY_KAFKA_ENABLED": &cfg.Kafka.Enabled,
	} {
		if err := flag(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
