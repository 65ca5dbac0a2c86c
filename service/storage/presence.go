package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// 仅当 value 仍是本节点时删除，避免把别的节点刚写入的在线状态删掉
// KEYS[1] = presence key
// ARGV[1] = node id
const luaOfflineIfOwner = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var offlineScript = redis.NewScript(luaOfflineIfOwner)

// PresenceStore mirrors who is online on this node into redis.
// Key: <prefix>:presence:<user>, value: node id, TTL: liveness threshold.
type PresenceStore struct {
	rdb    redis.UniversalClient
	prefix string
	nodeID string
	ttl    time.Duration
}

func NewPresenceStore(rdb redis.UniversalClient, prefix, nodeID string, ttl time.Duration) *PresenceStore {
	if prefix == "" {
		prefix = "relay"
	}
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &PresenceStore{rdb: rdb, prefix: prefix, nodeID: nodeID, ttl: ttl}
}

func (s *PresenceStore) Key(user string) string { return s.prefix + ":presence:" + user }

// Online sets the user as online and renews the TTL.
func (s *PresenceStore) Online(ctx context.Context, user, _ string) error {
	return errors.Wrapf(s.rdb.Set(ctx, s.Key(user), s.nodeID, s.ttl).Err(), "presence online %s", user)
}

// Touch renews the TTL; an expired key is written again.
func (s *PresenceStore) Touch(ctx context.Context, user string) error {
	return errors.Wrapf(s.rdb.Set(ctx, s.Key(user), s.nodeID, s.ttl).Err(), "presence touch %s", user)
}

// Offline removes the key if this node still owns it.
func (s *PresenceStore) Offline(ctx context.Context, user string) error {
	err := offlineScript.Run(ctx, s.rdb, []string{s.Key(user)}, s.nodeID).Err()
	return errors.Wrapf(err, "presence offline %s", user)
}

// Lookup reports whether user is online anywhere and on which node.
func (s *PresenceStore) Lookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	val, err := s.rdb.Get(ctx, s.Key(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "presence lookup %s", user)
	}
	return val, true, nil
}
