package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"PRelay/service/relay"
	redisx "PRelay/service/storage/redis"
)

var _ relay.PresenceMirror = (*PresenceStore)(nil)

func TestPresenceKey(t *testing.T) {
	s := NewPresenceStore(nil, "", "node-a", 0)
	if got := s.Key("u1"); got != "relay:presence:u1" {
		t.Fatalf("unexpected key %q", got)
	}
	if s.ttl != 45*time.Second {
		t.Fatalf("default ttl %v", s.ttl)
	}
	s = NewPresenceStore(nil, "im", "node-a", time.Second)
	if got := s.Key("u1"); got != "im:presence:u1" {
		t.Fatalf("unexpected key %q", got)
	}
}

// 需要真实 redis：RELAY_TEST_REDIS_ADDR=127.0.0.1:6379
func TestPresenceStoreRedis(t *testing.T) {
	addr := os.Getenv("RELAY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RELAY_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := redisx.NewClient(ctx, redisx.Config{Addr: addr})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer rdb.Close()

	prefix := "relaytest" + time.Now().Format("150405.000")
	a := NewPresenceStore(rdb, prefix, "node-a", 5*time.Second)
	b := NewPresenceStore(rdb, prefix, "node-b", 5*time.Second)

	if err := a.Online(ctx, "u1", "Alice"); err != nil {
		t.Fatal(err)
	}
	node, online, err := a.Lookup(ctx, "u1")
	if err != nil || !online || node != "node-a" {
		t.Fatalf("lookup: %s %v %v", node, online, err)
	}

	// the user moved to node b; a's late offline must not remove it
	if err := b.Online(ctx, "u1", "Alice"); err != nil {
		t.Fatal(err)
	}
	if err := a.Offline(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if node, online, _ := a.Lookup(ctx, "u1"); !online || node != "node-b" {
		t.Fatalf("foreign offline removed the key: %s %v", node, online)
	}

	if err := b.Offline(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, online, _ := b.Lookup(ctx, "u1"); online {
		t.Fatalf("key not removed")
	}

	if err := a.Touch(ctx, "u2"); err != nil {
		t.Fatal(err)
	}
	ttl, err := rdb.TTL(ctx, a.Key("u2")).Result()
	if err != nil || ttl <= 0 || ttl > 5*time.Second {
		t.Fatalf("touch ttl %v %v", ttl, err)
	}
	_ = rdb.Del(ctx, a.Key("u2")).Err()
}
