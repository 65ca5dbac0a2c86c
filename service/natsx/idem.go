package natsx

import (
	"context"
	"sync"
	"time"
)

// IdemStore remembers message ids for a while.
type IdemStore interface {
	SeenOnce(key string, ttl time.Duration) (seen bool, err error)
}

// MemIdem is a single-process IdemStore. Expired keys are dropped lazily on write.
type MemIdem struct {
	mu    sync.Mutex
	m     map[string]time.Time // key -> expire
	ttl   time.Duration
	now   func() time.Time
	sweep int
}

func NewMemIdem(defaultTTL time.Duration) *MemIdem {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &MemIdem{m: make(map[string]time.Time), ttl: defaultTTL, now: time.Now}
}

func (mi *MemIdem) SeenOnce(key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = mi.ttl
	}
	now := mi.now()
	mi.mu.Lock()
	defer mi.mu.Unlock()

	mi.sweep++
	if mi.sweep >= 1024 {
		mi.sweep = 0
		for k, exp := range mi.m {
			if !exp.After(now) {
				delete(mi.m, k)
			}
		}
	}

	if exp, ok := mi.m[key]; ok && exp.After(now) {
		return true, nil // 已见过
	}
	mi.m[key] = now.Add(ttl)
	return false, nil
}

func (mi *MemIdem) Len() int {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return len(mi.m)
}

// ----- 从消息头提取 msgID -----
func msgIDFromHeader(h map[string]string) string {
	for _, k := range []string{"Nats-Msg-Id", "X-Msg-Id"} {
		if v, ok := h[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// NatsxIdemMiddleware skips messages whose Nats-Msg-Id / X-Msg-Id was seen within ttl.
// Messages without an id always pass.
func NatsxIdemMiddleware(store IdemStore, ttl time.Duration) NatsxMiddleware {
	return func(next NatsxHandler) NatsxHandler {
		return func(ctx context.Context, msg NatsxMessage) error {
			id := msgIDFromHeader(msg.Header)
			if id == "" {
				return next(ctx, msg)
			}
			if seen, _ := store.SeenOnce(id, ttl); seen {
				return nil
			}
			return next(ctx, msg)
		}
	}
}
