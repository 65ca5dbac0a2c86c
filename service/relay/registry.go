package relay

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Connection is the single registered connection of an authenticated user.
type Connection struct {
	UserID      string
	DisplayName string
	ConnectedAt time.Time
	Transport   Transport

	seq          uint64
	lastLiveness atomic.Int64 // unix nano
}

func (c *Connection) LastLivenessAt() time.Time {
	return time.Unix(0, c.lastLiveness.Load())
}

func (c *Connection) touch(now time.Time) {
	c.lastLiveness.Store(now.UnixNano())
}

func (c *Connection) entry() PresenceEntry {
	return PresenceEntry{
		UserID:      c.UserID,
		UserName:    c.DisplayName,
		ConnectedAt: c.ConnectedAt.UnixMilli(),
	}
}

// Registry maps a user id to its one live connection.
// Register/Unregister for the same user are linearized by mu; transports are
// closed outside the lock.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Connection
	seq    uint64
	clock  func() time.Time
}

func NewRegistry(clock func() time.Time) *Registry {
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		byUser: make(map[string]*Connection),
		clock:  clock,
	}
}

// Register binds userID to t. A previous connection of the same user is replaced
// and its transport gets exactly one close request.
func (r *Registry) Register(userID, displayName string, t Transport) *Connection {
	now := r.clock()
	c := &Connection{
		UserID:      userID,
		DisplayName: displayName,
		ConnectedAt: now,
		Transport:   t,
	}
	c.touch(now)

	r.mu.Lock()
	prev := r.byUser[userID]
	r.seq++
	c.seq = r.seq
	r.byUser[userID] = c
	r.mu.Unlock()

	if prev != nil && prev.Transport != t {
		prev.Transport.Close()
	}
	return c
}

// Unregister removes userID only while t is still the registered transport,
// so a late close of a superseded transport is a no-op.
func (r *Registry) Unregister(userID string, t Transport) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byUser[userID]
	if !ok || c.Transport != t {
		return false
	}
	delete(r.byUser, userID)
	return true
}

func (r *Registry) TouchLiveness(userID string) bool {
	r.mu.RLock()
	c, ok := r.byUser[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	c.touch(r.clock())
	return true
}

// TouchLivenessFor renews liveness only while t is still userID's registered
// transport; a superseded connection cannot keep its replacement alive.
func (r *Registry) TouchLivenessFor(userID string, t Transport) bool {
	r.mu.RLock()
	c, ok := r.byUser[userID]
	r.mu.RUnlock()
	if !ok || c.Transport != t {
		return false
	}
	c.touch(r.clock())
	return true
}

// IsCurrent reports whether t is the transport registered for userID.
func (r *Registry) IsCurrent(userID string, t Transport) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return ok && c.Transport == t
}

func (r *Registry) Lookup(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Connections returns the registered connections in registration order.
// The slice is a copy; iterating it never holds the registry lock.
func (r *Registry) Connections() []*Connection {
	r.mu.RLock()
	out := make([]*Connection, 0, len(r.byUser))
	for _, c := range r.byUser {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (r *Registry) Snapshot() []PresenceEntry {
	conns := r.Connections()
	out := make([]PresenceEntry, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.entry())
	}
	return out
}

// Close closes every registered transport and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.byUser
	r.byUser = make(map[string]*Connection)
	r.mu.Unlock()

	for _, c := range all {
		c.Transport.Close()
	}
}
