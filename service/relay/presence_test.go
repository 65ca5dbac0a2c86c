package relay_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"PRelay/service/relay"
	"PRelay/service/relay/handlers"
	"PRelay/service/relay/relaytest"
)

type mirrorCall struct {
	op, userID, name string
}

type chanMirror struct{ calls chan mirrorCall }

func (m *chanMirror) Online(_ context.Context, userID, name string) error {
	m.calls <- mirrorCall{"online", userID, name}
	return nil
}

func (m *chanMirror) Touch(_ context.Context, userID string) error {
	m.calls <- mirrorCall{"touch", userID, ""}
	return nil
}

func (m *chanMirror) Offline(_ context.Context, userID string) error {
	m.calls <- mirrorCall{"offline", userID, ""}
	return nil
}

func (m *chanMirror) next(t *testing.T) mirrorCall {
	t.Helper()
	select {
	case c := <-m.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("mirror call not observed")
		return mirrorCall{}
	}
}

func TestPresenceRequestMatchesOnlineCount(t *testing.T) {
	h := newHarness(t)
	h.login(t, "u1", "Alice")
	h.login(t, "u2", "Bob")
	tr, sess := h.login(t, "u3", "Carol")

	h.send(t, sess, `{"type":"presence_request"}`)
	got := tr.MessagesOfType(relay.OutPresenceList)
	if len(got) != 1 {
		t.Fatalf("expected one presence_list, got %d", len(got))
	}
	var pl relay.PresenceList
	got[0].Decode(&pl)
	if len(pl.Users) != h.srv.GetOnlineCount() {
		t.Fatalf("presence_list has %d users, online count %d", len(pl.Users), h.srv.GetOnlineCount())
	}
	want := h.clock.Now().UnixMilli()
	for _, u := range pl.Users {
		if u.ConnectedAt != want || u.UserName == "" {
			t.Fatalf("bad entry %+v", u)
		}
	}
	if len(h.srv.OnlineUsers()) != 3 {
		t.Fatalf("OnlineUsers mismatch")
	}
}

func TestPresenceMirrorFollowsLifecycle(t *testing.T) {
	m := &chanMirror{calls: make(chan mirrorCall, 8)}
	timers := &relaytest.Timers{}
	srv := relay.NewServer(relay.Options{AfterFunc: timers.AfterFunc, Mirror: m})
	handlers.RegisterDefaults(srv)

	tr := relaytest.NewTransport("a")
	sess := srv.OpenSession(tr)
	if err := srv.HandleFrame(sess, []byte(authFrame("u1", "Alice"))); err != nil {
		t.Fatal(err)
	}
	if c := m.next(t); c != (mirrorCall{"online", "u1", "Alice"}) {
		t.Fatalf("unexpected call %+v", c)
	}

	if err := srv.HandleFrame(sess, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatal(err)
	}
	if c := m.next(t); c.op != "touch" || c.userID != "u1" {
		t.Fatalf("unexpected call %+v", c)
	}

	srv.CloseSession(sess)
	if c := m.next(t); c.op != "offline" || c.userID != "u1" {
		t.Fatalf("unexpected call %+v", c)
	}
}

// slowOfflineMirror keeps the last state per user and stalls every Offline.
type slowOfflineMirror struct {
	delay time.Duration

	mu     sync.Mutex
	online map[string]bool
	ops    []string
}

func (m *slowOfflineMirror) set(op, userID string, online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userID] = online
	m.ops = append(m.ops, op)
}

func (m *slowOfflineMirror) Online(_ context.Context, userID, _ string) error {
	m.set("online", userID, true)
	return nil
}

func (m *slowOfflineMirror) Touch(_ context.Context, userID string) error {
	m.set("touch", userID, true)
	return nil
}

func (m *slowOfflineMirror) Offline(_ context.Context, userID string) error {
	time.Sleep(m.delay)
	m.set("offline", userID, false)
	return nil
}

func TestPresenceMirrorKeepsOrderAcrossRejoin(t *testing.T) {
	m := &slowOfflineMirror{delay: 20 * time.Millisecond, online: map[string]bool{}}
	timers := &relaytest.Timers{}
	srv := relay.NewServer(relay.Options{AfterFunc: timers.AfterFunc, Mirror: m})
	handlers.RegisterDefaults(srv)

	first := srv.OpenSession(relaytest.NewTransport("a"))
	if err := srv.HandleFrame(first, []byte(authFrame("u1", "Alice"))); err != nil {
		t.Fatal(err)
	}
	srv.CloseSession(first)

	second := srv.OpenSession(relaytest.NewTransport("b"))
	if err := srv.HandleFrame(second, []byte(authFrame("u1", "Alice"))); err != nil {
		t.Fatal(err)
	}

	srv.CloseSession(second)
	// flushes the queued mirror calls
	srv.Stop(time.Second)

	m.mu.Lock()
	defer m.mu.Unlock()
	want := []string{"online", "offline", "online", "offline"}
	if len(m.ops) != len(want) {
		t.Fatalf("expected mirror calls %v, got %v", want, m.ops)
	}
	for i := range want {
		if m.ops[i] != want[i] {
			t.Fatalf("expected mirror calls %v, got %v", want, m.ops)
		}
	}
}

func TestPresenceMirrorOnlineAfterRejoin(t *testing.T) {
	m := &slowOfflineMirror{delay: 20 * time.Millisecond, online: map[string]bool{}}
	reg := relay.NewRegistry(nil)
	p := relay.NewPresenceBroadcaster(reg, relay.NewRouter(reg, nil), m, nil)

	c := reg.Register("u1", "Alice", relaytest.NewTransport("a"))
	p.Join(c)
	p.Leave("u1", "Alice")
	c = reg.Register("u1", "Alice", relaytest.NewTransport("b"))
	p.Join(c)
	p.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online["u1"] {
		t.Fatalf("mirror reports a connected user offline, calls %v", m.ops)
	}
}

func TestEmptySnapshotEncodesAsArray(t *testing.T) {
	reg := relay.NewRegistry(nil)
	p := relay.NewPresenceBroadcaster(reg, relay.NewRouter(reg, nil), nil, nil)
	if out := p.SendSnapshot("nobody"); out != relay.NotConnected {
		t.Fatalf("expected NotConnected, got %s", out)
	}
	data, err := relay.Encode(relay.PresenceList{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"presence_list","payload":{"users":[]}}` {
		t.Fatalf("unexpected encoding %s", data)
	}
}
