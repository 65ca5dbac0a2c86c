package relay_test

import (
	"sync"
	"testing"
	"time"

	"PRelay/service/relay"
	"PRelay/service/relay/relaytest"
)

func TestRegistryRegisterReplacesPrevious(t *testing.T) {
	reg := relay.NewRegistry(nil)
	a := relaytest.NewTransport("a")
	b := relaytest.NewTransport("b")

	reg.Register("u1", "Alice", a)
	reg.Register("u1", "Alice2", b)

	if a.CloseCalls() != 1 {
		t.Fatalf("expected exactly one close request on the old transport, got %d", a.CloseCalls())
	}
	if b.CloseCalls() != 0 {
		t.Fatalf("new transport must stay open")
	}
	c, ok := reg.Lookup("u1")
	if !ok || c.Transport != b || c.DisplayName != "Alice2" {
		t.Fatalf("registry must point at the newest transport, got %#v", c)
	}
	if reg.Count() != 1 {
		t.Fatalf("expected one entry, got %d", reg.Count())
	}
}

func TestRegistryLateCloseOfSupersededTransport(t *testing.T) {
	reg := relay.NewRegistry(nil)
	a := relaytest.NewTransport("a")
	b := relaytest.NewTransport("b")

	reg.Register("u1", "Alice", a)
	reg.Register("u1", "Alice", b)

	if reg.Unregister("u1", a) {
		t.Fatalf("unregister with a superseded transport must be a no-op")
	}
	if c, ok := reg.Lookup("u1"); !ok || c.Transport != b {
		t.Fatalf("newer registration was removed")
	}
	if !reg.Unregister("u1", b) {
		t.Fatalf("unregister with the current transport must succeed")
	}
	if reg.Unregister("u1", b) {
		t.Fatalf("second unregister must report false")
	}
}

func TestRegistryTouchLiveness(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg := relay.NewRegistry(func() time.Time { return now })
	if reg.TouchLiveness("ghost") {
		t.Fatalf("touch on unknown user must report false")
	}

	c := reg.Register("u1", "Alice", relaytest.NewTransport("a"))
	if !c.LastLivenessAt().Equal(now) {
		t.Fatalf("liveness must start at registration time")
	}

	now = now.Add(20 * time.Second)
	if !reg.TouchLiveness("u1") {
		t.Fatalf("touch on registered user must report true")
	}
	if !c.LastLivenessAt().Equal(now) {
		t.Fatalf("liveness not updated: %v", c.LastLivenessAt())
	}
	if !c.ConnectedAt.Equal(now.Add(-20 * time.Second)) {
		t.Fatalf("connectedAt must not move on touch")
	}
}

func TestRegistryTouchLivenessForSupersededTransport(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg := relay.NewRegistry(func() time.Time { return now })
	a := relaytest.NewTransport("a")
	b := relaytest.NewTransport("b")

	reg.Register("u1", "Alice", a)
	c := reg.Register("u1", "Alice", b)
	if reg.IsCurrent("u1", a) || !reg.IsCurrent("u1", b) {
		t.Fatalf("only the newest transport is current")
	}

	now = now.Add(30 * time.Second)
	if reg.TouchLivenessFor("u1", a) {
		t.Fatalf("superseded transport renewed liveness")
	}
	if c.LastLivenessAt().Equal(now) {
		t.Fatalf("B's liveness moved on A's touch")
	}
	if !reg.TouchLivenessFor("u1", b) || !c.LastLivenessAt().Equal(now) {
		t.Fatalf("current transport must renew liveness")
	}
}

func TestRegistrySnapshotInsertionOrder(t *testing.T) {
	reg := relay.NewRegistry(nil)
	for _, id := range []string{"u3", "u1", "u2"} {
		reg.Register(id, "name-"+id, relaytest.NewTransport(id))
	}
	snap := reg.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	for i, want := range []string{"u3", "u1", "u2"} {
		if snap[i].UserID != want || snap[i].UserName != "name-"+want {
			t.Fatalf("entry %d: got %+v, want %s", i, snap[i], want)
		}
	}
}

func TestRegistryConcurrentSameUser(t *testing.T) {
	reg := relay.NewRegistry(nil)
	var wg sync.WaitGroup
	transports := make([]*relaytest.Transport, 50)
	for i := range transports {
		transports[i] = relaytest.NewTransport("t")
	}
	for _, tr := range transports {
		wg.Add(1)
		go func(tr *relaytest.Transport) {
			defer wg.Done()
			reg.Register("u1", "Alice", tr)
		}(tr)
	}
	wg.Wait()

	if reg.Count() != 1 {
		t.Fatalf("single-session invariant broken: %d entries", reg.Count())
	}
	c, _ := reg.Lookup("u1")
	open := 0
	for _, tr := range transports {
		if tr.CloseCalls() > 1 {
			t.Fatalf("a transport got %d close requests", tr.CloseCalls())
		}
		if tr.CloseCalls() == 0 {
			open++
			if c.Transport != tr {
				t.Fatalf("an unclosed transport is not the registered one")
			}
		}
	}
	if open != 1 {
		t.Fatalf("expected exactly one transport never asked to close, got %d", open)
	}
}

func TestRegistryClose(t *testing.T) {
	reg := relay.NewRegistry(nil)
	a := relaytest.NewTransport("a")
	b := relaytest.NewTransport("b")
	reg.Register("u1", "A", a)
	reg.Register("u2", "B", b)

	reg.Close()
	if reg.Count() != 0 {
		t.Fatalf("registry not cleared")
	}
	if a.IsOpen() || b.IsOpen() {
		t.Fatalf("transports not closed")
	}
}
