package relay_test

import (
	"strings"
	"testing"

	"PRelay/service/relay"
	"PRelay/service/relay/relaytest"
)

func TestNotifyUserTargeted(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.login(t, "u1", "Alice")
	bob, _ := h.login(t, "u2", "Bob")
	alice.Reset()

	out := h.srv.NotifyUser("u2", relay.Notification{Type: "new_message", Title: "New Message", Message: "hi"})
	if out != relay.Delivered {
		t.Fatalf("expected Delivered, got %s", out)
	}
	got := bob.MessagesOfType(relay.OutNotification)
	if len(got) != 1 || len(bob.Messages()) != 1 {
		t.Fatalf("u2 expected exactly one notification, got %+v", bob.Messages())
	}
	var n relay.Notification
	got[0].Decode(&n)
	if !strings.HasPrefix(n.ID, "notif_") || n.ID == "notif_" {
		t.Fatalf("generated id missing: %q", n.ID)
	}
	if n.CreatedAt != h.clock.Now().UnixMilli() {
		t.Fatalf("createdAt %d, want %d", n.CreatedAt, h.clock.Now().UnixMilli())
	}
	if n.Type != "new_message" || n.Title != "New Message" || n.Message != "hi" || n.Link != "" {
		t.Fatalf("payload altered: %+v", n)
	}
	if len(alice.Messages()) != 0 {
		t.Fatalf("other users must receive nothing")
	}
}

func TestNotifyKeepsProducerFields(t *testing.T) {
	h := newHarness(t)
	tr, _ := h.login(t, "u1", "Alice")

	h.srv.NotifyUser("u1", relay.Notification{ID: "n-1", Type: "course", Title: "Done", Message: "m", Link: "/c/1", CreatedAt: 42})
	var n relay.Notification
	tr.Messages()[0].Decode(&n)
	if n.ID != "n-1" || n.CreatedAt != 42 || n.Link != "/c/1" {
		t.Fatalf("producer fields overwritten: %+v", n)
	}
}

func TestNotifyOfflineUserIsSilent(t *testing.T) {
	h := newHarness(t)
	bob, _ := h.login(t, "u2", "Bob")

	if out := h.srv.NotifyUser("ghost", relay.Notification{Type: "x", Title: "t", Message: "m"}); out != relay.NotConnected {
		t.Fatalf("expected NotConnected, got %s", out)
	}
	if len(bob.Messages()) != 0 {
		t.Fatalf("no frame may be sent for an offline target")
	}
}

func TestBroadcastNotificationReachesEveryone(t *testing.T) {
	h := newHarness(t)
	a, _ := h.login(t, "u1", "A")
	b, _ := h.login(t, "u2", "B")
	c, _ := h.login(t, "u3", "C")
	a.Reset()
	b.Reset()

	if n := h.srv.BroadcastNotification(relay.Notification{Type: "system", Title: "Maintenance", Message: "soon"}); n != 3 {
		t.Fatalf("expected 3 deliveries, got %d", n)
	}
	var ids []string
	for i, tr := range [][]relaytest.Envelope{a.Messages(), b.Messages(), c.Messages()} {
		if len(tr) != 1 || tr[0].Type != string(relay.OutNotification) {
			t.Fatalf("user %d expected exactly one notification, got %+v", i, tr)
		}
		var n relay.Notification
		tr[0].Decode(&n)
		ids = append(ids, n.ID)
	}
	if ids[0] != ids[1] || ids[1] != ids[2] {
		t.Fatalf("broadcast must carry one id, got %v", ids)
	}
}

func TestNotificationIDsAreUnique(t *testing.T) {
	h := newHarness(t)
	tr, _ := h.login(t, "u1", "A")
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		h.srv.NotifyUser("u1", relay.Notification{Type: "x"})
	}
	for _, e := range tr.Messages() {
		var n relay.Notification
		e.Decode(&n)
		if seen[n.ID] {
			t.Fatalf("duplicate id %s", n.ID)
		}
		seen[n.ID] = true
	}
	if len(seen) != 100 {
		t.Fatalf("expected 100 ids, got %d", len(seen))
	}
}
