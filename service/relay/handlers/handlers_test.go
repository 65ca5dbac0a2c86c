package handlers_test

import (
	"fmt"
	"testing"
	"time"

	"PRelay/service/relay"
	"PRelay/service/relay/handlers"
	"PRelay/service/relay/relaytest"
)

type env struct {
	srv   *relay.Server
	clock *relaytest.Clock
}

func newEnv() *env {
	clock := relaytest.NewClock(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))
	timers := &relaytest.Timers{}
	srv := relay.NewServer(relay.Options{Clock: clock.Now, AfterFunc: timers.AfterFunc})
	handlers.RegisterDefaults(srv)
	return &env{srv: srv, clock: clock}
}

func (e *env) login(t *testing.T, userID string) (*relaytest.Transport, *relay.Session) {
	t.Helper()
	tr := relaytest.NewTransport("conn-" + userID)
	sess := e.srv.OpenSession(tr)
	e.frame(t, sess, fmt.Sprintf(`{"type":"auth","payload":{"userId":%q,"userName":"n-%s"}}`, userID, userID))
	return tr, sess
}

func (e *env) frame(t *testing.T, sess *relay.Session, raw string) {
	t.Helper()
	if err := e.srv.HandleFrame(sess, []byte(raw)); err != nil {
		t.Fatalf("HandleFrame(%s): %v", raw, err)
	}
}

func TestRegisterDefaultsCoversPostAuthTypes(t *testing.T) {
	e := newEnv()
	for _, typ := range []relay.InboundType{relay.InPing, relay.InPresenceRequest, relay.InTypingStart, relay.InTypingStop} {
		if e.srv.Disp().GetHandler(typ) == nil {
			t.Fatalf("no handler for %s", typ)
		}
	}
	if e.srv.Disp().GetHandler(relay.InAuth) != nil {
		t.Fatalf("auth belongs to the gate, not the dispatcher")
	}
}

func TestPingTouchesLivenessSilently(t *testing.T) {
	e := newEnv()
	tr, sess := e.login(t, "u1")
	tr.Reset()

	now := e.clock.Advance(20 * time.Second)
	e.frame(t, sess, `{"type":"ping"}`)

	c, _ := e.srv.Registry().Lookup("u1")
	if !c.LastLivenessAt().Equal(now) {
		t.Fatalf("liveness not renewed: %v", c.LastLivenessAt())
	}
	if len(tr.Messages()) != 0 {
		t.Fatalf("ping must not be answered")
	}
}

func TestPingAfterEvictionIsNoop(t *testing.T) {
	e := newEnv()
	_, sess := e.login(t, "u1")
	e.srv.Registry().Unregister("u1", sess.Transport())

	e.frame(t, sess, `{"type":"ping"}`)
	if e.srv.IsUserOnline("u1") {
		t.Fatalf("ping must not re-register")
	}
}

func TestPresenceRequestRepliesToRequesterOnly(t *testing.T) {
	e := newEnv()
	a, _ := e.login(t, "u1")
	b, sessB := e.login(t, "u2")
	a.Reset()
	b.Reset()

	e.frame(t, sessB, `{"type":"presence_request"}`)
	if len(a.Messages()) != 0 {
		t.Fatalf("presence_list leaked to another user")
	}
	got := b.MessagesOfType(relay.OutPresenceList)
	if len(got) != 1 {
		t.Fatalf("expected one presence_list, got %d", len(got))
	}
	var pl relay.PresenceList
	got[0].Decode(&pl)
	if len(pl.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(pl.Users))
	}
}

func TestTypingIsolation(t *testing.T) {
	e := newEnv()
	a, sessA := e.login(t, "u1")
	b, _ := e.login(t, "u2")
	c, _ := e.login(t, "u3")
	a.Reset()
	b.Reset()
	c.Reset()

	e.frame(t, sessA, `{"type":"typing_start","payload":{"conversationId":"conv-9","targetUserId":"u2"}}`)
	e.frame(t, sessA, `{"type":"typing_stop","payload":{"conversationId":"conv-9","targetUserId":"u2"}}`)

	got := b.MessagesOfType(relay.OutTypingIndicator)
	if len(got) != 2 {
		t.Fatalf("target expected 2 typing indicators, got %d", len(got))
	}
	var start, stop relay.TypingIndicator
	got[0].Decode(&start)
	got[1].Decode(&stop)
	if start.UserID != "u1" || start.ConversationID != "conv-9" || !start.IsTyping || stop.IsTyping {
		t.Fatalf("bad indicators %+v %+v", start, stop)
	}
	if len(a.Messages()) != 0 || len(c.Messages()) != 0 {
		t.Fatalf("typing leaked to sender or bystander")
	}
}

func TestTypingToSelfOrOfflineDropped(t *testing.T) {
	e := newEnv()
	a, sessA := e.login(t, "u1")
	a.Reset()

	e.frame(t, sessA, `{"type":"typing_start","payload":{"conversationId":"c","targetUserId":"u1"}}`)
	e.frame(t, sessA, `{"type":"typing_start","payload":{"conversationId":"c","targetUserId":"ghost"}}`)
	if len(a.Messages()) != 0 {
		t.Fatalf("typing must never echo to the sender")
	}
}

func TestTypingHandlerRejectsWrongMessage(t *testing.T) {
	e := newEnv()
	_, sess := e.login(t, "u1")
	h := handlers.NewTypingStartHandler()
	if err := h.Handle(&relay.Context{S: e.srv}, relay.PingMsg{}, sess); err == nil {
		t.Fatalf("expected an error for a non-typing message")
	}
}
