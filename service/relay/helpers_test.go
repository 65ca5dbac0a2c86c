package relay_test

import (
	"fmt"
	"testing"
	"time"

	"PRelay/service/relay"
	"PRelay/service/relay/handlers"
	"PRelay/service/relay/relaytest"
)

type harness struct {
	srv    *relay.Server
	timers *relaytest.Timers
	clock  *relaytest.Clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := relaytest.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	timers := &relaytest.Timers{}
	srv := relay.NewServer(relay.Options{Clock: clock.Now, AfterFunc: timers.AfterFunc})
	handlers.RegisterDefaults(srv)
	return &harness{srv: srv, timers: timers, clock: clock}
}

func (h *harness) connect(id string) (*relaytest.Transport, *relay.Session) {
	tr := relaytest.NewTransport(id)
	return tr, h.srv.OpenSession(tr)
}

func (h *harness) send(t *testing.T, sess *relay.Session, frame string) {
	t.Helper()
	if err := h.srv.HandleFrame(sess, []byte(frame)); err != nil {
		t.Fatalf("HandleFrame(%s): %v", frame, err)
	}
}

func authFrame(userID, name string) string {
	return fmt.Sprintf(`{"type":"auth","payload":{"userId":%q,"userName":%q}}`, userID, name)
}

func typingFrame(typ, conv, target string) string {
	return fmt.Sprintf(`{"type":%q,"payload":{"conversationId":%q,"targetUserId":%q}}`, typ, conv, target)
}

// login opens a session and authenticates it, then forgets the handshake frames.
func (h *harness) login(t *testing.T, userID, name string) (*relaytest.Transport, *relay.Session) {
	t.Helper()
	tr, sess := h.connect("conn-" + userID + "-" + name)
	h.send(t, sess, authFrame(userID, name))
	if sess.State() != relay.Authenticated {
		t.Fatalf("login %s: state %s", userID, sess.State())
	}
	tr.Reset()
	return tr, sess
}
