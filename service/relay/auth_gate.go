package relay

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticated
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stopper is the part of *time.Timer the gate needs.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d. Tests replace it to fire timers by hand.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }

// Session is the handshake state of one transport.
type Session struct {
	transport Transport

	mu          sync.Mutex
	state       SessionState
	userID      string
	displayName string
	timer       Stopper
}

func (s *Session) Transport() Transport { return s.transport }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID is empty until the session is authenticated.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayName
}

// stopTimerLocked cancels the auth timer; later calls are no-ops.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// AuthGate owns a transport from open until it authenticates or is closed.
type AuthGate struct {
	reg      *Registry
	router   *Router
	presence *PresenceBroadcaster
	timeout  time.Duration
	after    AfterFunc
	log      *zap.Logger
}

func NewAuthGate(reg *Registry, router *Router, presence *PresenceBroadcaster, timeout time.Duration, after AfterFunc, log *zap.Logger) *AuthGate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if after == nil {
		after = realAfterFunc
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthGate{reg: reg, router: router, presence: presence, timeout: timeout, after: after, log: log}
}

// Open starts the handshake timer for t.
func (g *AuthGate) Open(t Transport) *Session {
	s := &Session{transport: t, state: Unauthenticated}
	s.mu.Lock()
	s.timer = g.after(g.timeout, func() { g.expire(s) })
	s.mu.Unlock()
	return s
}

// Authenticate handles an auth frame. Only the first valid one counts; auth frames
// on an authenticated or closed session are ignored.
func (g *AuthGate) Authenticate(s *Session, m AuthMsg) {
	s.mu.Lock()
	if s.state != Unauthenticated {
		s.mu.Unlock()
		return
	}
	if !m.Complete() {
		s.mu.Unlock()
		g.reply(s.transport, AuthError{Reason: ReasonMissingCredentials})
		return
	}
	s.stopTimerLocked()
	s.state = Authenticated
	s.userID = m.UserID
	s.displayName = m.UserName
	c := g.reg.Register(m.UserID, m.UserName, s.transport)
	s.mu.Unlock()

	g.log.Info("[auth] authenticated", zap.String("user", m.UserID), zap.String("conn", s.transport.ID()))
	g.reply(s.transport, AuthOK{UserID: m.UserID, OnlineCount: g.reg.Count()})
	g.presence.Join(c)
}

// OnClose runs when the transport is gone, whatever the state.
func (g *AuthGate) OnClose(s *Session) {
	s.mu.Lock()
	prev := s.state
	s.state = Closed
	s.stopTimerLocked()
	userID, name := s.userID, s.displayName
	s.mu.Unlock()

	if prev != Authenticated {
		return
	}
	if g.reg.Unregister(userID, s.transport) {
		g.log.Info("[auth] connection closed", zap.String("user", userID), zap.String("conn", s.transport.ID()))
		g.presence.Leave(userID, name)
	}
}

func (g *AuthGate) expire(s *Session) {
	s.mu.Lock()
	if s.state != Unauthenticated {
		s.mu.Unlock()
		return
	}
	s.state = Closed
	s.timer = nil
	s.mu.Unlock()

	g.log.Info("[auth] handshake timed out", zap.String("conn", s.transport.ID()))
	g.reply(s.transport, AuthError{Reason: ReasonAuthTimeout})
	s.transport.Close()
}

// reply writes straight to the session's transport; unauthenticated sessions are not in the registry.
func (g *AuthGate) reply(t Transport, m Outbound) {
	data, err := Encode(m)
	if err != nil {
		g.log.Error("[auth] encode failed", zap.Error(err))
		return
	}
	t.Send(data)
}
