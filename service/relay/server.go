package relay

import (
	"errors"
	"sync"
	"time"

	"PRelay/global/config"
	"PRelay/tools/ids"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Options struct {
	AuthTimeout       time.Duration
	HeartbeatInterval time.Duration
	LivenessThreshold time.Duration

	SendQueue      int
	ReadLimit      int64
	WriteWait      time.Duration
	InboundRate    float64
	InboundBurst   int
	AllowedOrigins []string

	NodeNum int64

	// 以下用于测试注入
	Clock     func() time.Time
	AfterFunc AfterFunc
	Mirror    PresenceMirror
	Logger    *zap.Logger
}

func OptionsFromConfig(cfg *config.AppConfig) Options {
	r := cfg.Relay
	return Options{
		AuthTimeout:       r.AuthTimeout,
		HeartbeatInterval: r.HeartbeatInterval,
		LivenessThreshold: r.LivenessThreshold,
		SendQueue:         r.SendQueue,
		ReadLimit:         r.ReadLimit,
		WriteWait:         r.WriteWait,
		InboundRate:       r.InboundRate,
		InboundBurst:      r.InboundBurst,
		AllowedOrigins:    r.AllowedOrigins,
		NodeNum:           cfg.NodeNum,
	}
}

// Server wires the relay components together and owns their lifecycle.
type Server struct {
	opts Options
	log  *zap.Logger

	reg       *Registry
	router    *Router
	presence  *PresenceBroadcaster
	notifier  *NotificationDispatcher
	typing    *TypingRelay
	gate      *AuthGate
	heartbeat *HeartbeatMonitor
	disp      *Dispatcher
	upgrader  *websocket.Upgrader

	sessions sync.WaitGroup
	open     sync.Map // *Session -> struct{}
	stopOnce sync.Once
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	reg := NewRegistry(clock)
	router := NewRouter(reg, log.Named("router"))
	presence := NewPresenceBroadcaster(reg, router, opts.Mirror, log.Named("presence"))
	s := &Server{
		opts:      opts,
		log:       log,
		reg:       reg,
		router:    router,
		presence:  presence,
		notifier:  NewNotificationDispatcher(router, ids.NewGenerator(opts.NodeNum), clock),
		typing:    NewTypingRelay(router),
		gate:      NewAuthGate(reg, router, presence, opts.AuthTimeout, opts.AfterFunc, log.Named("auth")),
		heartbeat: NewHeartbeatMonitor(reg, presence, opts.HeartbeatInterval, opts.LivenessThreshold, clock, log.Named("heartbeat")),
		disp:      NewDispatcher(),
		upgrader:  newUpgrader(opts.AllowedOrigins),
	}
	return s
}

func (s *Server) Registry() *Registry               { return s.reg }
func (s *Server) Router() *Router                   { return s.router }
func (s *Server) Presence() *PresenceBroadcaster    { return s.presence }
func (s *Server) Typing() *TypingRelay              { return s.typing }
func (s *Server) Heartbeat() *HeartbeatMonitor      { return s.heartbeat }
func (s *Server) Disp() *Dispatcher                 { return s.disp }
func (s *Server) Notifier() *NotificationDispatcher { return s.notifier }
func (s *Server) Logger() *zap.Logger               { return s.log }
func (s *Server) Gate() *AuthGate                   { return s.gate }
func (s *Server) Options() Options                  { return s.opts }
func (s *Server) context() *Context                 { return &Context{S: s} }

func (s *Server) NotifyUser(userID string, n Notification) SendOutcome {
	return s.notifier.NotifyUser(userID, n)
}

func (s *Server) BroadcastNotification(n Notification) int {
	return s.notifier.BroadcastNotification(n)
}

func (s *Server) IsUserOnline(userID string) bool {
	_, ok := s.reg.Lookup(userID)
	return ok
}

func (s *Server) GetOnlineCount() int { return s.reg.Count() }

func (s *Server) OnlineUsers() []PresenceEntry { return s.reg.Snapshot() }

// Start runs the heartbeat sweep.
func (s *Server) Start() {
	s.heartbeat.Start()
	s.log.Info("[relay] started",
		zap.Duration("authTimeout", s.gate.timeout),
		zap.Duration("heartbeat", s.heartbeat.interval),
		zap.Duration("liveness", s.heartbeat.threshold))
}

// Stop halts the heartbeat, closes every registered transport and waits for
// the connection loops to finish or for timeout to elapse. Queued presence
// mirror calls are flushed last.
func (s *Server) Stop(timeout time.Duration) {
	s.stopOnce.Do(func() {
		s.heartbeat.Stop()
		s.reg.Close()
		// 未认证的连接不在 registry 中
		s.open.Range(func(k, _ any) bool {
			k.(*Session).Transport().Close()
			return true
		})

		done := make(chan struct{})
		go func() {
			s.sessions.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			s.log.Warn("[relay] stop timed out waiting for connections")
		}
		// leave sequences above queue their mirror calls first
		s.presence.Close()
		s.log.Info("[relay] stopped")
	})
}

// OpenSession hands a new transport to the auth gate. Every session must be
// finished with CloseSession.
func (s *Server) OpenSession(t Transport) *Session {
	s.sessions.Add(1)
	sess := s.gate.Open(t)
	s.open.Store(sess, struct{}{})
	return sess
}

func (s *Server) CloseSession(sess *Session) {
	defer s.sessions.Done()
	s.open.Delete(sess)
	s.gate.OnClose(sess)
}

// HandleFrame parses and routes one inbound frame. A *ParseError means the frame
// was dropped; handler errors are returned as is. Frames from a session that is
// no longer the user's registered connection are ignored.
func (s *Server) HandleFrame(sess *Session, raw []byte) error {
	m, err := ParseInbound(raw)
	if err != nil {
		return err
	}
	if auth, ok := m.(AuthMsg); ok {
		s.gate.Authenticate(sess, auth)
		return nil
	}
	if sess.State() != Authenticated {
		return nil
	}
	// 被同一用户的新连接顶替后，旧连接剩余的帧一律丢弃
	if !s.reg.IsCurrent(sess.UserID(), sess.Transport()) {
		return nil
	}
	return s.disp.Dispatch(s.context(), m, sess)
}

// IsParseError reports whether err came from a malformed frame.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
