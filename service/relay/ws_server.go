package relay

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// newUpgrader accepts any origin when origins is empty, and requests without an Origin header.
func newUpgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[strings.ToLower(strings.TrimRight(origin, "/"))]
			return ok
		},
	}
}

// HandleWS ===== WebSocket 入口 =====
func (s *Server) HandleWS(c *gin.Context) {
	s.ServeWS(c.Writer, c.Request)
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		s.log.Debug("[WS] upgrade failed", zap.Error(err))
		return
	}
	if s.opts.ReadLimit > 0 {
		ws.SetReadLimit(s.opts.ReadLimit)
	}

	conn := NewWsConn(uuid.NewString(), ws, s.opts.SendQueue, s.opts.WriteWait, s.log.Named("ws"))
	sess := s.OpenSession(conn)
	defer func() {
		conn.Close()
		s.CloseSession(sess)
		<-conn.Done()
	}()

	var limiter *rate.Limiter
	if s.opts.InboundRate > 0 {
		burst := s.opts.InboundBurst
		if burst <= 0 {
			burst = int(s.opts.InboundRate) + 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.opts.InboundRate), burst)
	}

	// ---- 读循环：只读，不写；写由 WsConn 的写协程负责 ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			s.logReadErr(conn.ID(), sess.UserID(), rerr)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		if limiter != nil && !limiter.Allow() {
			s.log.Debug("[WS] inbound rate exceeded, frame dropped", zap.String("conn", conn.ID()))
			continue
		}

		if err := s.HandleFrame(sess, data); err != nil {
			if IsParseError(err) {
				sample := data
				if len(sample) > 256 {
					sample = sample[:256]
				}
				s.log.Debug("[WS] frame dropped", zap.String("conn", conn.ID()), zap.Error(err), zap.ByteString("sample", sample))
				continue
			}
			s.log.Warn("[WS] handler error", zap.String("conn", conn.ID()), zap.String("user", sess.UserID()), zap.Error(err))
		}
	}
}

func (s *Server) logReadErr(connID, userID string, err error) {
	fields := []zap.Field{zap.String("conn", connID), zap.String("user", userID), zap.Error(err)}
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		s.log.Debug("[WS] peer closed", fields...)
	case isTimeout(err):
		s.log.Info("[WS] read timeout", fields...)
	default:
		s.log.Debug("[WS] read err", fields...)
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
