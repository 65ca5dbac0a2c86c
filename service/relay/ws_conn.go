package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WsConn adapts a gorilla websocket to Transport. All writes go through a single
// writer goroutine fed by a bounded queue; a full queue closes the connection.
type WsConn struct {
	id   string
	conn *websocket.Conn
	log  *zap.Logger

	writeWait time.Duration

	mu       sync.Mutex
	sendChan chan []byte
	closed   bool
	open     atomic.Bool

	done chan struct{}
}

func NewWsConn(id string, conn *websocket.Conn, queue int, writeWait time.Duration, log *zap.Logger) *WsConn {
	if queue <= 0 {
		queue = 256
	}
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &WsConn{
		id:        id,
		conn:      conn,
		log:       log,
		writeWait: writeWait,
		sendChan:  make(chan []byte, queue),
		done:      make(chan struct{}),
	}
	c.open.Store(true)
	go c.writePump()
	return c
}

func (c *WsConn) ID() string { return c.id }

func (c *WsConn) IsOpen() bool { return c.open.Load() }

func (c *WsConn) Send(data []byte) SendOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return TransportClosed
	}
	select {
	case c.sendChan <- data:
		return Delivered
	default:
		// 慢客户端：队列已满，直接断开
		c.log.Warn("[WS] send queue full, closing", zap.String("conn", c.id))
		c.closeLocked()
		return TransportClosed
	}
}

// Close flushes frames already queued, sends a close frame and closes the socket.
func (c *WsConn) Close() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

func (c *WsConn) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.open.Store(false)
	close(c.sendChan)
}

// Done is closed once the writer has exited and the socket is closed.
func (c *WsConn) Done() <-chan struct{} { return c.done }

func (c *WsConn) writePump() {
	defer func() {
		c.open.Store(false)
		_ = c.conn.Close()
		close(c.done)
	}()

	for payload := range c.sendChan {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.log.Debug("[WS] write failed", zap.String("conn", c.id), zap.Error(err))
			c.Close()
			// 排空剩余，避免阻塞
			for range c.sendChan {
			}
			return
		}
	}

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.writeWait))
}
