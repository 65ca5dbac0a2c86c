package notify

import (
	"net/http"

	"PRelay/service/relay"
	"PRelay/tools/errs"

	"github.com/gin-gonic/gin"
)

// Presence is the query side the API needs from the relay.
type Presence interface {
	IsUserOnline(userID string) bool
	GetOnlineCount() int
	OnlineUsers() []relay.PresenceEntry
}

// Service is the relay surface exposed over HTTP.
type Service interface {
	relay.NotificationSink
	Presence
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler { return &Handler{svc: svc} }

func abortCode(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errs.As(err))
}

func (h *Handler) bind(c *gin.Context) (Payload, bool) {
	var p Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		abortCode(c, http.StatusBadRequest, errs.ErrArgs.WrapMsg("invalid json", "err", err.Error()))
		return Payload{}, false
	}
	if err := p.Validate(); err != nil {
		abortCode(c, http.StatusBadRequest, err)
		return Payload{}, false
	}
	return p, true
}

// HandlerNotifyUser POST /api/notify/user/:userId
func (h *Handler) HandlerNotifyUser(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		abortCode(c, http.StatusBadRequest, errs.ErrArgs.WrapMsg("missing field", "field", "userId"))
		return
	}
	p, ok := h.bind(c)
	if !ok {
		return
	}
	out := h.svc.NotifyUser(userID, p.Notification())
	c.JSON(http.StatusAccepted, gin.H{
		"userId":    userID,
		"delivered": out == relay.Delivered,
		"outcome":   out.String(),
	})
}

// HandlerBroadcast POST /api/notify/broadcast
func (h *Handler) HandlerBroadcast(c *gin.Context) {
	p, ok := h.bind(c)
	if !ok {
		return
	}
	n := h.svc.BroadcastNotification(p.Notification())
	c.JSON(http.StatusAccepted, gin.H{"delivered": n})
}

// HandlerOnline GET /api/presence/online
func (h *Handler) HandlerOnline(c *gin.Context) {
	users := h.svc.OnlineUsers()
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// HandlerUserOnline GET /api/presence/online/:userId
func (h *Handler) HandlerUserOnline(c *gin.Context) {
	userID := c.Param("userId")
	c.JSON(http.StatusOK, gin.H{"userId": userID, "online": h.svc.IsUserOnline(userID)})
}

// HandlerHealth GET /health
func (h *Handler) HandlerHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "online": h.svc.GetOnlineCount()})
}
