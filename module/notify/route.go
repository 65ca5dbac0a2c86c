package notify

import (
	"PRelay/middleware"
	"PRelay/tools/security"

	"github.com/gin-gonic/gin"
)

// Register mounts the producer API. With auth=false the routes skip token checks.
func Register(r gin.IRoutes, rt *middleware.Router, h *Handler, auth bool) {
	rt.GET(r, "/health", h.HandlerHealth, middleware.RouteOpt{})
	rt.POST(r, "/api/notify/user/:userId", h.HandlerNotifyUser, middleware.RouteOpt{IsAuth: auth, Scope: security.ScopeNotify})
	rt.POST(r, "/api/notify/broadcast", h.HandlerBroadcast, middleware.RouteOpt{IsAuth: auth, Scope: security.ScopeNotify})
	rt.GET(r, "/api/presence/online", h.HandlerOnline, middleware.RouteOpt{IsAuth: auth, Scope: security.ScopePresence})
	rt.GET(r, "/api/presence/online/:userId", h.HandlerUserOnline, middleware.RouteOpt{IsAuth: auth, Scope: security.ScopePresence})
}
