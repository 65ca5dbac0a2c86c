package middleware

import (
	midsec "PRelay/middleware/security"

	"github.com/gin-gonic/gin"
)

// 配置选项
type RouteOpt struct {
	IsAuth bool
	Scope  string
}

// Router registers routes with optional bearer-token protection.
type Router struct {
	auth midsec.Options
}

func NewRouter(auth midsec.Options) *Router {
	return &Router{auth: auth}
}

func (r *Router) chain(handler gin.HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	if !opt.IsAuth {
		return []gin.HandlerFunc{handler}
	}
	a := r.auth
	a.Scope = opt.Scope
	return []gin.HandlerFunc{midsec.Middleware(a), handler}
}

// 封装 POST
func (r *Router) POST(g gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	g.POST(path, r.chain(handler, opt)...)
}

// 封装 GET
func (r *Router) GET(g gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	g.GET(path, r.chain(handler, opt)...)
}
