package security

import (
	"net/http"

	"PRelay/tools/errs"
	"PRelay/tools/security"

	"github.com/gin-gonic/gin"
)

// context keys
const (
	PPCtxClaimsKey  = "producerClaims"  // *security.ProducerClaims
	PPCtxSubjectKey = "producerSubject" // string
)

type Options struct {
	JWT security.Options
	// 为空时只校验签名
	Scope string
}

// Middleware verifies the producer bearer token and stores its claims in the context.
func Middleware(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := security.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenMissing)
			return
		}
		claims, err := security.Verify(opts.JWT, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
		if opts.Scope != "" && !claims.HasScope(opts.Scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, errs.ErrTokenInvalid.WithDetail("scope "+opts.Scope+" required"))
			return
		}
		c.Set(PPCtxClaimsKey, claims)
		c.Set(PPCtxSubjectKey, claims.Subject)
		c.Next()
	}
}

// Claims returns the claims stored by Middleware, if any.
func Claims(c *gin.Context) (*security.ProducerClaims, bool) {
	v, ok := c.Get(PPCtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.ProducerClaims)
	return claims, ok
}
