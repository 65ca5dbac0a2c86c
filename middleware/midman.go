package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// Chain holds middlewares that can be added after the engine is built.
type Chain struct {
	mu   sync.RWMutex
	mids []gin.HandlerFunc
}

func NewChain(mids ...gin.HandlerFunc) *Chain {
	return &Chain{mids: mids}
}

func (m *Chain) Add(h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h)
}

// Use returns the handler mounted on the engine. Each request runs over a
// snapshot of the chain and stops at the first abort.
func (m *Chain) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		handlers := append([]gin.HandlerFunc{}, m.mids...)
		m.mu.RUnlock()

		for _, h := range handlers {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}
