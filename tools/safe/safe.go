package safe

import (
	"PRelay/logger"
	"PRelay/tools/errs"

	"go.uber.org/zap"
)

// Go starts a new goroutine that recovers from panic,
// so that a misbehaving handler doesn't crash the relay.
func Go(name string, f func()) {
	go Run(name, f)
}

// Run calls f on the current goroutine and logs a recovered panic instead of propagating it.
// It reports whether f returned normally.
func Run(name string, f func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[safe] panic recovered", zap.String("task", name), zap.Error(errs.ErrPanic(r)), zap.Stack("stack"))
			ok = false
		}
	}()
	f()
	return true
}

// DefaultString returns the value or the fallback when it is empty.
func DefaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
