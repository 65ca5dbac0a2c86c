package relay

import (
	"context"
	"sync"
	"time"

	"PRelay/tools/safe"

	"go.uber.org/zap"
)

// PresenceMirror publishes online state outside the process (e.g. redis).
// Calls run one at a time on a single worker, in the order the relay issued
// them; failures are only logged.
type PresenceMirror interface {
	Online(ctx context.Context, userID, displayName string) error
	Touch(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
}

const (
	mirrorTimeout = 2 * time.Second
	mirrorQueue   = 1024
)

type mirrorJob struct {
	op     string
	userID string
	fn     func(context.Context, PresenceMirror) error
}

type PresenceBroadcaster struct {
	reg    *Registry
	router *Router
	mirror PresenceMirror
	log    *zap.Logger

	jobs      chan mirrorJob
	stopCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewPresenceBroadcaster(reg *Registry, router *Router, mirror PresenceMirror, log *zap.Logger) *PresenceBroadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	p := &PresenceBroadcaster{
		reg:    reg,
		router: router,
		mirror: mirror,
		log:    log,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if mirror == nil {
		close(p.done)
		return p
	}
	p.jobs = make(chan mirrorJob, mirrorQueue)
	safe.Go("presence-mirror", p.mirrorLoop)
	return p
}

// Close stops the mirror worker after it has run every call already queued.
func (p *PresenceBroadcaster) Close() {
	p.closeOnce.Do(func() { close(p.stopCh) })
	<-p.done
}

// Join announces c to everyone else, then sends c the full presence list.
// The list is taken after registration, so it includes c itself.
func (p *PresenceBroadcaster) Join(c *Connection) {
	p.router.Broadcast(UserOnline{UserID: c.UserID, UserName: c.DisplayName}, c.UserID)
	p.SendSnapshot(c.UserID)
	p.mirrorAsync("online", c.UserID, func(ctx context.Context, m PresenceMirror) error {
		return m.Online(ctx, c.UserID, c.DisplayName)
	})
}

// Leave announces userID's departure to everyone else.
func (p *PresenceBroadcaster) Leave(userID, displayName string) {
	p.router.Broadcast(UserOffline{UserID: userID, UserName: displayName}, userID)
	p.mirrorAsync("offline", userID, func(ctx context.Context, m PresenceMirror) error {
		return m.Offline(ctx, userID)
	})
}

// SendSnapshot answers a presence_request.
func (p *PresenceBroadcaster) SendSnapshot(userID string) SendOutcome {
	return p.router.SendTargeted(userID, PresenceList{Users: p.reg.Snapshot()})
}

// Touched renews the mirrored presence after a liveness signal.
func (p *PresenceBroadcaster) Touched(userID string) {
	p.mirrorAsync("touch", userID, func(ctx context.Context, m PresenceMirror) error {
		return m.Touch(ctx, userID)
	})
}

// mirrorAsync queues a mirror call. A full queue drops the call; the mirror
// TTL repairs the key on the next ping or expiry.
func (p *PresenceBroadcaster) mirrorAsync(op, userID string, fn func(context.Context, PresenceMirror) error) {
	if p.mirror == nil {
		return
	}
	select {
	case <-p.stopCh:
		return
	default:
	}
	select {
	case p.jobs <- mirrorJob{op: op, userID: userID, fn: fn}:
	default:
		p.log.Warn("[presence] mirror queue full, call dropped", zap.String("op", op), zap.String("user", userID))
	}
}

func (p *PresenceBroadcaster) mirrorLoop() {
	defer close(p.done)
	for {
		select {
		case job := <-p.jobs:
			p.runMirror(job)
		case <-p.stopCh:
			for {
				select {
				case job := <-p.jobs:
					p.runMirror(job)
				default:
					return
				}
			}
		}
	}
}

func (p *PresenceBroadcaster) runMirror(job mirrorJob) {
	safe.Run("presence-mirror-"+job.op, func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := job.fn(ctx, p.mirror); err != nil {
			p.log.Warn("[presence] mirror failed", zap.String("op", job.op), zap.String("user", job.userID), zap.Error(err))
		}
	})
}
