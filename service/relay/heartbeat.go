package relay

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HeartbeatMonitor evicts connections that have not sent a liveness signal
// within the threshold.
type HeartbeatMonitor struct {
	reg       *Registry
	presence  *PresenceBroadcaster
	interval  time.Duration
	threshold time.Duration
	clock     func() time.Time
	log       *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

func NewHeartbeatMonitor(reg *Registry, presence *PresenceBroadcaster, interval, threshold time.Duration, clock func() time.Time, log *zap.Logger) *HeartbeatMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if threshold <= 0 {
		threshold = 45 * time.Second
	}
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HeartbeatMonitor{
		reg:       reg,
		presence:  presence,
		interval:  interval,
		threshold: threshold,
		clock:     clock,
		log:       log,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (h *HeartbeatMonitor) Start() {
	h.startOnce.Do(func() { go h.loop() })
}

// Stop ends the sweep loop and waits for it when it was started.
func (h *HeartbeatMonitor) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	started := true
	h.startOnce.Do(func() { started = false })
	if started {
		<-h.done
	}
}

func (h *HeartbeatMonitor) loop() {
	defer close(h.done)
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if n := h.SweepOnce(h.clock()); n > 0 {
				h.log.Info("[heartbeat] evicted stale connections", zap.Int("count", n))
			}
		case <-h.stopCh:
			return
		}
	}
}

// SweepOnce runs one pass over a registry snapshot and returns how many connections it evicted.
func (h *HeartbeatMonitor) SweepOnce(now time.Time) int {
	evicted := 0
	for _, c := range h.reg.Connections() {
		if now.Sub(c.LastLivenessAt()) <= h.threshold {
			continue
		}
		c.Transport.Close()
		if h.reg.Unregister(c.UserID, c.Transport) {
			evicted++
			h.log.Debug("[heartbeat] evict", zap.String("user", c.UserID), zap.Time("lastLiveness", c.LastLivenessAt()))
			h.presence.Leave(c.UserID, c.DisplayName)
		}
	}
	return evicted
}
