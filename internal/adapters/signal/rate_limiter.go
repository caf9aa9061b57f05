package signal

import (
	"sync"
	"time"

	"github.com/dkeye/webmumble/internal/core"
)

// attemptLimiter caps upstream connect attempts per browser session so
// a misbehaving frontend cannot hammer a Mumble server through us.
type attemptLimiter struct {
	mu       sync.Mutex
	history  map[core.SessionID][]time.Time
	limit    int
	interval time.Duration
}

func newAttemptLimiter(limit int, interval time.Duration) *attemptLimiter {
	return &attemptLimiter{
		history:  make(map[core.SessionID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *attemptLimiter) Allow(sid core.SessionID) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[sid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[sid] = fresh
	return true
}
