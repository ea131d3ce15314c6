package chat

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// globalHeadroom scales the process-wide limiter relative to the
// per-session one, so one busy session cannot starve the others while
// the process as a whole stays bounded.
const globalHeadroom = 10

// RateLimiter bounds request rates per session, with a wider
// process-wide cap on top. Limiter entries live only as long as their
// session: the service drops them on reset and prunes idle ones during
// expiry sweeps.
type RateLimiter struct {
	global *rate.Limiter

	mu       sync.Mutex
	sessions map[string]*sessionLimiter

	perSession rate.Limit
	burst      int
	now        func() time.Time
}

type sessionLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing requestsPerSecond with
// the given burst per session. The process-wide cap is globalHeadroom
// times the per-session allowance.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		global:     rate.NewLimiter(rate.Limit(requestsPerSecond*globalHeadroom), burst*globalHeadroom),
		sessions:   make(map[string]*sessionLimiter),
		perSession: rate.Limit(requestsPerSecond),
		burst:      burst,
		now:        time.Now,
	}
}

// Allow checks if a request for the session should be allowed. The
// session bucket is consulted first so an over-limit session does not
// drain the global allowance for everyone else.
func (rl *RateLimiter) Allow(sessionID string) bool {
	rl.mu.Lock()
	sl, ok := rl.sessions[sessionID]
	if !ok {
		sl = &sessionLimiter{limiter: rate.NewLimiter(rl.perSession, rl.burst)}
		rl.sessions[sessionID] = sl
	}
	sl.lastSeen = rl.now()
	rl.mu.Unlock()

	if !sl.limiter.Allow() {
		return false
	}
	return rl.global.Allow()
}

// Forget drops the limiter state for a session. The next request for
// the same ID starts with a full burst again.
func (rl *RateLimiter) Forget(sessionID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.sessions, sessionID)
}

// PruneIdle removes limiter entries not seen for longer than maxAge and
// returns how many were removed. Keeps the session map bounded by live
// traffic rather than by every session ID ever seen.
func (rl *RateLimiter) PruneIdle(maxAge time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxAge)
	removed := 0
	for id, sl := range rl.sessions {
		if sl.lastSeen.Before(cutoff) {
			delete(rl.sessions, id)
			removed++
		}
	}
	return removed
}

// Tracked returns the number of sessions with live limiter state.
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.sessions)
}
