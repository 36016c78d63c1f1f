package server

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"medmarket/core/logging"
)

const rateLimitWindow = 60 * time.Second

// Progressive ban durations
var banDurations = []time.Duration{
	10 * time.Minute,
	1 * time.Hour,
	24 * time.Hour,
}

// ClientLimiter is a per-client sliding window limiter. Clients that exceed
// the limit are banned for progressively longer periods.
type ClientLimiter struct {
	lock      sync.Mutex
	perWindow int
	requests  map[string][]time.Time
	banned    map[string]time.Time
	banCounts map[string]int
	lastSweep time.Time
	now       func() time.Time
	log       *slog.Logger
}

// NewClientLimiter allows perMinute requests per client per minute. A
// non-positive value disables limiting.
func NewClientLimiter(perMinute int, log *slog.Logger) *ClientLimiter {
	if log == nil {
		log = logging.Discard()
	}
	return &ClientLimiter{
		perWindow: perMinute,
		requests:  make(map[string][]time.Time),
		banned:    make(map[string]time.Time),
		banCounts: make(map[string]int),
		now:       time.Now,
		log:       log,
	}
}

// Allow records a request from client and reports whether it may proceed.
func (l *ClientLimiter) Allow(client string) bool {
	if l.perWindow <= 0 {
		return true
	}
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	l.sweepLocked(now)
	if l.isBannedLocked(client, now) {
		return false
	}
	var recent []time.Time
	for _, t := range l.requests[client] {
		if now.Sub(t) < rateLimitWindow {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	l.requests[client] = recent
	if len(recent) <= l.perWindow {
		return true
	}

	l.banCounts[client]++
	n := l.banCounts[client]
	dur := banDurations[len(banDurations)-1]
	if n <= len(banDurations) {
		dur = banDurations[n-1]
	}
	l.banned[client] = now.Add(dur)
	delete(l.requests, client)
	l.log.Warn("[RATE LIMIT] client banned", "client", client, "duration", dur, "violation", n)
	return false
}

// sweepLocked drops the windows of clients idle for a full window, at most
// once per window.
func (l *ClientLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < rateLimitWindow {
		return
	}
	l.lastSweep = now
	for client, times := range l.requests {
		if len(times) == 0 || now.Sub(times[len(times)-1]) >= rateLimitWindow {
			delete(l.requests, client)
		}
	}
}

// Banned reports whether client is currently banned.
func (l *ClientLimiter) Banned(client string) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.isBannedLocked(client, l.now())
}

func (l *ClientLimiter) isBannedLocked(client string, now time.Time) bool {
	expiry, ok := l.banned[client]
	if !ok {
		return false
	}
	if now.After(expiry) {
		delete(l.banned, client)
		l.log.Info("[UNBAN] ban expired", "client", client)
		return false
	}
	return true
}

// Middleware rejects requests from banned or over-limit clients.
func (l *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !l.Allow(host) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
