package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"jobtracker/internal/config"
	"jobtracker/internal/models"

	"golang.org/x/time/rate"
)

const (
	clientKeyUnknown = "unknown"

	limiterIdleTTL    = 10 * time.Minute
	limiterMaxEntries = 10000
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
	cfg       config.APIRateLimitConfig
	now       func() time.Time
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*limiterEntry),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Wrap ограничивает частоту запросов на клиента. RPS <= 0 выключает лимит.
// keyFn решает, к какому бакету относится запрос.
func (l *rateLimiter) Wrap(keyFn func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.cfg.RPS <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !l.getLimiter(keyFn(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.limiters[key]; ok {
		e.lastSeen = now
		return e.lim
	}

	if len(l.limiters) >= limiterMaxEntries || now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweepLocked(now)
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = models.RateLimitBurst
	}
	e := &limiterEntry{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), burst), lastSeen: now}
	l.limiters[key] = e
	return e.lim
}

// sweepLocked выкидывает бакеты, не видевшие запросов дольше limiterIdleTTL.
// Если этого мало, удаляет самые старые до limiterMaxEntries-1.
func (l *rateLimiter) sweepLocked(now time.Time) {
	l.lastSweep = now
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) >= limiterIdleTTL {
			delete(l.limiters, k)
		}
	}
	for len(l.limiters) >= limiterMaxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range l.limiters {
			if oldestKey == "" || e.lastSeen.Before(oldest) {
				oldestKey, oldest = k, e.lastSeen
			}
		}
		delete(l.limiters, oldestKey)
	}
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// limiterKey: существующая сессия получает свой бакет, все остальное считается по адресу.
func (s *HTTPServer) limiterKey(r *http.Request) string {
	if id := s.sessionID(r); id != "" && s.sessions != nil {
		if sess, err := s.sessions.Get(r.Context(), id); err == nil && sess != nil {
			return "session:" + sess.ID()
		}
	}
	return remoteHost(r)
}
