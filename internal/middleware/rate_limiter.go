package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"ventafacil/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// windowEntry counts requests from one IP within a fixed window.
type windowEntry struct {
	count     int
	windowEnd time.Time
}

// windowLimiter is a per-IP fixed-window counter.
type windowLimiter struct {
	name   string
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*windowEntry
}

func newWindowLimiter(name string, limit int, window time.Duration) *windowLimiter {
	return &windowLimiter{
		name:    name,
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*windowEntry),
	}
}

// allow records a hit and reports whether it is within the limit, plus the
// end of the current window.
func (l *windowLimiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[ip]
	if !ok || now.After(e.windowEnd) {
		e = &windowEntry{windowEnd: now.Add(l.window)}
		l.entries[ip] = e
	}
	e.count++
	return e.count <= l.limit, e.windowEnd
}

// purge drops expired windows so IPs that never return do not accumulate.
func (l *windowLimiter) purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for ip, e := range l.entries {
		if now.After(e.windowEnd) {
			delete(l.entries, ip)
			n++
		}
	}
	return n
}

func (l *windowLimiter) middleware(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, end := l.allow(c.ClientIP())
		if !ok {
			retry := int(time.Until(end).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			log.Warn().
				Str("request_id", c.GetString(RequestIDKey)).
				Str("limiter", l.name).
				Str("ip", c.ClientIP()).
				Msg("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// ── Registry + purge goroutine ───────────────────────────────────────────────

const purgeInterval = 5 * time.Minute

var (
	limiters     []*windowLimiter
	limitersMu   sync.Mutex
	purgeStarted sync.Once
)

func register(l *windowLimiter) {
	limitersMu.Lock()
	limiters = append(limiters, l)
	limitersMu.Unlock()
	purgeStarted.Do(func() { go purgeLoop() })
}

func purgeLoop() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for range ticker.C {
		limitersMu.Lock()
		for _, l := range limiters {
			if n := l.purge(); n > 0 {
				log.Debug().Str("limiter", l.name).Int("purged", n).Msg("rate limiter entries purged")
			}
		}
		limitersMu.Unlock()
	}
}

// LoginRateLimiter limits login attempts per IP per minute.
func LoginRateLimiter(perMinute int) gin.HandlerFunc {
	l := newWindowLimiter("login", perMinute, time.Minute)
	register(l)
	return l.middleware("Demasiados intentos de inicio de sesión. Intenta en 1 minuto.")
}

// RateLimiter is the general per-IP limiter for the whole API.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	l := newWindowLimiter("api", limit, window)
	register(l)
	return l.middleware("Demasiadas solicitudes. Intenta nuevamente en un momento.")
}
