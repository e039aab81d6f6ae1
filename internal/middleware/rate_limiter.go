package middleware

import (
	"net/http"
	"sync"
	"time"

	"atmricky/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// windowCounter tracks attempts per IP within a fixed window.
type windowCounter struct {
	count     int
	windowEnd time.Time
}

type ipLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*windowCounter
}

func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	return &ipLimiter{limit: limit, window: window, entries: make(map[string]*windowCounter)}
}

// allow records one attempt for ip and reports whether it is within the limit,
// plus the end of the current window.
func (l *ipLimiter) allow(ip string, now time.Time) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[ip]
	if !ok || now.After(entry.windowEnd) {
		entry = &windowCounter{windowEnd: now.Add(l.window)}
		l.entries[ip] = entry
	}
	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

// purge drops expired entries so IPs that never return do not accumulate.
func (l *ipLimiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for ip, entry := range l.entries {
		if now.After(entry.windowEnd) {
			delete(l.entries, ip)
			purged++
		}
	}
	return purged
}

const purgeInterval = 5 * time.Minute

func (l *ipLimiter) startPurge(name string) {
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for now := range ticker.C {
			if n := l.purge(now); n > 0 {
				log.Debug().Str("limiter", name).Int("entries_purged", n).Msg("rate limiter purged")
			}
		}
	}()
}

// LoginRateLimiter limits POST /login attempts per IP per minute. The body is
// plain text like every other /login error.
func LoginRateLimiter(limit int) gin.HandlerFunc {
	if limit <= 0 {
		limit = 20
	}
	l := newIPLimiter(limit, time.Minute)
	l.startPurge("login")
	return func(c *gin.Context) {
		if ok, _ := l.allow(c.ClientIP(), time.Now()); !ok {
			apierror.Text(c, http.StatusTooManyRequests, "Demasiados intentos de login. Intente en 1 minuto.")
			return
		}
		c.Next()
	}
}

// RateLimiter is the general per-IP limiter applied to every route.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	l := newIPLimiter(limit, window)
	l.startPurge("api")
	return func(c *gin.Context) {
		ok, windowEnd := l.allow(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}
