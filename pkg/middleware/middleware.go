package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ksred/gmedchain-web/internal/session"
	"github.com/ksred/gmedchain-web/pkg/response"
)

// DialogKey is the context key DialogToken stores the verified snapshot under
const DialogKey = "dialog"

// Rule limits the requests of one client to paths starting with Prefix
type Rule struct {
	Prefix string
	Limit  rate.Limit
	Burst  int
}

// DefaultRules throttle command submissions only
var DefaultRules = []Rule{
	{Prefix: "/orders", Limit: rate.Limit(60.0 / 60.0), Burst: 5},         // 60 requests per minute
	{Prefix: "/ui/api/orders", Limit: rate.Limit(60.0 / 60.0), Burst: 5}, // 60 requests per minute
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client and path
type RateLimiter struct {
	rules []Rule

	mu          sync.Mutex
	visitors    map[string]*visitor
	lastCleanup time.Time
}

func NewRateLimiter(rules []Rule) *RateLimiter {
	return &RateLimiter{
		rules:       rules,
		visitors:    make(map[string]*visitor),
		lastCleanup: time.Now(),
	}
}

func (l *RateLimiter) getLimiter(path, clientIP string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanup()

	key := clientIP + ":" + path
	v, exists := l.visitors[key]

	if !exists {
		limit, burst := rate.Inf, 1 // No limit for other paths
		for _, r := range l.rules {
			if strings.HasPrefix(path, r.Prefix) {
				limit, burst = r.Limit, r.Burst
				break
			}
		}

		v = &visitor{
			limiter:  rate.NewLimiter(limit, burst),
			lastSeen: time.Now(),
		}
		l.visitors[key] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup drops idle visitors at most once a minute. Callers hold mu.
func (l *RateLimiter) cleanup() {
	if time.Since(l.lastCleanup) < time.Minute {
		return
	}
	for key, v := range l.visitors {
		if time.Since(v.lastSeen) > 3*time.Minute {
			delete(l.visitors, key)
		}
	}
	l.lastCleanup = time.Now()
}

// Handler rejects requests over the limit with 429
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "POST" {
			c.Next()
			return
		}

		limiter := l.getLimiter(c.FullPath(), c.ClientIP())
		if !limiter.Allow() {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestLogger logs one line per request. Health and metrics scrapes are
// logged at debug level.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		event := log.Info()
		switch {
		case len(c.Errors) > 0 || c.Writer.Status() >= 500:
			event = log.Error().Str("errors", c.Errors.String())
		case path == "/health" || path == "/metrics":
			event = log.Debug()
		}

		event.
			Str("component", "http").
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// DialogToken verifies the dialog token a create dialog was rendered with
// and stores its snapshot under DialogKey. The token is read from the
// dialog_token form field or the X-Dialog-Token header. onInvalid writes
// the rejection; the chain is aborted after it.
func DialogToken(sessions *session.Service, onInvalid func(c *gin.Context, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Dialog-Token")
		if token == "" {
			token = c.PostForm("dialog_token")
		}

		snap, err := sessions.Verify(token)
		if err != nil {
			log.Debug().Str("component", "http").Err(err).Msg("rejected dialog token")
			onInvalid(c, err)
			c.Abort()
			return
		}

		c.Set(DialogKey, snap)
		c.Next()
	}
}

// Dialog returns the snapshot DialogToken stored on c
func Dialog(c *gin.Context) (*session.Snapshot, bool) {
	v, ok := c.Get(DialogKey)
	if !ok {
		return nil, false
	}
	snap, ok := v.(*session.Snapshot)
	return snap, ok
}
