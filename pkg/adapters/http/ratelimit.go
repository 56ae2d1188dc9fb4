package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdle is how long an unused conversation limiter is kept.
const limiterIdle = 10 * time.Minute

// ConversationRateLimiter limits message throughput per conversation.
// Idle limiters expire so the set stays bounded by active conversations.
// Expired entries are swept on access; no background goroutine is started.
type ConversationRateLimiter struct {
	limiters *gocache.Cache
	rps      float64
	burst    int
	idle     time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	lastSweep time.Time
}

// NewConversationRateLimiter creates a limiter allowing rps messages per second
// with the given burst for every conversation.
func NewConversationRateLimiter(rps float64, burst int, logger *slog.Logger) *ConversationRateLimiter {
	return newConversationRateLimiter(rps, burst, limiterIdle, logger)
}

func newConversationRateLimiter(rps float64, burst int, idle time.Duration, logger *slog.Logger) *ConversationRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ConversationRateLimiter{
		// A zero cleanup interval keeps go-cache from starting its janitor.
		limiters:  gocache.New(idle, 0),
		rps:       rps,
		burst:     burst,
		idle:      idle,
		logger:    logger,
		lastSweep: time.Now(),
	}
}

// sweep drops expired limiters at most once per idle window.
func (rl *ConversationRateLimiter) sweep() {
	rl.mu.Lock()
	due := time.Since(rl.lastSweep) >= rl.idle
	if due {
		rl.lastSweep = time.Now()
	}
	rl.mu.Unlock()
	if due {
		rl.limiters.DeleteExpired()
	}
}

func (rl *ConversationRateLimiter) getLimiter(key string) *rate.Limiter {
	rl.sweep()
	if v, ok := rl.limiters.Get(key); ok {
		rl.limiters.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Limit(rl.rps), rl.burst)
	// Add fails when a concurrent request stored one first; use that one.
	if err := rl.limiters.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		if v, ok := rl.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Handler returns the rate limiting middleware. The key is the tenant and
// conversation taken from the route.
func (rl *ConversationRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := chi.URLParam(r, "tenant")
		conv := chi.URLParam(r, "conversation")

		if !rl.getLimiter(tenant + "/" + conv).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			rl.logger.Warn("rate limit exceeded", "tenant_id", tenant, "conversation_id", conv)
			return
		}
		next.ServeHTTP(w, r)
	})
}
