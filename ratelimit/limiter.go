package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"
)

const keyPrefix = "pyquest:ratelimit:"

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// KeyFunc extracts the caller identity a request is counted against. An empty
// key skips limiting for that request.
type KeyFunc func(r *http.Request) string

// Limiter counts requests per key in Redis so limits hold across instances.
// A Limiter without a Redis client allows everything.
type Limiter struct {
	limit    redis_rate.Limit
	allow    func(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
	onReject func(group string)
	warnOnce sync.Once
}

// New creates a limiter allowing perMinute requests per key. A nil client or a
// non-positive perMinute disables limiting.
func New(client *redis.Client, perMinute int) *Limiter {
	l := &Limiter{limit: redis_rate.PerMinute(perMinute)}
	if client == nil || perMinute <= 0 {
		log.Info("Rate limiting disabled")
		return l
	}

	limiter := redis_rate.NewLimiter(client)
	l.allow = limiter.Allow
	log.WithField("perMinute", perMinute).Info("Rate limiting enabled")
	return l
}

// Connect parses redisURL and pings the server. An empty URL returns a nil client.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping to redis: %w", err)
	}
	return client, nil
}

// OnReject registers a callback run for every rejected request
func (l *Limiter) OnReject(fn func(group string)) {
	l.onReject = fn
}

// Enabled reports whether requests are actually counted
func (l *Limiter) Enabled() bool {
	return l.allow != nil
}

// Allow counts one request for key within group
func (l *Limiter) Allow(ctx context.Context, group, key string) (Decision, error) {
	if !l.Enabled() || key == "" {
		return Decision{Allowed: true, Remaining: math.MaxInt32}, nil
	}

	res, err := l.allow(ctx, keyPrefix+group+":"+key, l.limit)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check for %s: %w", group, err)
	}

	return Decision{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}, nil
}

// Middleware rejects requests over the limit with 429 and Retry-After.
// Redis failures let the request through.
func (l *Limiter) Middleware(group string, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := l.Allow(r.Context(), group, keyFn(r))
			if err != nil {
				l.warnOnce.Do(func() {
					log.WithError(err).Warn("Rate limiter unavailable, allowing requests")
				})
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				if l.onReject != nil {
					l.onReject(group)
				}
				log.WithFields(log.Fields{
					"group":      group,
					"retryAfter": retryAfter,
				}).Debug("Rate limited request")
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
