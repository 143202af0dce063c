package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupPrefix  = "alert:dedup:"
	rateLimitKey = "alert:rate"

	// DefaultDedupTTL is how long an alerted arbitrage stays suppressed.
	DefaultDedupTTL = 30 * time.Minute
)

// DedupKey identifies an arbitrage independently of when it was detected:
// the event, the market and the set of bookmakers on its legs. The bookmaker
// order does not matter.
func DedupKey(eventID, market string, bookmakers []string) string {
	books := append([]string(nil), bookmakers...)
	sort.Strings(books)
	return eventID + "|" + market + "|" + strings.Join(books, ",")
}

// AlertDeduplicator suppresses repeated alerts for the same arbitrage.
type AlertDeduplicator struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewAlertDeduplicator creates a deduplicator whose claims last ttl.
func NewAlertDeduplicator(client redis.Cmdable, ttl time.Duration) *AlertDeduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &AlertDeduplicator{client: client, ttl: ttl}
}

// Claim records key and reports whether the caller is the first to do so
// within the TTL. Only the first claimant should send the alert.
func (d *AlertDeduplicator) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupPrefix+key, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Release drops a claim so the arbitrage can be alerted again, for example
// after every channel failed.
func (d *AlertDeduplicator) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, dedupPrefix+key).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

// tokenBucketScript refills the bucket for the time elapsed since the last
// call, then takes one token if available. Returns 1 when allowed.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local per_ms = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = capacity
	ts = now
end

local elapsed = now - ts
if elapsed < 0 then
	elapsed = 0
end
tokens = math.min(capacity, tokens + elapsed * per_ms)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', tostring(now))
redis.call('PEXPIRE', KEYS[1], ttl)
return allowed
`)

// AlertRateLimiter is a token bucket shared by every process that sends
// alerts. It holds perMinute tokens and refills continuously.
type AlertRateLimiter struct {
	client    redis.Scripter
	perMinute int
	now       func() time.Time
}

// NewAlertRateLimiter creates a limiter allowing perMinute alerts per minute.
// A non-positive perMinute disables limiting.
func NewAlertRateLimiter(client redis.Scripter, perMinute int) *AlertRateLimiter {
	return &AlertRateLimiter{client: client, perMinute: perMinute, now: time.Now}
}

// Allow takes a token and reports whether the alert may be sent.
func (l *AlertRateLimiter) Allow(ctx context.Context) (bool, error) {
	if l.perMinute <= 0 {
		return true, nil
	}
	perMs := float64(l.perMinute) / float64(time.Minute/time.Millisecond)
	now := l.now().UnixMilli()
	ttl := (2 * time.Minute).Milliseconds()

	allowed, err := tokenBucketScript.Run(ctx, l.client, []string{rateLimitKey}, l.perMinute, perMs, now, ttl).Int()
	if err != nil {
		return false, fmt.Errorf("alert rate limit: %w", err)
	}
	return allowed == 1, nil
}
