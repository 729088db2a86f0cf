package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PathClass buckets request paths into admission groups. Each class carries
// its own ceiling; unclassified and search traffic is exempt from counting
// but still subject to an existing IP block.
type PathClass uint8

const (
	// ClassUnclassified is exempt from counting.
	ClassUnclassified PathClass = iota
	// ClassAuth covers login, signup, refresh, logout, and password reset.
	ClassAuth
	// ClassCatalog covers content browsing and detail reads.
	ClassCatalog
	// ClassProfile covers account and session management.
	ClassProfile
	// ClassSearch is exempt from counting. Search traffic is bursty and
	// read-only, so ceilings would punish legitimate use.
	ClassSearch
)

// String returns the counter-key label of the class.
func (c PathClass) String() string {
	switch c {
	case ClassAuth:
		return "auth"
	case ClassCatalog:
		return "catalog"
	case ClassProfile:
		return "profile"
	case ClassSearch:
		return "search"
	default:
		return "unclassified"
	}
}

// Policy is a fixed-window ceiling: at most Requests admissions per Window.
type Policy struct {
	Requests int
	Window   time.Duration
}

// ErrRateLimited is returned when a request breaches its class ceiling. The
// breach also installs an IP block for the cooldown.
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrIPBlocked is returned while an IP serves a block cooldown.
var ErrIPBlocked = errors.New("ip blocked")

// ErrRedisUnavailable wraps transient Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Config tunes the limiter. Zero-value fields fall back to defaults.
type Config struct {
	// Policies maps each counted class to its ceiling. Classes absent from
	// the map are exempt.
	Policies map[PathClass]Policy

	// BlockCooldown is how long an IP stays blocked after a breach.
	BlockCooldown time.Duration

	// Prefix namespaces the limiter's Redis keys.
	Prefix string
}

// DefaultPolicies returns the standard per-class ceilings.
func DefaultPolicies() map[PathClass]Policy {
	return map[PathClass]Policy{
		ClassAuth:    {Requests: 5, Window: time.Minute},
		ClassCatalog: {Requests: 100, Window: time.Minute},
		ClassProfile: {Requests: 50, Window: time.Minute},
	}
}

// DefaultBlockCooldown is the standard IP block duration after a breach.
const DefaultBlockCooldown = 5 * time.Minute

// incrScript advances the window counter and stamps the window TTL on first
// increment, atomically. Returns the counter after the increment.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Limiter admits or rejects requests against per-class fixed windows.
type Limiter struct {
	redis    redis.UniversalClient
	policies map[PathClass]Policy
	cooldown time.Duration
	prefix   string
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	policies := cfg.Policies
	if policies == nil {
		policies = DefaultPolicies()
	}
	cooldown := cfg.BlockCooldown
	if cooldown <= 0 {
		cooldown = DefaultBlockCooldown
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "crl"
	}
	return &Limiter{
		redis:    redisClient,
		policies: policies,
		cooldown: cooldown,
		prefix:   prefix,
	}
}

func (l *Limiter) counterKey(ip string, class PathClass, method string) string {
	return l.prefix + ":c:" + class.String() + ":" + method + ":" + ip
}

func (l *Limiter) blockKey(ip string) string {
	return l.prefix + ":b:" + ip
}

// Admit decides whether a request from ip against the given class and HTTP
// method may proceed. A nil error admits. [ErrIPBlocked] and [ErrRateLimited]
// come with the remaining cooldown as the duration. Counters are keyed by
// (ip, class, method); the block is per ip.
//
// The block check runs first for every call, so a blocked IP is rejected even
// on exempt classes.
func (l *Limiter) Admit(ctx context.Context, ip string, class PathClass, method string) (time.Duration, error) {
	remaining, err := l.redis.PTTL(ctx, l.blockKey(ip)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if remaining > 0 {
		return remaining, ErrIPBlocked
	}

	policy, counted := l.policies[class]
	if !counted || class == ClassUnclassified || class == ClassSearch {
		return 0, nil
	}

	count, err := incrScript.Run(ctx, l.redis,
		[]string{l.counterKey(ip, class, method)},
		strconv.FormatInt(policy.Window.Milliseconds(), 10),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count > int64(policy.Requests) {
		if err := l.redis.Set(ctx, l.blockKey(ip), 1, l.cooldown).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return l.cooldown, ErrRateLimited
	}

	return 0, nil
}

// Unblock lifts an active IP block early. Counters keep their windows.
func (l *Limiter) Unblock(ctx context.Context, ip string) error {
	if err := l.redis.Del(ctx, l.blockKey(ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// BlockRemaining reports the time left on an IP block, zero when unblocked.
func (l *Limiter) BlockRemaining(ctx context.Context, ip string) (time.Duration, error) {
	remaining, err := l.redis.PTTL(ctx, l.blockKey(ip)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}
