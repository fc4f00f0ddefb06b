// Package rate implements a fixed-window request limiter on shared Redis
// counters, so the limit holds across every process serving traffic.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned when the window's budget is exhausted.
var ErrRateLimited = errors.New("rate limited")

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Increment and TTL-arm in one atomic step. Two clients racing on a fresh
// key both observe a counted hit and exactly one window TTL; the counter
// can never become immortal.
const incrWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`

var incrWindowLua = redis.NewScript(incrWindowScript)

// Actions with a tighter budget than the standard per-minute limit.
// Everything that touches credentials or sends email is strict.
const (
	ActionLogin         = "login"
	ActionRegister      = "register"
	ActionMFAVerify     = "mfa_verify"
	ActionPasswordReset = "password_reset"
	ActionVerifyEmail   = "verify_email"
)

// Config tunes the limiter windows.
type Config struct {
	Window        time.Duration
	StandardLimit int
	StrictLimit   int
	StrictActions []string
	KeyPrefix     string
}

// DefaultConfig allows 60 requests per minute for ordinary actions and 10
// per minute for credential-sensitive ones.
func DefaultConfig() Config {
	return Config{
		Window:        time.Minute,
		StandardLimit: 60,
		StrictLimit:   10,
		StrictActions: []string{
			ActionLogin,
			ActionRegister,
			ActionMFAVerify,
			ActionPasswordReset,
			ActionVerifyEmail,
		},
		KeyPrefix: "ratelimit",
	}
}

// Limiter enforces per-identity, per-action budgets over fixed windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	strict map[string]struct{}
}

// New creates a Limiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.StandardLimit <= 0 {
		cfg.StandardLimit = 60
	}
	if cfg.StrictLimit <= 0 {
		cfg.StrictLimit = 10
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit"
	}

	strict := make(map[string]struct{}, len(cfg.StrictActions))
	for _, action := range cfg.StrictActions {
		strict[action] = struct{}{}
	}

	return &Limiter{
		redis:  client,
		config: cfg,
		strict: strict,
	}
}

// Allow counts one request for identity+action and returns ErrRateLimited
// when the window budget is exceeded. The denied request is itself counted,
// so hammering a limited identity keeps the window armed.
func (l *Limiter) Allow(ctx context.Context, identity, action string) error {
	count, err := l.increment(ctx, l.key(identity, action))
	if err != nil {
		return err
	}

	if count > int64(l.limitFor(action)) {
		return ErrRateLimited
	}
	return nil
}

// Remaining returns how many requests the identity has left in the current
// window. Missing counters report a full budget.
func (l *Limiter) Remaining(ctx context.Context, identity, action string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(identity, action)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return l.limitFor(action), nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	remaining := l.limitFor(action) - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the identity's counter for the action. Called after a
// successful login so earlier failed attempts stop counting against it.
func (l *Limiter) Reset(ctx context.Context, identity, action string) error {
	if err := l.redis.Del(ctx, l.key(identity, action)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(identity, action string) string {
	return l.config.KeyPrefix + ":" + action + ":" + identity
}

func (l *Limiter) limitFor(action string) int {
	if _, ok := l.strict[action]; ok {
		return l.config.StrictLimit
	}
	return l.config.StandardLimit
}

func (l *Limiter) increment(ctx context.Context, key string) (int64, error) {
	result, err := incrWindowLua.Run(ctx, l.redis, []string{key}, l.config.Window.Milliseconds()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected script response", ErrRedisUnavailable)
	}
	return count, nil
}
