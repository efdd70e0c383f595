// Package replay detects re-delivered termination callbacks.
//
// The first delivery of a termination for a session claims a key; any later
// delivery finds the key taken and is treated as a duplicate. A claim is
// released when the side effects it guarded failed, so a provider retry can
// complete the call.
package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ivr-gateway/pkg/utils"
)

var ErrNoClient = errors.New("replay: redis client not configured")

// DefaultTTL covers provider retries for a finished call with a wide margin.
const DefaultTTL = 24 * time.Hour

// Ticket is the result of a claim. Only a First ticket can be released.
type Ticket struct {
	Key   string
	Token string
	First bool
}

type Guard interface {
	Claim(ctx context.Context, sessionID string) (Ticket, error)
	Release(ctx context.Context, t Ticket) error
}

func completionKey(sessionID string) string { return "ivr:complete:" + sessionID }

// RedisGuard stores claims as SET NX keys so every API replica sees them.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, sessionID string) (Ticket, error) {
	if g.rdb == nil {
		return Ticket{}, ErrNoClient
	}
	t := Ticket{Key: completionKey(sessionID), Token: uuid.NewString()}
	ok, err := utils.ClaimOnce(ctx, g.rdb, t.Key, t.Token, g.ttl)
	if err != nil {
		return Ticket{}, err
	}
	t.First = ok
	return t, nil
}

func (g *RedisGuard) Release(ctx context.Context, t Ticket) error {
	if !t.First {
		return nil
	}
	if g.rdb == nil {
		return ErrNoClient
	}
	return utils.ReleaseClaim(ctx, g.rdb, t.Key, t.Token)
}

// MemoryGuard is a single-process Guard for tests and local runs.
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[string]memoryClaim
	ttl    time.Duration
	clock  func() time.Time
}

type memoryClaim struct {
	token   string
	expires time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryGuard{claims: map[string]memoryClaim{}, ttl: ttl, clock: time.Now}
}

// WithClock overrides the time source used for expiry.
func (g *MemoryGuard) WithClock(clock func() time.Time) *MemoryGuard {
	g.clock = clock
	return g
}

func (g *MemoryGuard) Claim(ctx context.Context, sessionID string) (Ticket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	t := Ticket{Key: completionKey(sessionID), Token: uuid.NewString()}
	if c, ok := g.claims[t.Key]; ok && now.Before(c.expires) {
		return t, nil
	}
	g.claims[t.Key] = memoryClaim{token: t.Token, expires: now.Add(g.ttl)}
	t.First = true
	return t, nil
}

func (g *MemoryGuard) Release(ctx context.Context, t Ticket) error {
	if !t.First {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.claims[t.Key]; ok && c.token == t.Token {
		delete(g.claims, t.Key)
	}
	return nil
}
