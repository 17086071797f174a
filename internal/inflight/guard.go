// Package inflight refuses overlapping mutations on the same key, such as two quantity
// updates for the same cart line or two coupon submissions for the same user.
package inflight

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var ErrBusy = errors.New("a request for this item is already in flight")

// Guard hands out exclusive, non-blocking claims on keys.
type Guard interface {
	// Acquire claims key or fails with ErrBusy. The returned release must be called
	// once the mutation has settled.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func CartLineKey(userID, productID uint) string {
	return fmt.Sprintf("cart:%d:%d", userID, productID)
}

func CouponKey(userID uint) string {
	return fmt.Sprintf("coupon:%d", userID)
}

type localGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalGuard keeps claims in process memory.
func NewLocalGuard() Guard {
	return &localGuard{held: make(map[string]struct{})}
}

func (g *localGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[key]; ok {
		return nil, ErrBusy
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// Only the holder's token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard shares claims across server instances. ttl bounds how long a crashed
// holder can keep a key.
func NewRedisGuard(client *redis.Client, ttl time.Duration) Guard {
	return &redisGuard{client: client, ttl: ttl}
}

func (g *redisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := "inflight:" + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, g.client, []string{redisKey}, token).Err(); err != nil {
				logger.Error("Failed to release in-flight key", err, map[string]interface{}{
					"key": redisKey,
				})
			}
		})
	}, nil
}
