package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Store persists one coupon application per user.
type Store interface {
	Load(ctx context.Context, userID uint) (*CouponApplication, error)
	Save(ctx context.Context, userID uint, app *CouponApplication) error
	Reset(ctx context.Context, userID uint) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore keeps sessions as JSON values that expire ttl after the last write.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("checkout:session:%d", userID)
}

func (s *redisStore) Load(ctx context.Context, userID uint) (*CouponApplication, error) {
	raw, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &CouponApplication{State: CouponUnapplied}, nil
	}
	if err != nil {
		logger.Error("Failed to load checkout session", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	var app CouponApplication
	if err := json.Unmarshal(raw, &app); err != nil {
		logger.Warn("Discarding unreadable checkout session", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return &CouponApplication{State: CouponUnapplied}, nil
	}
	return &app, nil
}

func (s *redisStore) Save(ctx context.Context, userID uint, app *CouponApplication) error {
	raw, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("failed to encode checkout session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(userID), raw, s.ttl).Err(); err != nil {
		logger.Error("Failed to save checkout session", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}

func (s *redisStore) Reset(ctx context.Context, userID uint) error {
	return s.client.Del(ctx, sessionKey(userID)).Err()
}

type memoryEntry struct {
	app     CouponApplication
	expires time.Time
}

type memoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[uint]memoryEntry
	now      func() time.Time
}

// NewMemoryStore keeps sessions in process. Used when Redis is not configured and in tests.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		ttl:      ttl,
		sessions: make(map[uint]memoryEntry),
		now:      time.Now,
	}
}

func (s *memoryStore) Load(_ context.Context, userID uint) (*CouponApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[userID]
	if !ok || (s.ttl > 0 && s.now().After(entry.expires)) {
		delete(s.sessions, userID)
		return &CouponApplication{State: CouponUnapplied}, nil
	}
	app := entry.app
	return &app, nil
}

func (s *memoryStore) Save(_ context.Context, userID uint, app *CouponApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = memoryEntry{app: *app, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *memoryStore) Reset(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}
