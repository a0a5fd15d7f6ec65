package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/config"
)

const redisOpTimeout = 250 * time.Millisecond

// Redis wraps the go-redis client. Without a client, MarkOnce keeps its keys in process memory.
type Redis struct {
	Client *redis.Client
	prefix string

	mu    sync.Mutex
	local map[string]time.Time
	now   func() time.Time
}

// NewRedis connects to Redis using the provided configuration. An empty address disables Redis.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; breach dedupe kept in process memory")
		return &Redis{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client, prefix: cfg.KeyPrefix}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return ErrNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}

// MarkOnce sets key if it is absent and reports whether this call set it. Without a client the
// marks live in this process until ttl passes, so they do not survive a restart. A nil receiver
// always reports true.
func (r *Redis) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r == nil {
		return true, nil
	}
	if r.Client == nil {
		return r.markLocal(key, ttl), nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return r.Client.SetNX(ctx, r.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (r *Redis) markLocal(key string, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.now != nil {
		now = r.now()
	}
	if r.local == nil {
		r.local = make(map[string]time.Time)
	}
	for k, expires := range r.local {
		if !now.Before(expires) {
			delete(r.local, k)
		}
	}
	if _, marked := r.local[key]; marked {
		return false
	}
	r.local[key] = now.Add(ttl)
	return true
}
