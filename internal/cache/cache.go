// Package cache содержит Redis-счётчик неудачных попыток входа.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter — фиксированное окно неудачных попыток на идентификатор входа.
type LoginLimiter interface {
	// Allow сообщает, можно ли ещё пытаться войти.
	Allow(ctx context.Context, login string) (bool, error)
	// Fail учитывает неудачную попытку.
	Fail(ctx context.Context, login string) error
	// Reset сбрасывает счётчик после успешного входа.
	Reset(ctx context.Context, login string) error
}

// RedisLimiter хранит счётчик в ключе <prefix><sha256(login)> с TTL окна.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	max    int64
	window time.Duration
}

// NewRedisLimiter создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "videohub:login:".
func NewRedisLimiter(ctx context.Context, redisURL, prefix string, max int64, window time.Duration) (*RedisLimiter, error) {
	if prefix == "" {
		prefix = "videohub:login:"
	}

	if max <= 0 || window <= 0 {
		return nil, errors.New("cache: max and window must be > 0")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	return &RedisLimiter{rdb: rdb, prefix: prefix, max: max, window: window}, nil
}

// key не хранит логин в открытом виде.
func (l *RedisLimiter) key(login string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(login))))
	return l.prefix + hex.EncodeToString(sum[:])
}

func (l *RedisLimiter) Allow(ctx context.Context, login string) (bool, error) {
	n, err := l.rdb.Get(ctx, l.key(login)).Int64()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return n < l.max, nil
}

// Fail увеличивает счётчик; TTL ставится только первой попыткой окна (EXPIRE NX, Redis 7+).
func (l *RedisLimiter) Fail(ctx context.Context, login string) error {
	k := l.key(login)

	pipe := l.rdb.TxPipeline()
	pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	_, err := pipe.Exec(ctx)

	return err
}

func (l *RedisLimiter) Reset(ctx context.Context, login string) error {
	return l.rdb.Del(ctx, l.key(login)).Err()
}

// Ping используется readiness-пробой.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}

var _ LoginLimiter = (*RedisLimiter)(nil)
