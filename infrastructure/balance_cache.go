package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	balanceKeyPrefix    = "quizstake:balance:"
	generationKeyPrefix = "quizstake:balance-gen:"
)

var errStaleFill = errors.New("balance generation moved")

// RedisBalanceCache keeps materialized balances in redis. The ledger stays
// the source of truth; entries expire after ttl and are dropped on every
// balance change. Each drop bumps a per-user generation counter that fills
// are checked against under WATCH.
type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBalanceCache connects to redis and pings it
func NewRedisBalanceCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	log.WithField("addr", addr).Info("Connected to redis balance cache")
	return &RedisBalanceCache{client: client, ttl: ttl}, nil
}

func balanceKey(userID string) string {
	return balanceKeyPrefix + userID
}

func generationKey(userID string) string {
	return generationKeyPrefix + userID
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd stringGetter, userID string) (int64, error) {
	gen, err := cmd.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached balance and whether it was present
func (c *RedisBalanceCache) Get(ctx context.Context, userID string) (int64, bool, error) {
	balance, err := c.client.Get(ctx, balanceKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read cached balance for %s: %w", userID, err)
	}
	return balance, true, nil
}

// Generation returns the user's invalidation counter
func (c *RedisBalanceCache) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := readGeneration(ctx, c.client, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance generation for %s: %w", userID, err)
	}
	return gen, nil
}

// Fill stores balance with the cache ttl unless the user was invalidated
// after generation was read. It reports whether the value was stored.
func (c *RedisBalanceCache) Fill(ctx context.Context, userID string, balance int64, generation int64) (bool, error) {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, balanceKey(userID), balance, c.ttl)
			return nil
		})
		return err
	}, generationKey(userID))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("failed to cache balance for %s: %w", userID, err)
	}
}

// Invalidate drops the cached balance and bumps the generation
func (c *RedisBalanceCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Del(ctx, balanceKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cached balance for %s: %w", userID, err)
	}
	return nil
}

// Close closes the redis client
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}

// NoopBalanceCache never holds anything
type NoopBalanceCache struct{}

func NewNoopBalanceCache() *NoopBalanceCache {
	return &NoopBalanceCache{}
}

func (NoopBalanceCache) Get(ctx context.Context, userID string) (int64, bool, error) {
	return 0, false, nil
}

func (NoopBalanceCache) Generation(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (NoopBalanceCache) Fill(ctx context.Context, userID string, balance int64, generation int64) (bool, error) {
	return false, nil
}

func (NoopBalanceCache) Invalidate(ctx context.Context, userID string) error {
	return nil
}

func (NoopBalanceCache) Close() error {
	return nil
}
