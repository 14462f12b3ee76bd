package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/domain"
)

const lockRetryInterval = 50 * time.Millisecond

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCache holds the car catalog cache and the distributed per-car
// booking lock.
type RedisCache struct {
	client   *redis.Client
	carsTTL  time.Duration
	lockTTL  time.Duration
	lockWait time.Duration
}

func NewRedisCache(cfg config.RedisConfig, booking config.BookingConfig) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		carsTTL:  booking.CarsCacheTTL(),
		lockTTL:  booking.LockTTL(),
		lockWait: booking.LockWait(),
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetCars returns nil without error on a cache miss.
func (c *RedisCache) GetCars(ctx context.Context) ([]domain.Car, error) {
	data, err := c.client.Get(ctx, carsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cars []domain.Car
	if err := json.Unmarshal(data, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

func (c *RedisCache) SetCars(ctx context.Context, cars []domain.Car) error {
	payload, err := json.Marshal(cars)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, carsKey(), payload, c.carsTTL).Err()
}

// Acquire takes the booking lock for carID, polling until lockWait runs
// out. Timeouts and Redis failures are reported as
// domain.ErrStoreUnavailable. The lock expires after lockTTL even if the
// holder never releases it.
func (c *RedisCache) Acquire(ctx context.Context, carID int64) (func(), error) {
	key := carLockKey(carID)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, c.lockWait)
	defer cancel()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := c.client.SetNX(waitCtx, key, token, c.lockTTL).Result()
		if err == nil && ok {
			return c.releaser(key, token), nil
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("cache.Acquire car %d: %w: %w", carID, domain.ErrStoreUnavailable, err)
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, fmt.Errorf("cache.Acquire car %d: %w", carID, ctx.Err())
			}
			return nil, fmt.Errorf("cache.Acquire car %d: lock wait exceeded: %w", carID, domain.ErrStoreUnavailable)
		}
	}
}

func (c *RedisCache) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		// a failed release is recovered by the lock TTL
		_ = releaseScript.Run(ctx, c.client, []string{key}, token).Err()
	}
}

func carsKey() string {
	return "cache:cars"
}

func carLockKey(carID int64) string {
	return fmt.Sprintf("lock:car:%d", carID)
}
