package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/svcgate/svcgate/src/internal/infrastructure/logger"
)

// RedisConfig holds connection settings for the Redis credential store.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	KeyPrefix     string        // Prefix for secret keys (default "svcgate:secret:")
	LookupTimeout time.Duration // Per-attempt timeout (default 2s)
	MaxTries      uint          // Attempts per lookup including the first (default 3)
}

// RedisStore reads shared service secrets from Redis. Transient
// failures are retried with exponential backoff up to MaxTries; a
// missing key is never retried.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	timeout   time.Duration
	maxTries  uint
}

// NewRedisStore creates a Redis-backed credential store.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "svcgate:secret:"
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 2 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}

	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		keyPrefix: cfg.KeyPrefix,
		timeout:   cfg.LookupTimeout,
		maxTries:  cfg.MaxTries,
	}
}

// GetSecret implements Store. Each attempt is bounded by the lookup
// timeout so a slow Redis cannot hang the request indefinitely.
func (s *RedisStore) GetSecret(ctx context.Context, serviceID string) ([]byte, error) {
	key := s.keyPrefix + serviceID

	operation := func() ([]byte, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		secret, err := s.client.Get(attemptCtx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, backoff.Permanent(ErrServiceNotFound)
		}
		if err != nil {
			logger.WithField("error", err).Debug("Credential lookup attempt failed")
			return nil, err
		}
		return secret, nil
	}

	secret, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxTries),
	)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return secret, nil
}

// IsAvailable implements Store by pinging Redis.
func (s *RedisStore) IsAvailable(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(pingCtx).Err() == nil
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
