package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// KeyTTL is how long a stored theme survives without being rewritten.
const KeyTTL = 365 * 24 * time.Hour

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStore keeps themes in Redis under theme:{visitor}.
type RedisStore struct {
	client RedisClient
}

// RedisOptions selects the server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("preference: redis ping %s: %w", opts.Addr, err)
	}
	return NewRedisStore(client), nil
}

func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, visitor string) (Theme, error) {
	v, err := r.client.Get(ctx, Key(visitor)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("preference: redis get: %w", err)
	}
	t, err := ParseTheme(v)
	if err != nil {
		return "", err
	}
	return t, nil
}

func (r *RedisStore) Set(ctx context.Context, visitor string, theme Theme) error {
	if err := r.client.Set(ctx, Key(visitor), string(theme), KeyTTL).Err(); err != nil {
		return fmt.Errorf("preference: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
