package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKey = "screencraft:home-screens:active"

// Cache stocke la configuration active (JSON déjà peuplé) sous une clé unique.
type Cache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// New ouvre un client et vérifie la connexion.
func New(ctx context.Context, opts Options) (*Cache, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return NewWithClient(client, opts.Key, opts.TTL), client, nil
}

func NewWithClient(client redis.Cmdable, key string, ttl time.Duration) *Cache {
	if key == "" {
		key = DefaultKey
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{client: client, key: key, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (c *Cache) Set(ctx context.Context, payload []byte) error {
	return c.client.Set(ctx, c.key, payload, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
