package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const ErrNil = redis.Nil

// KeepTTL tells Set to retain the key's current expiry.
const KeepTTL = redis.KeepTTL

type PubSub = redis.PubSub

// Client wraps the go-redis client with the small surface the services and
// the subscription resolvers need.
type Client struct {
	rdb *redis.Client
}

func Connect(ctx context.Context, uri string) (*Client, error) {
	options, err := redis.ParseURL(uri)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(options)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

// New wraps an existing go-redis client.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Client) Publish(ctx context.Context, channel, payload string) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a pub/sub connection with no channels; callers add and
// remove channels as subscribers come and go.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
