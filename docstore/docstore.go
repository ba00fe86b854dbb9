// Package docstore is the document-store collaborator: keyed JSON documents
// read and written whole. There are no field-level patches, so concurrent
// writers of the same document race and the last write wins.
package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/doorstep-app/doorstep/config"
	"github.com/redis/go-redis/v9"
)

// Docs reads and writes whole documents. A zero ttl means the document
// does not expire.
type Docs interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, doc []byte, ttl time.Duration) error
}

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func Open(ctx context.Context, cfg config.Redis) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedis(client), nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, doc, ttl).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
