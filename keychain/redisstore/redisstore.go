// Package redisstore provides a keychain.Store backed by Redis.
//
// Each value is a plain string key named by a prefix and the ID, with no expiry.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/codahale/shield/keychain"
	"github.com/go-redis/redis"
)

// Store is a keychain.Store backed by Redis.
type Store struct {
	client redis.Cmdable
	prefix string
}

// New returns a Store which keeps values under the given key prefix, e.g. "shield:".
func New(client redis.Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// NewClient returns a Redis client for the given address, either host:port or a redis:// URL.
func NewClient(addr string) (*redis.Client, error) {
	if opt, err := redis.ParseURL(addr); err == nil {
		return redis.NewClient(opt), nil
	}

	if addr == "" {
		return nil, fmt.Errorf("redisstore: no address")
	}

	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// Get returns the value for id. The client's commands take no context, so ctx is only checked
// before the command is sent.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := s.client.Get(s.prefix + id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, keychain.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("redisstore: %w", err)
	}

	return b, nil
}

func (s *Store) Put(ctx context.Context, id string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ok, err := s.client.SetNX(s.prefix+id, value, 0).Result()
	if err != nil {
		return fmt.Errorf("redisstore: %w", err)
	}

	if !ok {
		return keychain.ErrAlreadyExists
	}

	return nil
}

func (s *Store) UpdateOrCreate(ctx context.Context, id string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.Set(s.prefix+id, value, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := s.client.Del(s.prefix + id).Result()
	if err != nil {
		return fmt.Errorf("redisstore: %w", err)
	}

	if n == 0 {
		return keychain.ErrNotFound
	}

	return nil
}

var _ keychain.Store = &Store{}
