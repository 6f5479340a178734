package redisstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codahale/gubbins/assert"
	"github.com/codahale/shield/keychain/storetest"
	"github.com/go-redis/redis"
)

func TestStore(t *testing.T) {
	t.Parallel()

	storetest.Run(t, New(newFakeRedis(), "shield:"))
}

func TestStore_Prefix(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	s := New(fake, "shield:")

	if err := s.Put(context.Background(), "alice.master-key", []byte("value")); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "stored key", "value", fake.values["shield:alice.master-key"])
}

func TestStore_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(newFakeRedis(), "shield:")

	if _, err := s.Get(ctx, "alice.master-key"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled but was %v", err)
	}
}

func TestStore_CommandError(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.err = errors.New("connection refused")

	s := New(fake, "shield:")

	if err := s.UpdateOrCreate(context.Background(), "alice.master-key", []byte("v")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	c, err := NewClient("redis://localhost:6380/2")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "url addr", "localhost:6380", c.Options().Addr)
	assert.Equal(t, "url db", 2, c.Options().DB)

	c, err = NewClient("localhost:6379")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "plain addr", "localhost:6379", c.Options().Addr)
}

type fakeRedis struct {
	redis.Cmdable

	mu     sync.Mutex
	values map[string]string
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) Get(key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}

	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) SetNX(key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}

	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}

	f.values[key] = string(value.([]byte))

	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Set(key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}

	f.values[key] = string(value.([]byte))

	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}

	var n int64

	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			n++
		}
	}

	return redis.NewIntResult(n, nil)
}
