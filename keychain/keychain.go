// Package keychain provides stores for persisting key material by ID.
//
// A Store holds opaque values under string IDs. Each backend provides its own atomicity per ID;
// nothing here serializes access across IDs.
package keychain

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when no value is stored under an ID.
	ErrNotFound = errors.New("keychain: not found")

	// ErrAlreadyExists is returned by Put when a value is already stored under an ID.
	ErrAlreadyExists = errors.New("keychain: already exists")

	// ErrInvalidID is returned when an ID can't be used with a backend.
	ErrInvalidID = errors.New("keychain: invalid id")
)

// Store persists values by ID.
type Store interface {
	// Get returns the value stored under id, or ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// Put stores the value under id if nothing is stored there yet, otherwise it returns
	// ErrAlreadyExists.
	Put(ctx context.Context, id string, value []byte) error

	// UpdateOrCreate stores the value under id, replacing any existing value.
	UpdateOrCreate(ctx context.Context, id string, value []byte) error

	// Delete removes the value stored under id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a Store which keeps values in memory. It's safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[id]
	if !ok {
		return nil, ErrNotFound
	}

	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Put(_ context.Context, id string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[id]; ok {
		return ErrAlreadyExists
	}

	s.values[id] = append([]byte(nil), value...)

	return nil
}

func (s *MemoryStore) UpdateOrCreate(_ context.Context, id string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[id] = append([]byte(nil), value...)

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[id]; !ok {
		return ErrNotFound
	}

	delete(s.values, id)

	return nil
}

var _ Store = &MemoryStore{}
