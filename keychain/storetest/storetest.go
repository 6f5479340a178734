// Package storetest checks the behavior every keychain.Store must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/codahale/gubbins/assert"
	"github.com/codahale/shield/keychain"
)

// Run checks that the store, which must be empty, behaves as a keychain.Store.
func Run(t *testing.T, s keychain.Store) {
	t.Helper()

	ctx := context.Background()

	if _, err := s.Get(ctx, "alice.master-key"); !errors.Is(err, keychain.ErrNotFound) {
		t.Fatalf("Get on empty store: expected ErrNotFound but was %v", err)
	}

	if err := s.Delete(ctx, "alice.master-key"); !errors.Is(err, keychain.ErrNotFound) {
		t.Fatalf("Delete on empty store: expected ErrNotFound but was %v", err)
	}

	if err := s.Put(ctx, "alice.master-key", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := s.Put(ctx, "alice.master-key", []byte("two")); !errors.Is(err, keychain.ErrAlreadyExists) {
		t.Fatalf("second Put: expected ErrAlreadyExists but was %v", err)
	}

	got, err := s.Get(ctx, "alice.master-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	assert.Equal(t, "value after Put", "one", string(got))

	if err := s.UpdateOrCreate(ctx, "alice.master-key", []byte("three")); err != nil {
		t.Fatalf("UpdateOrCreate: %v", err)
	}

	got, err = s.Get(ctx, "alice.master-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	assert.Equal(t, "value after UpdateOrCreate", "three", string(got))

	if err := s.UpdateOrCreate(ctx, "bob.secret-key", []byte("four")); err != nil {
		t.Fatalf("UpdateOrCreate new: %v", err)
	}

	got, err = s.Get(ctx, "bob.secret-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	assert.Equal(t, "created value", "four", string(got))

	if err := s.Delete(ctx, "alice.master-key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.Get(ctx, "alice.master-key"); !errors.Is(err, keychain.ErrNotFound) {
		t.Fatalf("Get after Delete: expected ErrNotFound but was %v", err)
	}

	got, err = s.Get(ctx, "bob.secret-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	assert.Equal(t, "untouched value", "four", string(got))
}
