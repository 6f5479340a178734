package shield

import (
	"bytes"
	"errors"
	"testing"

	"github.com/codahale/gubbins/assert"
	"golang.org/x/crypto/blake2b"
)

func TestHash(t *testing.T) {
	t.Parallel()

	digest, err := Hash([]byte("hello"), HashSize)
	if err != nil {
		t.Fatal(err)
	}

	want := blake2b.Sum256([]byte("hello"))

	assert.Equal(t, "digest", want[:], digest)

	if _, err := Hash(nil, MinHashSize-1); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize but was %v", err)
	}

	if _, err := Hash(nil, MaxHashSize+1); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize but was %v", err)
	}
}

func TestHashKey_Hash(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte{7}, HashKeySize)

	h, err := blake2b.New(40, key)
	if err != nil {
		t.Fatal(err)
	}

	_, _ = h.Write([]byte("hello"))
	want := h.Sum(nil)

	hk, err := NewHashKey(key)
	if err != nil {
		t.Fatal(err)
	}
	defer hk.Close()

	digest, err := hk.Hash([]byte("hello"), 40)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "digest", want, digest)
}

func TestNewHashKey_Sizes(t *testing.T) {
	t.Parallel()

	for _, n := range []int{MinHashKeySize, HashKeySize, MaxHashKeySize} {
		hk, err := NewHashKey(make([]byte, n))
		if err != nil {
			t.Fatalf("%d bytes: %v", n, err)
		}

		assert.Equal(t, "size", n, hk.Size())
		hk.Close()
	}

	for _, n := range []int{MinHashKeySize - 1, MaxHashKeySize + 1} {
		if _, err := NewHashKey(make([]byte, n)); !errors.Is(err, ErrInvalidKeySize) {
			t.Errorf("%d bytes: expected ErrInvalidKeySize but was %v", n, err)
		}
	}
}

func TestGenerateHashKey(t *testing.T) {
	t.Parallel()

	a, b := GenerateHashKey(), GenerateHashKey()
	defer a.Close()
	defer b.Close()

	assert.Equal(t, "size", HashKeySize, a.Size())
	assert.Equal(t, "equal", false, a.Equal(b))
}
