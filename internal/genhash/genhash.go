// Package genhash provides generic keyed and unkeyed hashing with BLAKE2b.
package genhash

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	MinSize    = 16              // MinSize is the smallest digest size in bytes.
	MaxSize    = blake2b.Size    // MaxSize is the largest digest size in bytes.
	Size       = blake2b.Size256 // Size is the default digest size in bytes.
	MinKeySize = 16              // MinKeySize is the smallest key size in bytes.
	MaxKeySize = blake2b.Size    // MaxKeySize is the largest key size in bytes.
	KeySize    = 32              // KeySize is the default key size in bytes.
)

// Sum returns a size-byte BLAKE2b digest of the input, keyed with key if it is non-empty. The
// caller is responsible for validating size and key length.
func Sum(input, key []byte, size int) []byte {
	h, err := blake2b.New(size, key)
	if err != nil {
		panic(fmt.Sprintf("genhash: %v", err))
	}

	_, _ = h.Write(input)

	return h.Sum(make([]byte, 0, size))
}
