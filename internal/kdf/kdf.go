// Package kdf derives sub-keys from a master key.
//
// Given a master key K, a sub-key ID I, an 8-byte context C, and an output size N, the derived key
// is the N-byte BLAKE2b digest, keyed with K, of:
//
//	"shield.kdf" || LE_U64(I) || C
//
// BLAKE2b includes N in its parameter block, so keys of different sizes derived from the same
// (K, I, C) are unrelated.
package kdf

import (
	"encoding/binary"

	"github.com/codahale/shield/internal/genhash"
)

const (
	KeySize     = 32              // KeySize is the size of master keys in bytes.
	ContextSize = 8               // ContextSize is the size of contexts in bytes.
	MinSize     = genhash.MinSize // MinSize is the smallest derived key size in bytes.
	MaxSize     = genhash.MaxSize // MaxSize is the largest derived key size in bytes.
)

const label = "shield.kdf"

// Derive returns a size-byte key derived from the master key, ID, and context. The caller is
// responsible for validating the sizes of its arguments.
func Derive(masterKey []byte, id uint64, context *[ContextSize]byte, size int) []byte {
	input := make([]byte, 0, len(label)+8+ContextSize)
	input = append(input, label...)
	input = binary.LittleEndian.AppendUint64(input, id)
	input = append(input, context[:]...)

	return genhash.Sum(input, masterKey, size)
}
