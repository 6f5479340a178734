// Package pwhash provides Argon2id password hashing and password-based key derivation.
//
// Stored hashes use the PHC string format:
//
//	$argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<hash>
//
// with unpadded standard Base64 salt and hash, NUL-padded to StrSize bytes when stored.
package pwhash

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize    = 16  // SaltSize is the size of salts in bytes.
	HashSize    = 32  // HashSize is the size of the hash embedded in stored strings.
	StrSize     = 128 // StrSize is the size of a stored hash string, including NUL padding.
	Parallelism = 1   // Parallelism is the number of Argon2id lanes.

	// MaxMemory is the largest memory cost, in KiB, Verify will honor from a stored string.
	MaxMemory = 4 * 1024 * 1024
	// MaxTime is the largest time cost Verify will honor from a stored string.
	MaxTime = 64
)

const prefix = "$argon2id$v=19$"

// Derive returns a size-byte key derived from the password and salt using Argon2id with the given
// time cost and memory cost in bytes.
func Derive(password, salt []byte, ops, mem uint32, size int) []byte {
	return argon2.IDKey(password, salt, ops, mem/1024, Parallelism, uint32(size))
}

// Str returns a PHC-formatted Argon2id hash of the password using the given salt, time cost, and
// memory cost in bytes.
func Str(password, salt []byte, ops, mem uint32) string {
	hash := argon2.IDKey(password, salt, ops, mem/1024, Parallelism, HashSize)

	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s", prefix, mem/1024, ops, Parallelism,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(hash))
}

// Verify returns true if the PHC-formatted hash matches the password. Malformed strings, and
// strings with costs beyond MaxMemory or MaxTime, never match.
func Verify(str string, password []byte) bool {
	params, err := parse(str)
	if err != nil {
		return false
	}

	hash := argon2.IDKey(password, params.salt, params.time, params.memory, params.lanes,
		uint32(len(params.hash)))

	return subtle.ConstantTimeCompare(hash, params.hash) == 1
}

// Valid returns true if the string is a well-formed PHC-formatted Argon2id hash.
func Valid(str string) bool {
	_, err := parse(str)

	return err == nil
}

type params struct {
	memory, time uint32
	lanes        uint8
	salt, hash   []byte
}

func parse(str string) (*params, error) {
	if !strings.HasPrefix(str, prefix) {
		return nil, fmt.Errorf("pwhash: unsupported algorithm")
	}

	parts := strings.Split(strings.TrimPrefix(str, prefix), "$")
	if len(parts) != 3 {
		return nil, fmt.Errorf("pwhash: malformed hash")
	}

	var (
		p     params
		lanes uint32
	)

	if _, err := fmt.Sscanf(parts[0], "m=%d,t=%d,p=%d", &p.memory, &p.time, &lanes); err != nil {
		return nil, fmt.Errorf("pwhash: malformed parameters: %w", err)
	}

	if p.memory == 0 || p.memory > MaxMemory || p.time == 0 || p.time > MaxTime ||
		lanes == 0 || lanes > 255 {
		return nil, fmt.Errorf("pwhash: unsupported parameters")
	}

	p.lanes = uint8(lanes)

	var err error

	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[1]); err != nil {
		return nil, fmt.Errorf("pwhash: malformed salt: %w", err)
	}

	if p.hash, err = base64.RawStdEncoding.DecodeString(parts[2]); err != nil {
		return nil, fmt.Errorf("pwhash: malformed hash: %w", err)
	}

	if len(p.salt) < 8 || len(p.hash) < 16 {
		return nil, fmt.Errorf("pwhash: salt or hash too short")
	}

	return &p, nil
}
