// Package shield provides misuse-resistant symmetric cryptography.
//
// Every secret value (keys, passwords, and the nonces and tags which travel with them) is held in
// guarded memory: its own mlocked pages, flanked by guard pages, inaccessible except during the
// brief moment an operation reads or writes it, and zeroed before being returned to the OS. Each
// kind of value is its own type with its size checked at construction, so a nonce can't be passed
// where a key is expected and a 31-byte key can't exist.
//
// On top of that, shield provides authenticated encryption (SecretBox), length-hiding padding,
// sub-key derivation from a master key (MasterKey), password hashing and password-based key
// derivation (Password), and a two-party key exchange producing directional session keys
// (KeyExchange).
//
// Values should be released with Close once they're no longer needed. Values which become
// unreachable without being closed are released by the garbage collector eventually.
package shield

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/codahale/shield/internal/guarded"
	"github.com/codahale/shield/internal/rng"
)

var (
	// ErrInvalidKeySize is returned when a key, nonce, or tag is constructed with the wrong number
	// of bytes.
	ErrInvalidKeySize = errors.New("shield: invalid key size")

	// ErrInvalidSize is returned when a derived key or digest of an unsupported size is requested.
	ErrInvalidSize = errors.New("shield: invalid size")

	// ErrInvalidBlockSize is returned when a padding block size is not positive.
	ErrInvalidBlockSize = errors.New("shield: invalid block size")

	// ErrInvalidPadding is returned when padded data does not end in well-formed padding.
	ErrInvalidPadding = errors.New("shield: invalid padding")

	// ErrMalformed is returned when serialized data is too short or otherwise can't be parsed.
	ErrMalformed = errors.New("shield: malformed data")

	// ErrVerificationFailed is returned when a ciphertext cannot be decrypted, either due to an
	// incorrect key or tampering.
	ErrVerificationFailed = errors.New("shield: verification failed")

	// ErrInvalidPeerKey is returned when a key exchange peer's public key is unacceptable.
	ErrInvalidPeerKey = errors.New("shield: invalid peer public key")

	// ErrUnrepresentable is returned when a password can't be represented in the requested
	// encoding.
	ErrUnrepresentable = errors.New("shield: text not representable in encoding")

	// ErrInvalidParameters is returned when password hashing parameters are not one of the known
	// cost classes.
	ErrInvalidParameters = errors.New("shield: invalid password parameters")

	// ErrInvalidHashedPassword is returned when a stored password hash is not well-formed.
	ErrInvalidHashedPassword = errors.New("shield: invalid hashed password")

	// ErrInvalidContext is returned when a derivation context is not ContextSize bytes.
	ErrInvalidContext = errors.New("shield: invalid context")
)

//nolint:gochecknoglobals // process-wide initialization
var (
	initOnce sync.Once
	initRuns atomic.Int32
)

// ensureInitialized prepares guarded allocation, disables core dumps, and checks the RNG before the
// first value is constructed. Any failure is fatal.
func ensureInitialized() {
	initOnce.Do(func() {
		initRuns.Add(1)

		guarded.Init()

		var b [16]byte
		rng.MustRead(b[:])
	})
}

// Purge overwrites all key material which hasn't been closed with zeros. Call it as the process
// exits or is interrupted; key material used after Purge holds only zeros.
func Purge() {
	guarded.Purge()
}
