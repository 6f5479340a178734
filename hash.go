package shield

import (
	"fmt"

	"github.com/codahale/shield/internal/genhash"
)

const (
	HashKeySize    = genhash.KeySize    // HashKeySize is the default size of a hash key in bytes.
	MinHashKeySize = genhash.MinKeySize // MinHashKeySize is the smallest hash key size in bytes.
	MaxHashKeySize = genhash.MaxKeySize // MaxHashKeySize is the largest hash key size in bytes.
	HashSize       = genhash.Size       // HashSize is the default digest size in bytes.
	MinHashSize    = genhash.MinSize    // MinHashSize is the smallest digest size in bytes.
	MaxHashSize    = genhash.MaxSize    // MaxHashSize is the largest digest size in bytes.
)

type hashKeyBounds struct{}

func (hashKeyBounds) bounds() (int, int) { return MinHashKeySize, MaxHashKeySize }

// HashKey is a key for BLAKE2b used as a MAC or PRF.
type HashKey struct {
	keyMaterial[hashKeyBounds]
}

// GenerateHashKey returns a new random HashKey of HashKeySize bytes.
func GenerateHashKey() *HashKey {
	return &HashKey{must(generate[hashKeyBounds](HashKeySize))}
}

// NewHashKey moves the given bytes into a HashKey, zeroing b. Returns ErrInvalidKeySize unless b is
// between MinHashKeySize and MaxHashKeySize bytes long.
func NewHashKey(b []byte) (*HashKey, error) {
	km, err := capture[hashKeyBounds](b)
	if err != nil {
		return nil, err
	}

	return &HashKey{km}, nil
}

// Equal returns true if both keys are identical. It runs in constant time. Comparing keys of
// different sizes panics.
func (hk *HashKey) Equal(other *HashKey) bool {
	return hk.equal(other.keyMaterial)
}

// Hash returns the size-byte keyed BLAKE2b digest of the input. Returns ErrInvalidSize unless size
// is between MinHashSize and MaxHashSize.
func (hk *HashKey) Hash(input []byte, size int) ([]byte, error) {
	if err := checkHashSize(size); err != nil {
		return nil, err
	}

	var digest []byte

	hk.read(func(b []byte) {
		digest = genhash.Sum(input, b, size)
	})

	return digest, nil
}

// Hash returns the size-byte unkeyed BLAKE2b digest of the input. Returns ErrInvalidSize unless size
// is between MinHashSize and MaxHashSize.
func Hash(input []byte, size int) ([]byte, error) {
	if err := checkHashSize(size); err != nil {
		return nil, err
	}

	return genhash.Sum(input, nil, size), nil
}

func checkHashSize(size int) error {
	if size < MinHashSize || size > MaxHashSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}

	return nil
}
