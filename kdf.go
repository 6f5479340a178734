package shield

import (
	"fmt"

	"github.com/codahale/shield/internal/kdf"
)

const (
	MasterKeySize     = kdf.KeySize     // MasterKeySize is the size of a master key in bytes.
	ContextSize       = kdf.ContextSize // ContextSize is the size of a derivation context in bytes.
	MinDerivedKeySize = kdf.MinSize     // MinDerivedKeySize is the smallest derived key size in bytes.
	MaxDerivedKeySize = kdf.MaxSize     // MaxDerivedKeySize is the largest derived key size in bytes.
)

// Context identifies the domain a derived key is used in. Keys derived with different contexts are
// unrelated.
type Context [ContextSize]byte

// NewContext returns a Context from a string of at most ContextSize bytes, zero-padded.
func NewContext(s string) (Context, error) {
	var c Context

	if len(s) > ContextSize {
		return c, fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidContext, s, ContextSize)
	}

	copy(c[:], s)

	return c, nil
}

// MustContext is like NewContext but panics on error. It simplifies declaring contexts as package
// variables.
func MustContext(s string) Context {
	return must(NewContext(s))
}

// ContextFromBytes returns a Context from exactly ContextSize bytes.
func ContextFromBytes(b []byte) (Context, error) {
	var c Context

	if len(b) != ContextSize {
		return c, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidContext, len(b), ContextSize)
	}

	copy(c[:], b)

	return c, nil
}

type (
	masterKeyBounds  struct{}
	derivedKeyBounds struct{}
)

func (masterKeyBounds) bounds() (int, int)  { return MasterKeySize, MasterKeySize }
func (derivedKeyBounds) bounds() (int, int) { return MinDerivedKeySize, MaxDerivedKeySize }

// MasterKey is the root of a tree of derived keys.
//
// Sub-keys are derived with keyed BLAKE2b:
//
//	BLAKE2b(key=master_key, size=n, 'shield.kdf' || LE_U64(id) || context)
//
// The output size is part of BLAKE2b's parameter block, so keys of different sizes are unrelated
// even with the same id and context.
type MasterKey struct {
	keyMaterial[masterKeyBounds]
}

// GenerateMasterKey returns a new random MasterKey.
func GenerateMasterKey() *MasterKey {
	return &MasterKey{must(generate[masterKeyBounds](MasterKeySize))}
}

// NewMasterKey moves the given bytes into a MasterKey, zeroing b. Returns ErrInvalidKeySize if b is
// not MasterKeySize bytes long.
func NewMasterKey(b []byte) (*MasterKey, error) {
	km, err := capture[masterKeyBounds](b)
	if err != nil {
		return nil, err
	}

	return &MasterKey{km}, nil
}

// Equal returns true if both keys are identical. It runs in constant time.
func (mk *MasterKey) Equal(other *MasterKey) bool {
	return mk.equal(other.keyMaterial)
}

// DeriveKey returns the size-byte key for the given id and context. Returns ErrInvalidSize unless
// size is between MinDerivedKeySize and MaxDerivedKeySize.
func (mk *MasterKey) DeriveKey(size int, id uint64, ctx Context) (*DerivedKey, error) {
	if size < MinDerivedKeySize || size > MaxDerivedKeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}

	var km keyMaterial[derivedKeyBounds]

	mk.read(func(b []byte) {
		km = must(capture[derivedKeyBounds](kdf.Derive(b, id, (*[ContextSize]byte)(&ctx), size)))
	})

	return &DerivedKey{km}, nil
}

// Derive is like DeriveKey but panics if size is out of range. Use it when the size is a constant.
func (mk *MasterKey) Derive(size int, id uint64, ctx Context) *DerivedKey {
	return must(mk.DeriveKey(size, id, ctx))
}

// DeriveSecretKey returns a SecretKey for the given id and context.
func (mk *MasterKey) DeriveSecretKey(id uint64, ctx Context) *SecretKey {
	dk := mk.Derive(SecretKeySize, id, ctx)
	defer dk.Close()

	return dk.SecretKey()
}

// DerivedKey is a key derived from a MasterKey or a Password.
type DerivedKey struct {
	keyMaterial[derivedKeyBounds]
}

// Equal returns true if both keys are identical. It runs in constant time. Comparing keys of
// different sizes panics.
func (dk *DerivedKey) Equal(other *DerivedKey) bool {
	return dk.equal(other.keyMaterial)
}

// SecretKey returns a SecretKey which shares this key's memory. It panics unless the key is
// SecretKeySize bytes long.
func (dk *DerivedKey) SecretKey() *SecretKey {
	return &SecretKey{must(aliasAs[secretKeyBounds](dk.keyMaterial))}
}
