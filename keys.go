package shield

import (
	"github.com/codahale/shield/internal/sym"
)

const (
	SecretKeySize = sym.KeySize   // SecretKeySize is the size of a SecretBox key in bytes.
	NonceSize     = sym.NonceSize // NonceSize is the size of a nonce in bytes.
	MACSize       = sym.MACSize   // MACSize is the size of an authentication code in bytes.
)

type (
	secretKeyBounds struct{}
	nonceBounds     struct{}
	macBounds       struct{}
)

func (secretKeyBounds) bounds() (int, int) { return SecretKeySize, SecretKeySize }
func (nonceBounds) bounds() (int, int)     { return NonceSize, NonceSize }
func (macBounds) bounds() (int, int)       { return MACSize, MACSize }

// SecretKey is a key for a SecretBox.
type SecretKey struct {
	keyMaterial[secretKeyBounds]
}

// GenerateSecretKey returns a new random SecretKey.
func GenerateSecretKey() *SecretKey {
	return &SecretKey{must(generate[secretKeyBounds](SecretKeySize))}
}

// NewSecretKey moves the given bytes into a SecretKey, zeroing b. Returns ErrInvalidKeySize if b is
// not SecretKeySize bytes long.
func NewSecretKey(b []byte) (*SecretKey, error) {
	km, err := capture[secretKeyBounds](b)
	if err != nil {
		return nil, err
	}

	return &SecretKey{km}, nil
}

// Equal returns true if both keys are identical. It runs in constant time.
func (k *SecretKey) Equal(other *SecretKey) bool {
	return k.equal(other.keyMaterial)
}

// withKey calls fn with the guarded key bytes as an array pointer. fn must not retain it.
func (k *SecretKey) withKey(fn func(key *[SecretKeySize]byte)) {
	k.read(func(b []byte) {
		fn((*[SecretKeySize]byte)(b))
	})
}

// Nonce is a number used once. A nonce must never be used twice with the same key. Nonces are not
// secret, but are held in guarded memory like everything else.
type Nonce struct {
	keyMaterial[nonceBounds]
}

// GenerateNonce returns a new random Nonce.
func GenerateNonce() *Nonce {
	return &Nonce{must(generate[nonceBounds](NonceSize))}
}

// NewNonce moves the given bytes into a Nonce, zeroing b. Returns ErrInvalidKeySize if b is not
// NonceSize bytes long.
func NewNonce(b []byte) (*Nonce, error) {
	km, err := capture[nonceBounds](b)
	if err != nil {
		return nil, err
	}

	return &Nonce{km}, nil
}

// Equal returns true if both nonces are identical. It runs in constant time.
func (n *Nonce) Equal(other *Nonce) bool {
	return n.equal(other.keyMaterial)
}

func (n *Nonce) array() *[NonceSize]byte {
	var a [NonceSize]byte

	n.read(func(b []byte) {
		copy(a[:], b)
	})

	return &a
}

// AuthenticationCode is the tag produced by encryption which authenticates a ciphertext.
type AuthenticationCode struct {
	keyMaterial[macBounds]
}

// NewAuthenticationCode moves the given bytes into an AuthenticationCode, zeroing b. Returns
// ErrInvalidKeySize if b is not MACSize bytes long.
func NewAuthenticationCode(b []byte) (*AuthenticationCode, error) {
	km, err := capture[macBounds](b)
	if err != nil {
		return nil, err
	}

	return &AuthenticationCode{km}, nil
}

// Equal returns true if both codes are identical. It runs in constant time.
func (m *AuthenticationCode) Equal(other *AuthenticationCode) bool {
	return m.equal(other.keyMaterial)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}

	return v
}
