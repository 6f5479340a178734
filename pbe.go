package shield

import (
	"encoding/binary"
	"fmt"

	"github.com/codahale/shield/internal/pwhash"
)

const (
	// SaltSize is the size of a password salt in bytes.
	SaltSize = pwhash.SaltSize

	// PublicParametersSize is the size of the serialized public parameters of a password-derived key.
	PublicParametersSize = 4 + 4 + SaltSize
)

type saltBounds struct{}

func (saltBounds) bounds() (int, int) { return SaltSize, SaltSize }

// Salt is a random value which makes a password's hashes and derived keys unique.
type Salt struct {
	keyMaterial[saltBounds]
}

// GenerateSalt returns a new random Salt.
func GenerateSalt() *Salt {
	return &Salt{must(generate[saltBounds](SaltSize))}
}

// NewSalt moves the given bytes into a Salt, zeroing b. Returns ErrInvalidKeySize if b is not
// SaltSize bytes long.
func NewSalt(b []byte) (*Salt, error) {
	km, err := capture[saltBounds](b)
	if err != nil {
		return nil, err
	}

	return &Salt{km}, nil
}

// Equal returns true if both salts are identical. It runs in constant time.
func (s *Salt) Equal(other *Salt) bool {
	return s.equal(other.keyMaterial)
}

// DeriveKey derives a size-byte key from the password with a new random salt. Returns
// ErrInvalidSize unless size is between MinDerivedKeySize and MaxDerivedKeySize, and
// ErrInvalidParameters if either cost class is unknown.
func (p *Password) DeriveKey(size int, c Complexity, m Memory) (*PasswordDerivedKey, error) {
	salt := GenerateSalt()
	defer salt.Close()

	return p.DeriveKeyWithSalt(size, c, m, salt)
}

// DeriveKeyWithSalt derives a size-byte key from the password with the given salt. The same
// password, salt, and costs always produce the same key.
func (p *Password) DeriveKeyWithSalt(size int, c Complexity, m Memory, salt *Salt) (*PasswordDerivedKey, error) {
	if size < MinDerivedKeySize || size > MaxDerivedKeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}

	ops, mem, err := costs(c, m)
	if err != nil {
		return nil, err
	}

	var km keyMaterial[derivedKeyBounds]

	p.read(func(pw []byte) {
		salt.read(func(sb []byte) {
			km = must(capture[derivedKeyBounds](pwhash.Derive(pw, sb, ops, mem, size)))
		})
	})

	return &PasswordDerivedKey{
		keyMaterial: km,
		salt:        &Salt{salt.alias()},
		complexity:  c,
		memory:      m,
	}, nil
}

// PasswordDerivedKey is a key derived from a password, along with the salt and costs needed to
// derive it again.
type PasswordDerivedKey struct {
	keyMaterial[derivedKeyBounds]
	salt       *Salt
	complexity Complexity
	memory     Memory
}

// Equal returns true if both keys are identical. It runs in constant time. Comparing keys of
// different sizes panics.
func (dk *PasswordDerivedKey) Equal(other *PasswordDerivedKey) bool {
	return dk.equal(other.keyMaterial)
}

// Salt returns a reference to the salt the key was derived with.
func (dk *PasswordDerivedKey) Salt() *Salt {
	return &Salt{dk.salt.alias()}
}

// Complexity returns the time cost class the key was derived with.
func (dk *PasswordDerivedKey) Complexity() Complexity {
	return dk.complexity
}

// Memory returns the memory cost class the key was derived with.
func (dk *PasswordDerivedKey) Memory() Memory {
	return dk.memory
}

// PublicParameters returns the serialized salt and costs, which are not secret and can be stored
// alongside anything the key protects:
//
//	BE_U32(ops) || BE_U32(mem) || salt
func (dk *PasswordDerivedKey) PublicParameters() []byte {
	ops, mem, err := costs(dk.complexity, dk.memory)
	if err != nil {
		panic(err)
	}

	b := make([]byte, 0, PublicParametersSize)
	b = binary.BigEndian.AppendUint32(b, ops)
	b = binary.BigEndian.AppendUint32(b, mem)

	return append(b, dk.salt.Bytes()...)
}

// SecretKey returns a SecretKey which shares this key's memory. It panics unless the key is
// SecretKeySize bytes long.
func (dk *PasswordDerivedKey) SecretKey() *SecretKey {
	return &SecretKey{must(aliasAs[secretKeyBounds](dk.keyMaterial))}
}

// Close releases the key and its salt.
func (dk *PasswordDerivedKey) Close() {
	dk.keyMaterial.Close()
	dk.salt.Close()
}

// PublicParameters are the salt and costs a password-derived key was derived with.
type PublicParameters struct {
	Salt       *Salt
	Complexity Complexity
	Memory     Memory
}

// ExtractPublicParameters parses the public parameters from the start of b. Anything after the
// parameters is ignored. Returns ErrMalformed if b is too short and ErrInvalidParameters if the
// costs are not known cost classes.
func ExtractPublicParameters(b []byte) (*PublicParameters, error) {
	if len(b) < PublicParametersSize {
		return nil, fmt.Errorf("%w: public parameters of %d bytes", ErrMalformed, len(b))
	}

	c, err := complexityFromOps(binary.BigEndian.Uint32(b))
	if err != nil {
		return nil, err
	}

	m, err := memoryFromBytes(binary.BigEndian.Uint32(b[4:]))
	if err != nil {
		return nil, err
	}

	salt := make([]byte, SaltSize)
	copy(salt, b[8:PublicParametersSize])

	return &PublicParameters{
		Salt:       must(NewSalt(salt)),
		Complexity: c,
		Memory:     m,
	}, nil
}

// DeriveKey re-derives a size-byte key from the password using these parameters.
func (pp *PublicParameters) DeriveKey(p *Password, size int) (*PasswordDerivedKey, error) {
	return p.DeriveKeyWithSalt(size, pp.Complexity, pp.Memory, pp.Salt)
}

// Close releases the salt.
func (pp *PublicParameters) Close() {
	pp.Salt.Close()
}

// SealWithPassword encrypts the plaintext with a key derived from the password and a new random
// salt. The output is the public parameters followed by the serialized AuthenticatedCiphertext.
func SealWithPassword(p *Password, plaintext []byte, c Complexity, m Memory, padding int) ([]byte, error) {
	if padding < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, padding)
	}

	dk, err := p.DeriveKey(SecretKeySize, c, m)
	if err != nil {
		return nil, err
	}
	defer dk.Close()

	sk := dk.SecretKey()
	defer sk.Close()

	box := NewSecretBox(sk)
	defer box.Close()

	ciphertext, err := box.Seal(plaintext, padding)
	if err != nil {
		return nil, err
	}

	return append(dk.PublicParameters(), ciphertext...), nil
}

// OpenWithPassword decrypts the output of SealWithPassword. Returns ErrMalformed or
// ErrInvalidParameters if the public parameters can't be parsed, and ErrVerificationFailed if the
// password is wrong or the ciphertext has been modified.
func OpenWithPassword(p *Password, ciphertext []byte, padding int) ([]byte, error) {
	pp, err := ExtractPublicParameters(ciphertext)
	if err != nil {
		return nil, err
	}
	defer pp.Close()

	dk, err := pp.DeriveKey(p, SecretKeySize)
	if err != nil {
		return nil, err
	}
	defer dk.Close()

	sk := dk.SecretKey()
	defer sk.Close()

	box := NewSecretBox(sk)
	defer box.Close()

	return box.Open(ciphertext[PublicParametersSize:], padding)
}
