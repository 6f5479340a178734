package shield

import (
	"encoding"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/codahale/shield/internal/sym"
)

// NoPadding disables padding when passed as a block size to SecretBox methods.
const NoPadding = 0

// CiphertextPrefixSize is the size of the fixed prefix of a serialized AuthenticatedCiphertext.
const CiphertextPrefixSize = NonceSize + MACSize

// SecretBox encrypts and decrypts messages with a single SecretKey using XSalsa20-Poly1305.
//
// Each message is encrypted with a random nonce and carries a MAC which is checked before any
// plaintext is returned.
type SecretBox struct {
	key *SecretKey
}

// GenerateSecretBox returns a SecretBox with a new random key.
func GenerateSecretBox() *SecretBox {
	return &SecretBox{key: GenerateSecretKey()}
}

// NewSecretBox returns a SecretBox which uses the given key. The box holds its own reference to the
// key, so the caller may close theirs.
func NewSecretBox(key *SecretKey) *SecretBox {
	return &SecretBox{key: &SecretKey{key.alias()}}
}

// Key returns a reference to the box's key.
func (sb *SecretBox) Key() *SecretKey {
	return &SecretKey{sb.key.alias()}
}

// Close releases the box's reference to its key.
func (sb *SecretBox) Close() {
	sb.key.Close()
}

// Encrypt encrypts the plaintext with a random nonce. If padding is not NoPadding, the plaintext is
// first padded to a multiple of that many bytes.
func (sb *SecretBox) Encrypt(plaintext []byte, padding int) (*AuthenticatedCiphertext, error) {
	nonce := GenerateNonce()
	defer nonce.Close()

	return sb.EncryptWithNonce(plaintext, padding, nonce)
}

// EncryptWithNonce encrypts the plaintext with the given nonce. Encrypting two different messages
// with the same key and nonce destroys the confidentiality of both; unless you need deterministic
// output, use Encrypt.
func (sb *SecretBox) EncryptWithNonce(plaintext []byte, padding int, nonce *Nonce) (*AuthenticatedCiphertext, error) {
	if padding < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, padding)
	}

	if padding != NoPadding {
		blocks, err := Pad(plaintext, padding)
		if err != nil {
			return nil, err
		}

		plaintext = blocks.Bytes()
		defer memguard.WipeBytes(plaintext)
	}

	var mac, ciphertext []byte

	sb.key.withKey(func(key *[SecretKeySize]byte) {
		mac, ciphertext = sym.Seal(key, nonce.array(), plaintext)
	})

	return &AuthenticatedCiphertext{
		nonce:      &Nonce{nonce.alias()},
		mac:        &AuthenticationCode{must(capture[macBounds](mac))},
		ciphertext: ciphertext,
	}, nil
}

// Decrypt verifies and decrypts the ciphertext. If padding is not NoPadding, the plaintext is
// unpadded with that block size after decryption. Returns ErrVerificationFailed if the ciphertext
// was not produced by this key or has been modified, or if the padding is invalid.
func (sb *SecretBox) Decrypt(ac *AuthenticatedCiphertext, padding int) ([]byte, error) {
	if padding < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, padding)
	}

	var (
		plaintext []byte
		ok        bool
	)

	mac := ac.mac.Bytes()

	sb.key.withKey(func(key *[SecretKeySize]byte) {
		plaintext, ok = sym.Open(key, ac.nonce.array(), mac, ac.ciphertext)
	})

	if !ok {
		return nil, ErrVerificationFailed
	}

	if padding == NoPadding {
		return plaintext, nil
	}

	// A bad pad after a good MAC is reported the same way as a bad MAC.
	unpadded, err := Unpad(plaintext, padding)
	if err != nil {
		memguard.WipeBytes(plaintext)
		return nil, ErrVerificationFailed
	}

	return unpadded, nil
}

// Seal encrypts the plaintext with a random nonce and returns the serialized ciphertext.
//
// An empty plaintext sealed with NoPadding serializes to just the nonce and MAC, which Open
// rejects. Seal empty messages with a padding block size.
func (sb *SecretBox) Seal(plaintext []byte, padding int) ([]byte, error) {
	ac, err := sb.Encrypt(plaintext, padding)
	if err != nil {
		return nil, err
	}
	defer ac.Close()

	return ac.Bytes(), nil
}

// Open parses, verifies, and decrypts a serialized ciphertext. Malformed input is reported as
// ErrVerificationFailed.
func (sb *SecretBox) Open(ciphertext []byte, padding int) ([]byte, error) {
	ac, err := ParseAuthenticatedCiphertext(ciphertext)
	if err != nil {
		return nil, ErrVerificationFailed
	}
	defer ac.Close()

	return sb.Decrypt(ac, padding)
}

// AuthenticatedCiphertext is an encrypted message along with its nonce and MAC. It serializes as
// nonce || mac || ciphertext.
type AuthenticatedCiphertext struct {
	nonce      *Nonce
	mac        *AuthenticationCode
	ciphertext []byte
}

// ParseAuthenticatedCiphertext parses a serialized ciphertext. Returns ErrMalformed unless b is
// longer than CiphertextPrefixSize. The input is not modified.
func ParseAuthenticatedCiphertext(b []byte) (*AuthenticatedCiphertext, error) {
	if len(b) <= CiphertextPrefixSize {
		return nil, fmt.Errorf("%w: ciphertext of %d bytes", ErrMalformed, len(b))
	}

	// Copy the prefix, since capturing zeroes its input.
	prefix := make([]byte, CiphertextPrefixSize)
	copy(prefix, b)

	ciphertext := make([]byte, len(b)-CiphertextPrefixSize)
	copy(ciphertext, b[CiphertextPrefixSize:])

	return &AuthenticatedCiphertext{
		nonce:      &Nonce{must(capture[nonceBounds](prefix[:NonceSize]))},
		mac:        &AuthenticationCode{must(capture[macBounds](prefix[NonceSize:]))},
		ciphertext: ciphertext,
	}, nil
}

// Nonce returns a reference to the ciphertext's nonce.
func (ac *AuthenticatedCiphertext) Nonce() *Nonce {
	return &Nonce{ac.nonce.alias()}
}

// MAC returns a reference to the ciphertext's authentication code.
func (ac *AuthenticatedCiphertext) MAC() *AuthenticationCode {
	return &AuthenticationCode{ac.mac.alias()}
}

// Ciphertext returns the encrypted message without the nonce or MAC.
func (ac *AuthenticatedCiphertext) Ciphertext() []byte {
	return ac.ciphertext
}

// Bytes returns the serialized form of the ciphertext.
func (ac *AuthenticatedCiphertext) Bytes() []byte {
	out := make([]byte, 0, CiphertextPrefixSize+len(ac.ciphertext))
	out = append(out, ac.nonce.Bytes()...)
	out = append(out, ac.mac.Bytes()...)

	return append(out, ac.ciphertext...)
}

// MarshalBinary returns the serialized form of the ciphertext.
func (ac *AuthenticatedCiphertext) MarshalBinary() ([]byte, error) {
	return ac.Bytes(), nil
}

// UnmarshalBinary parses a serialized ciphertext into ac.
func (ac *AuthenticatedCiphertext) UnmarshalBinary(data []byte) error {
	parsed, err := ParseAuthenticatedCiphertext(data)
	if err != nil {
		return err
	}

	*ac = *parsed

	return nil
}

// Close releases the ciphertext's nonce and MAC.
func (ac *AuthenticatedCiphertext) Close() {
	if ac.nonce != nil {
		ac.nonce.Close()
		ac.mac.Close()
	}
}

var (
	_ encoding.BinaryMarshaler   = &AuthenticatedCiphertext{}
	_ encoding.BinaryUnmarshaler = &AuthenticatedCiphertext{}
)
