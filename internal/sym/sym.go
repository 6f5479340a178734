// Package sym provides detached XSalsa20-Poly1305 authenticated encryption.
package sym

import (
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	KeySize   = 32                 // KeySize is the size of keys in bytes.
	NonceSize = 24                 // NonceSize is the size of nonces in bytes.
	MACSize   = secretbox.Overhead // MACSize is the size of authentication tags in bytes.
)

// Seal encrypts the plaintext with the key and nonce, returning the tag and ciphertext separately.
// The two slices share one allocation, the tag first.
func Seal(key *[KeySize]byte, nonce *[NonceSize]byte, plaintext []byte) (mac, ciphertext []byte) {
	out := secretbox.Seal(make([]byte, 0, MACSize+len(plaintext)), plaintext, nonce, key)

	return out[:MACSize:MACSize], out[MACSize:]
}

// Open verifies the tag and decrypts the ciphertext. It returns false if the tag is invalid, in
// which case no plaintext is produced.
func Open(key *[KeySize]byte, nonce *[NonceSize]byte, mac, ciphertext []byte) ([]byte, bool) {
	if len(mac) != MACSize {
		return nil, false
	}

	// secretbox expects the tag and ciphertext contiguously.
	box := make([]byte, 0, MACSize+len(ciphertext))
	box = append(box, mac...)
	box = append(box, ciphertext...)

	return secretbox.Open(make([]byte, 0, len(ciphertext)), box, nonce, key)
}
