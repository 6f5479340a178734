// Package kx provides the key exchange suites used to establish session keys.
//
// Each suite computes a shared secret Q from one side's secret key and the other side's public key,
// then derives 64 bytes of session key material bound to both public keys. The client's public key
// always comes first, so both sides derive the same bytes; the caller splits them into directional
// keys.
package kx

import (
	"bytes"
	"errors"

	"github.com/awnumar/memguard"
	"github.com/cloudflare/circl/dh/x25519"
	"github.com/codahale/shield/internal/protocol"
	"github.com/codahale/shield/internal/rng"
	"github.com/gtank/ristretto255"
	"golang.org/x/crypto/blake2b"
)

const (
	PublicKeySize  = 32 // PublicKeySize is the size of public keys in bytes.
	SecretKeySize  = 32 // SecretKeySize is the size of secret keys in bytes.
	SessionKeySize = 32 // SessionKeySize is the size of each directional session key in bytes.
)

// ErrInvalidPeerKey is returned when the peer's public key is not an acceptable group element.
var ErrInvalidPeerKey = errors.New("kx: invalid peer public key")

// Suite is a key exchange primitive.
type Suite interface {
	// Name returns the suite's name.
	Name() string

	// GenerateKeyPair writes a new secret key to sk and returns the corresponding public key.
	GenerateKeyPair(sk []byte) (pk []byte)

	// SessionKeys returns 2*SessionKeySize bytes of session key material given the local secret key,
	// the peer's public key, and both public keys in client, server order.
	SessionKeys(sk, peer, clientPK, serverPK []byte) ([]byte, error)
}

//nolint:gochecknoglobals // stateless suites
var (
	// X25519 is X25519 with a BLAKE2b-512 transcript hash:
	//
	//	BLAKE2b-512(Q || client_pk || server_pk)
	X25519 Suite = x25519Suite{}

	// Ristretto255 is ristretto255 Diffie-Hellman with a STROBE transcript:
	//
	//	INIT('shield.kx.ristretto255', level=256)
	//	AD(BE_U32(64),                 meta=true)
	//	KEY(Q)
	//	AD(client_pk)
	//	AD(server_pk)
	//	PRF(64)
	Ristretto255 Suite = ristretto255Suite{}
)

type x25519Suite struct{}

func (x25519Suite) Name() string {
	return "x25519"
}

func (x25519Suite) GenerateKeyPair(sk []byte) []byte {
	var s, p x25519.Key

	defer memguard.WipeBytes(s[:])

	rng.MustRead(s[:])
	x25519.KeyGen(&p, &s)
	copy(sk, s[:])

	return p[:]
}

func (x25519Suite) SessionKeys(sk, peer, clientPK, serverPK []byte) ([]byte, error) {
	var s, p, q x25519.Key

	defer memguard.WipeBytes(s[:])
	defer memguard.WipeBytes(q[:])

	if len(peer) != PublicKeySize {
		return nil, ErrInvalidPeerKey
	}

	copy(s[:], sk)
	copy(p[:], peer)

	// Shared rejects low-order points, which would yield an all-zero secret.
	if !x25519.Shared(&q, &s, &p) {
		return nil, ErrInvalidPeerKey
	}

	h, err := blake2b.New512(nil)
	if err != nil {
		panic(err)
	}

	_, _ = h.Write(q[:])
	_, _ = h.Write(clientPK)
	_, _ = h.Write(serverPK)

	return h.Sum(make([]byte, 0, 2*SessionKeySize)), nil
}

type ristretto255Suite struct{}

func (ristretto255Suite) Name() string {
	return "ristretto255"
}

func (ristretto255Suite) GenerateKeyPair(sk []byte) []byte {
	var r [64]byte

	defer memguard.WipeBytes(r[:])

	// Map 64 uniform bytes to a scalar.
	rng.MustRead(r[:])
	d := ristretto255.NewScalar().FromUniformBytes(r[:])

	copy(sk, d.Encode(nil))

	return ristretto255.NewElement().ScalarBaseMult(d).Encode(nil)
}

func (ristretto255Suite) SessionKeys(sk, peer, clientPK, serverPK []byte) ([]byte, error) {
	d := ristretto255.NewScalar()
	if err := d.Decode(sk); err != nil {
		panic(err)
	}

	// Decoding rejects non-canonical encodings and anything off the group.
	q := ristretto255.NewElement()
	if err := q.Decode(peer); err != nil {
		return nil, ErrInvalidPeerKey
	}

	zz := ristretto255.NewElement().ScalarMult(d, q).Encode(nil)
	defer memguard.WipeBytes(zz)

	// The identity element encodes as all zeros.
	if bytes.Equal(zz, make([]byte, len(zz))) {
		return nil, ErrInvalidPeerKey
	}

	p := protocol.New("shield.kx.ristretto255")
	p.MetaAD(protocol.BigEndianU32(2 * SessionKeySize))
	p.KEY(zz)
	p.AD(clientPK)
	p.AD(serverPK)

	return p.PRF(nil, 2*SessionKeySize), nil
}
