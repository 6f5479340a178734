package shield

import (
	"encoding"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/codahale/shield/internal/kx"
	"github.com/mr-tron/base58"
)

const (
	PublicKeySize  = kx.PublicKeySize  // PublicKeySize is the size of a key exchange public key in bytes.
	SessionKeySize = kx.SessionKeySize // SessionKeySize is the size of a session key in bytes.
)

// Side is the role an endpoint plays in a key exchange.
type Side int

const (
	Client Side = iota
	Server
)

func (s Side) String() string {
	switch s {
	case Client:
		return "client"
	case Server:
		return "server"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Suite is a key exchange algorithm. Both endpoints must use the same suite.
type Suite int

const (
	// SuiteX25519 is X25519 with session keys derived by BLAKE2b-512.
	SuiteX25519 Suite = iota
	// SuiteRistretto255 is ristretto255 Diffie-Hellman with session keys derived by STROBE.
	SuiteRistretto255
)

func (s Suite) impl() kx.Suite {
	switch s {
	case SuiteX25519:
		return kx.X25519
	case SuiteRistretto255:
		return kx.Ristretto255
	default:
		panic(fmt.Sprintf("shield: unknown key exchange suite %d", int(s)))
	}
}

func (s Suite) String() string {
	return s.impl().Name()
}

// PublicKey is a key exchange public key. Its text form is base58.
type PublicKey [PublicKeySize]byte

// ParsePublicKey returns a PublicKey from exactly PublicKeySize bytes. Whether the key is a valid
// group element is only checked during the exchange.
func ParsePublicKey(b []byte) (PublicKey, error) {
	var pk PublicKey

	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(b), PublicKeySize)
	}

	copy(pk[:], b)

	return pk, nil
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(base58.Encode(pk[:])), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	b, err := base58.Decode(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	parsed, err := ParsePublicKey(b)
	if err != nil {
		return err
	}

	*pk = parsed

	return nil
}

func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

var (
	_ encoding.TextMarshaler   = PublicKey{}
	_ encoding.TextUnmarshaler = &PublicKey{}
	_ fmt.Stringer             = PublicKey{}
)

type (
	kxSecretKeyBounds struct{}
	sessionKeyBounds  struct{}
)

func (kxSecretKeyBounds) bounds() (int, int) { return kx.SecretKeySize, kx.SecretKeySize }
func (sessionKeyBounds) bounds() (int, int)  { return SessionKeySize, SessionKeySize }

// KeyExchange is one endpoint of a key exchange. Each endpoint has a single fresh key pair; to start
// another exchange, create another endpoint.
type KeyExchange struct {
	side  Side
	suite Suite
	pk    PublicKey
	sk    keyMaterial[kxSecretKeyBounds]
}

// NewKeyExchange returns an X25519 endpoint for the given side with a new key pair.
func NewKeyExchange(side Side) *KeyExchange {
	return NewKeyExchangeWithSuite(side, SuiteX25519)
}

// NewKeyExchangeWithSuite returns an endpoint for the given side and suite with a new key pair.
func NewKeyExchangeWithSuite(side Side, suite Suite) *KeyExchange {
	impl := suite.impl()

	var pk PublicKey

	// The secret key is written straight into guarded memory.
	sk := must(fill[kxSecretKeyBounds](kx.SecretKeySize, func(dst []byte) {
		copy(pk[:], impl.GenerateKeyPair(dst))
	}))

	return &KeyExchange{side: side, suite: suite, pk: pk, sk: sk}
}

// Side returns the endpoint's role.
func (x *KeyExchange) Side() Side {
	return x.side
}

// Suite returns the endpoint's key exchange algorithm.
func (x *KeyExchange) Suite() Suite {
	return x.suite
}

// PublicKey returns the endpoint's public key, to be sent to the peer.
func (x *KeyExchange) PublicKey() PublicKey {
	return x.pk
}

// Close releases the endpoint's secret key.
func (x *KeyExchange) Close() {
	x.sk.Close()
}

// SessionKeys returns the pair of session keys shared with the peer. The client's Rx equals the
// server's Tx, and vice versa. Returns ErrInvalidPeerKey if the peer's public key is unacceptable.
func (x *KeyExchange) SessionKeys(peer PublicKey) (*SessionKeyPair, error) {
	keys, err := x.sessionKeyMaterial(peer)
	if err != nil {
		return nil, err
	}

	first := &SessionKey{must(capture[sessionKeyBounds](keys[:SessionKeySize]))}
	second := &SessionKey{must(capture[sessionKeyBounds](keys[SessionKeySize:]))}

	if x.side == Client {
		return &SessionKeyPair{Rx: first, Tx: second}, nil
	}

	return &SessionKeyPair{Rx: second, Tx: first}, nil
}

// SessionKey returns a single session key shared with the peer: the client's receive key, which is
// the server's transmit key. Both sides calling SessionKey get the same key.
func (x *KeyExchange) SessionKey(peer PublicKey) (*SessionKey, error) {
	keys, err := x.sessionKeyMaterial(peer)
	if err != nil {
		return nil, err
	}

	defer memguard.WipeBytes(keys)

	return &SessionKey{must(capture[sessionKeyBounds](keys[:SessionKeySize]))}, nil
}

func (x *KeyExchange) sessionKeyMaterial(peer PublicKey) ([]byte, error) {
	clientPK, serverPK := x.pk, peer
	if x.side == Server {
		clientPK, serverPK = peer, x.pk
	}

	var (
		keys []byte
		err  error
	)

	x.sk.read(func(sk []byte) {
		keys, err = x.suite.impl().SessionKeys(sk, peer[:], clientPK[:], serverPK[:])
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeerKey, err)
	}

	return keys, nil
}

// SessionKeyPair is a pair of directional session keys.
type SessionKeyPair struct {
	Rx *SessionKey // Rx decrypts messages from the peer.
	Tx *SessionKey // Tx encrypts messages to the peer.
}

// Close releases both keys.
func (p *SessionKeyPair) Close() {
	p.Rx.Close()
	p.Tx.Close()
}

// SessionKey is a key established by a key exchange.
type SessionKey struct {
	keyMaterial[sessionKeyBounds]
}

// Equal returns true if both keys are identical. It runs in constant time.
func (k *SessionKey) Equal(other *SessionKey) bool {
	return k.equal(other.keyMaterial)
}

// SecretKey returns a SecretKey which shares this key's memory, for use with a SecretBox.
func (k *SessionKey) SecretKey() *SecretKey {
	return &SecretKey{must(aliasAs[secretKeyBounds](k.keyMaterial))}
}

// SecretBox returns a SecretBox keyed with this key.
func (k *SessionKey) SecretBox() *SecretBox {
	return &SecretBox{key: k.SecretKey()}
}
