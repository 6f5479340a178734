// Package identity provides named principals whose keys live in a keychain.Store.
//
// Each identity has a master key, a SecretBox key, and a hash key. Keys are created the first time
// they're asked for and fetched on every later request. A stored key which can't be decoded is an
// error, never a reason to create a new one: that would silently lose access to everything the old
// key protected.
package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/codahale/shield"
	"github.com/codahale/shield/keychain"
	"github.com/rs/zerolog"
)

var (
	// ErrFailedToDecodeKey is returned when a stored key is not valid Base64.
	ErrFailedToDecodeKey = errors.New("identity: failed to decode key")

	// ErrInvalidKey is returned when a stored key decodes to the wrong size.
	ErrInvalidKey = errors.New("identity: invalid key")
)

// maxAttempts bounds the create-or-fetch loop when the store keeps changing underneath it.
const maxAttempts = 3

const (
	kindMasterKey = "master-key"
	kindSecretKey = "secret-key"
	kindHashKey   = "hash-key"
)

// Identity is a named principal.
type Identity struct {
	name   string
	store  keychain.Store
	logger zerolog.Logger
}

// Option configures an Identity.
type Option func(*Identity)

// WithLogger logs key creation, retrieval, and deletion to the given logger. Key bytes are never
// logged, only their fingerprint IDs.
func WithLogger(logger zerolog.Logger) Option {
	return func(id *Identity) {
		id.logger = logger
	}
}

// New returns the identity with the given name, backed by the store.
func New(name string, store keychain.Store, opts ...Option) *Identity {
	id := &Identity{name: name, store: store, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(id)
	}

	id.logger = id.logger.With().Str("identity", name).Logger()

	return id
}

// Name returns the identity's name.
func (id *Identity) Name() string {
	return id.name
}

// MasterKey returns the identity's master key, creating it if needed.
func (id *Identity) MasterKey(ctx context.Context) (*shield.MasterKey, error) {
	return load(ctx, id, kindMasterKey, shield.MasterKeySize, shield.NewMasterKey)
}

// SecretKey returns the identity's SecretBox key, creating it if needed.
func (id *Identity) SecretKey(ctx context.Context) (*shield.SecretKey, error) {
	return load(ctx, id, kindSecretKey, shield.SecretKeySize, shield.NewSecretKey)
}

// HashKey returns the identity's hash key, creating it if needed.
func (id *Identity) HashKey(ctx context.Context) (*shield.HashKey, error) {
	return load(ctx, id, kindHashKey, shield.HashKeySize, shield.NewHashKey)
}

// SecretBox returns a SecretBox keyed with the identity's SecretBox key.
func (id *Identity) SecretBox(ctx context.Context) (*shield.SecretBox, error) {
	key, err := id.SecretKey(ctx)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	return shield.NewSecretBox(key), nil
}

// Forget deletes all of the identity's keys. Keys which were never created are skipped.
func (id *Identity) Forget(ctx context.Context) error {
	for _, kind := range []string{kindMasterKey, kindSecretKey, kindHashKey} {
		err := id.store.Delete(ctx, id.keyID(kind))
		if errors.Is(err, keychain.ErrNotFound) {
			continue
		} else if err != nil {
			return fmt.Errorf("identity: deleting %s: %w", kind, err)
		}

		id.logger.Info().Str("kind", kind).Msg("key deleted")
	}

	return nil
}

func (id *Identity) keyID(kind string) string {
	return id.name + "." + kind
}

type key interface {
	String() string
}

// load fetches and decodes a key, creating and storing a random one if none is stored.
func load[K key](
	ctx context.Context, id *Identity, kind string, size int, parse func([]byte) (K, error),
) (K, error) {
	var zero K

	keyID := id.keyID(kind)

	for attempt := 0; ; attempt++ {
		encoded, err := id.store.Get(ctx, keyID)
		if err == nil {
			k, err := decode(encoded, size, parse)
			if err != nil {
				id.logger.Error().Err(err).Str("kind", kind).Msg("stored key is unusable")
				return zero, fmt.Errorf("%s: %w", keyID, err)
			}

			id.logger.Debug().Str("kind", kind).Stringer("key", k).Msg("key loaded")

			return k, nil
		} else if !errors.Is(err, keychain.ErrNotFound) {
			return zero, fmt.Errorf("identity: fetching %s: %w", keyID, err)
		}

		raw := memguard.NewBufferRandom(size)
		encoded = make([]byte, base64.StdEncoding.EncodedLen(size))
		base64.StdEncoding.Encode(encoded, raw.Bytes())
		raw.Destroy()

		err = id.store.Put(ctx, keyID, encoded)
		memguard.WipeBytes(encoded)

		// Someone else created it first; use theirs.
		if errors.Is(err, keychain.ErrAlreadyExists) && attempt < maxAttempts {
			id.logger.Debug().Str("kind", kind).Msg("key created concurrently")
			continue
		} else if err != nil {
			return zero, fmt.Errorf("identity: storing %s: %w", keyID, err)
		}

		id.logger.Info().Str("kind", kind).Msg("key created")
	}
}

func decode[K key](encoded []byte, size int, parse func([]byte) (K, error)) (K, error) {
	var zero K

	defer memguard.WipeBytes(encoded)

	b := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))

	n, err := base64.StdEncoding.Decode(b, encoded)
	if err != nil {
		memguard.WipeBytes(b)
		return zero, ErrFailedToDecodeKey
	}

	if n != size {
		memguard.WipeBytes(b)
		return zero, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, n, size)
	}

	k, err := parse(b[:n])
	if err != nil {
		memguard.WipeBytes(b)
		return zero, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return k, nil
}
