// Package rng provides the CSPRNG used for all keys, nonces, and salts.
//
// At startup, a STROBE protocol is initialized:
//
//	INIT('shield.rng', level=256)
//
// When a block of random data is required, a block B of equivalent size is read from the host
// machine's RNG, and the following operations performed:
//
//	AD(BE_U32(LEN(B)), meta=true)
//	KEY(B)
//	PRF(LEN(B)) -> B
//	RATCHET(32)
//
// This insulates key generation somewhat against a compromised host RNG.
package rng

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/codahale/shield/internal/protocol"
)

// Reader is a global, shared instance of a cryptographically secure random number generator. It is
// safe for concurrent use.
//
//nolint:gochecknoglobals // need a singleton
var Reader io.Reader = &reader{p: protocol.New("shield.rng"), src: rand.Reader}

// Read is a helper function that calls Reader.Read using io.ReadFull. On return, n == len(b) if and
// only if err == nil.
func Read(b []byte) (int, error) {
	return io.ReadFull(Reader, b)
}

// MustRead fills b with random data. A failing RNG is fatal: no key generated without one could be
// trusted.
func MustRead(b []byte) {
	if _, err := Read(b); err != nil {
		memguard.SafePanic(fmt.Errorf("rng: %w", err))
	}
}

type reader struct {
	mu  sync.Mutex
	p   *protocol.Protocol
	src io.Reader
}

func (r *reader) Read(b []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Include length of PRF request as associated data.
	r.p.MetaAD(protocol.BigEndianU32(len(b)))

	// Read a new block of data from the underlying RNG.
	if _, err := io.ReadFull(r.src, b); err != nil {
		return 0, err
	}

	// Re-key the protocol with the block.
	r.p.KEY(b)

	// Replace the block with the results of the PRF.
	r.p.PRF(b[:0], len(b))

	// Ratchet the state of the RNG to prevent rollback.
	r.p.Ratchet()

	return len(b), nil
}
