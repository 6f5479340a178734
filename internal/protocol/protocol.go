// Package protocol wraps STROBE with the handful of operations the key exchange transcript and the
// RNG need, panicking on errors which can only come from misuse of the STROBE state machine.
package protocol

import (
	"encoding/binary"

	"github.com/sammyne/strobe"
)

// RatchetSize is the amount of state cleared by Ratchet.
//
//	Setting L = sec/8 bytes is sufficient when R ≥ sec/8. That is, set L to 16 bytes or 32
//	bytes for Strobe-128/b and Strobe-256/b, respectively.
const RatchetSize = int(strobe.Bit256) / 8

// Protocol is a STROBE protocol instance at the 256-bit security level.
type Protocol struct {
	s *strobe.Strobe
}

// New returns a protocol initialized with the given name.
func New(name string) *Protocol {
	s, err := strobe.New(name, strobe.Bit256)
	if err != nil {
		panic(err)
	}

	return &Protocol{s: s}
}

// MetaAD adds the data to the protocol as metadata.
func (p *Protocol) MetaAD(data []byte) {
	if err := p.s.AD(data, metaOpts); err != nil {
		panic(err)
	}
}

// AD adds the data to the protocol as associated data.
func (p *Protocol) AD(data []byte) {
	if err := p.s.AD(data, defaultOpts); err != nil {
		panic(err)
	}
}

// KEY keys the protocol with a copy of the given key.
func (p *Protocol) KEY(key []byte) {
	k := make([]byte, len(key))
	copy(k, key)

	if err := p.s.KEY(k, false); err != nil {
		panic(err)
	}
}

// PRF appends n bytes of PRF output to dst and returns the result.
func (p *Protocol) PRF(dst []byte, n int) []byte {
	ret, out := SliceForAppend(dst, n)

	if err := p.s.PRF(out, false); err != nil {
		panic(err)
	}

	return ret
}

// Ratchet clears RatchetSize bytes of protocol state, preventing rollback.
func (p *Protocol) Ratchet() {
	if err := p.s.RATCHET(RatchetSize); err != nil {
		panic(err)
	}
}

// BigEndianU32 returns n as a 32-bit big endian bit string.
func BigEndianU32(n int) []byte {
	var b [4]byte

	binary.BigEndian.PutUint32(b[:], uint32(n))

	return b[:]
}

// SliceForAppend takes a slice and a requested number of bytes. It returns a slice with the
// contents of the given slice followed by that many bytes and a second slice that aliases into it
// and contains only the extra bytes. If the original slice has sufficient capacity then no
// allocation is performed.
func SliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}

	tail = head[len(in):]

	return
}

//nolint:gochecknoglobals // constants
var (
	defaultOpts = &strobe.Options{}
	metaOpts    = &strobe.Options{Meta: true}
)
