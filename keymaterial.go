package shield

import (
	"crypto/subtle"
	"fmt"
	"runtime"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/codahale/shield/internal/genhash"
	"github.com/codahale/shield/internal/guarded"
	"github.com/codahale/shield/internal/rng"
	"github.com/mr-tron/base58"
)

const (
	// FingerprintSize is the size of a fingerprint in bytes.
	FingerprintSize = genhash.Size

	// idSize is the number of fingerprint bytes used in String.
	idSize = 8
)

// Fingerprinter is implemented by every secret value type.
type Fingerprinter interface {
	Fingerprint() []byte
}

// sizePolicy bounds the size of a kind of key material.
type sizePolicy interface {
	bounds() (lo, hi int)
}

// keyMaterial is the guarded-memory building block shared by every secret value type. The policy
// parameter fixes the allowed sizes at compile time; two keyMaterial types with different policies
// are different types.
type keyMaterial[P sizePolicy] struct {
	h *handle
}

// handle is one owner's reference to a guarded region. Its finalizer releases the reference, so
// every method which touches the region must keep the handle reachable until it's done with it.
type handle struct {
	r       *guarded.Region
	fpOnce  sync.Once
	fp      []byte
	release sync.Once
}

func newHandle(r *guarded.Region) *handle {
	h := &handle{r: r}
	runtime.SetFinalizer(h, (*handle).close)

	return h
}

func (h *handle) close() {
	h.release.Do(func() {
		h.r.Release()
		h.r = nil
		runtime.SetFinalizer(h, nil)
	})
}

func checkSize[P sizePolicy](size int) error {
	var p P

	if lo, hi := p.bounds(); size < lo || size > hi {
		if lo == hi {
			return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, size, lo)
		}

		return fmt.Errorf("%w: got %d bytes, want %d-%d", ErrInvalidKeySize, size, lo, hi)
	}

	return nil
}

// fill allocates size bytes of guarded memory and lets fn write them.
func fill[P sizePolicy](size int, fn func(dst []byte)) (keyMaterial[P], error) {
	if err := checkSize[P](size); err != nil {
		return keyMaterial[P]{}, err
	}

	ensureInitialized()

	r := guarded.New(size)
	guarded.WithWrite(r, func(b []byte) struct{} {
		fn(b)
		return struct{}{}
	})

	return keyMaterial[P]{h: newHandle(r)}, nil
}

// generate returns size bytes of random key material.
func generate[P sizePolicy](size int) (keyMaterial[P], error) {
	return fill[P](size, rng.MustRead)
}

// capture moves the given bytes into guarded memory and zeroes the source. The source is zeroed
// even if its size is invalid.
func capture[P sizePolicy](b []byte) (keyMaterial[P], error) {
	defer memguard.WipeBytes(b)

	return fill[P](len(b), func(dst []byte) {
		copy(dst, b)
	})
}

// aliasAs returns a second owner of k's guarded region, typed with a different policy. The region
// is released once every owner has been closed.
func aliasAs[Q, P sizePolicy](k keyMaterial[P]) (keyMaterial[Q], error) {
	if err := checkSize[Q](k.Size()); err != nil {
		return keyMaterial[Q]{}, err
	}

	defer runtime.KeepAlive(k.h)

	return keyMaterial[Q]{h: newHandle(k.region().Retain())}, nil
}

func (k keyMaterial[P]) alias() keyMaterial[P] {
	defer runtime.KeepAlive(k.h)

	return keyMaterial[P]{h: newHandle(k.region().Retain())}
}

func (k keyMaterial[P]) region() *guarded.Region {
	if k.h == nil || k.h.r == nil {
		panic("shield: use of closed or uninitialized key material")
	}

	return k.h.r
}

// read calls fn with the contents of the key material. fn must not retain the slice.
func (k keyMaterial[P]) read(fn func(b []byte)) {
	defer runtime.KeepAlive(k.h)

	guarded.WithRead(k.region(), func(b []byte) struct{} {
		fn(b)
		return struct{}{}
	})
}

// Size returns the size of the key material in bytes.
func (k keyMaterial[P]) Size() int {
	defer runtime.KeepAlive(k.h)

	return k.region().Size()
}

// Bytes returns a copy of the key material in unprotected memory. The copy is not guarded in any
// way, so avoid this unless the bytes must be handed to code outside this package.
func (k keyMaterial[P]) Bytes() []byte {
	var out []byte

	k.read(func(b []byte) {
		out = make([]byte, len(b))
		copy(out, b)
	})

	return out
}

// Fingerprint returns the unkeyed BLAKE2b-256 digest of the key material. It is computed once per
// instance and cached.
func (k keyMaterial[P]) Fingerprint() []byte {
	defer runtime.KeepAlive(k.h)

	r := k.region()

	k.h.fpOnce.Do(func() {
		k.h.fp = guarded.WithRead(r, func(b []byte) []byte {
			return genhash.Sum(b, nil, FingerprintSize)
		})
	})

	fp := make([]byte, len(k.h.fp))
	copy(fp, k.h.fp)

	return fp
}

// FingerprintEqual compares the fingerprints of the two values in constant time. Unlike Equal, it
// works for values of different sizes and types.
func (k keyMaterial[P]) FingerprintEqual(other Fingerprinter) bool {
	return subtle.ConstantTimeCompare(k.Fingerprint(), other.Fingerprint()) == 1
}

// String returns a safe identifier for the key material derived from its fingerprint.
func (k keyMaterial[P]) String() string {
	return base58.Encode(k.Fingerprint()[:idSize])
}

// Close releases this reference to the key material. Once every reference is closed, the guarded
// memory is zeroed and freed. Close is idempotent; any other use after Close panics.
func (k keyMaterial[P]) Close() {
	if k.h != nil {
		k.h.close()
	}
}

// equal compares two instances in constant time. Comparing instances of different sizes is a
// programming error.
func (k keyMaterial[P]) equal(other keyMaterial[P]) bool {
	defer runtime.KeepAlive(other.h)
	defer runtime.KeepAlive(k.h)

	a, b := k.region(), other.region()

	if a.Size() != b.Size() {
		panic(fmt.Sprintf("shield: comparing key material of sizes %d and %d", a.Size(), b.Size()))
	}

	return guarded.WithRead(a, func(x []byte) bool {
		return guarded.WithRead(b, func(y []byte) bool {
			return subtle.ConstantTimeCompare(x, y) == 1
		})
	})
}
