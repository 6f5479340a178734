package guarded

import (
	"bytes"
	"testing"

	"github.com/codahale/gubbins/assert"
)

func TestNew(t *testing.T) {
	t.Parallel()

	r := New(40)
	defer r.Release()

	assert.Equal(t, "size", 40, r.Size())
	assert.Equal(t, "state", NoAccess, r.State())

	sentinel := WithRead(r, func(b []byte) bool {
		return bytes.Equal(b, bytes.Repeat([]byte{Sentinel}, 40))
	})

	assert.Equal(t, "sentinel filled", true, sentinel)
	assert.Equal(t, "state after read", NoAccess, r.State())
}

func TestNew_Empty(t *testing.T) {
	t.Parallel()

	r := New(0)
	defer r.Release()

	assert.Equal(t, "size", 0, r.Size())
	assert.Equal(t, "contents", 0, WithRead(r, func(b []byte) int { return len(b) }))
}

func TestWithWrite(t *testing.T) {
	t.Parallel()

	r := New(16)
	defer r.Release()

	WithWrite(r, func(b []byte) struct{} {
		copy(b, "ayellowsubmarine")
		return struct{}{}
	})

	assert.Equal(t, "state after write", NoAccess, r.State())

	got := WithRead(r, func(b []byte) string { return string(b) })

	assert.Equal(t, "contents", "ayellowsubmarine", got)
}

func TestWithRead_Nested(t *testing.T) {
	t.Parallel()

	r := New(8)
	defer r.Release()

	inner := WithRead(r, func(b []byte) Access {
		WithWrite(r, func(b []byte) struct{} {
			b[0] = 1
			return struct{}{}
		})

		return r.State()
	})

	assert.Equal(t, "state restored to read-only", ReadOnly, inner)
	assert.Equal(t, "state after nesting", NoAccess, r.State())
}

func TestWithRead_Panic(t *testing.T) {
	t.Parallel()

	r := New(8)
	defer r.Release()

	func() {
		defer func() { _ = recover() }()

		WithRead(r, func(b []byte) struct{} {
			panic("oh no")
		})
	}()

	assert.Equal(t, "state after panic", NoAccess, r.State())
}

func TestRetainRelease(t *testing.T) {
	t.Parallel()

	r := New(8)

	a := r.Retain()
	assert.Equal(t, "refs", 2, r.Refs())

	r.Release()
	assert.Equal(t, "refs after release", 1, a.Refs())
	assert.Equal(t, "still readable", 8, WithRead(a, func(b []byte) int { return len(b) }))

	a.Release()
	assert.Equal(t, "refs after final release", 0, a.Refs())

	defer func() {
		if recover() == nil {
			t.Fatal("should have panicked on use after release")
		}
	}()

	_ = a.Size()
}

//nolint:paralleltest // replaces freeMemory
func TestRelease_Zeroes(t *testing.T) {
	var wiped bool

	freeMemory = func(b []byte) error {
		inner := b[pageSize : len(b)-pageSize]
		wiped = bytes.Equal(inner, make([]byte, len(inner)))

		return free(b)
	}

	defer func() { freeMemory = free }()

	r := New(32)
	WithWrite(r, func(b []byte) struct{} {
		copy(b, bytes.Repeat([]byte{0x42}, 32))
		return struct{}{}
	})
	r.Release()

	assert.Equal(t, "zeroed before free", true, wiped)
}

//nolint:paralleltest // wipes every live region
func TestPurge(t *testing.T) {
	r := New(16)
	defer r.Release()

	WithWrite(r, func(b []byte) struct{} {
		copy(b, "ayellowsubmarine")
		return struct{}{}
	})

	Purge()

	assert.Equal(t, "state after purge", NoAccess, r.State())
	assert.Equal(t, "contents after purge", make([]byte, 16), WithRead(r, func(b []byte) []byte {
		return append([]byte(nil), b...)
	}))
}

//nolint:paralleltest // counts every live region
func TestLive(t *testing.T) {
	before := Live()

	a, b := New(8), New(8)

	assert.Equal(t, "after new", before+2, Live())

	a.Release()

	assert.Equal(t, "after one release", before+1, Live())

	c := b.Retain()
	b.Release()

	assert.Equal(t, "retained region still live", before+1, Live())

	c.Release()

	assert.Equal(t, "after last release", before, Live())
}

func TestBackend(t *testing.T) {
	t.Parallel()

	Init()

	b, err := allocate(2 * PageSize())
	if err != nil {
		t.Fatal(err)
	}

	if err := lock(b); err != nil {
		t.Logf("lock failed (RLIMIT_MEMLOCK?): %v", err)
	}

	for _, a := range []Access{ReadWrite, ReadOnly, NoAccess, ReadWrite} {
		if err := protect(b, a); err != nil {
			t.Fatalf("protect(%s): %v", a, err)
		}
	}

	b[0] = 0xff

	_ = unlock(b)

	if err := free(b); err != nil {
		t.Fatal(err)
	}
}

func TestRoundUp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "zero", 0, roundUp(0, 4096))
	assert.Equal(t, "one", 4096, roundUp(1, 4096))
	assert.Equal(t, "exact", 4096, roundUp(4096, 4096))
	assert.Equal(t, "over", 8192, roundUp(4097, 4096))
}

func BenchmarkWithRead(b *testing.B) {
	r := New(32)
	defer r.Release()

	for i := 0; i < b.N; i++ {
		_ = WithRead(r, func(b []byte) int { return len(b) })
	}
}
