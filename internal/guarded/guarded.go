// Package guarded provides fixed-size memory regions for secret values.
//
// Each region is allocated on its own pages, surrounded by inaccessible guard pages, locked into
// RAM where the platform allows it, and filled with a non-zero sentinel byte. Outside of a WithRead
// or WithWrite call the region's pages are mapped with no access at all, so a stray read of a
// secret value faults instead of leaking it. Releasing the last reference to a region overwrites
// it with zeros before the pages are returned to the OS.
//
// Every live region is registered so Purge can wipe them all when the process is interrupted or a
// protection change fails.
//
// A region's access state is not synchronized. Callers sharing one region between goroutines must
// serialize their WithRead and WithWrite calls.
package guarded

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/awnumar/memguard"
)

// Access is the protection state of a region's data pages.
type Access int

const (
	NoAccess  Access = iota // NoAccess means the pages can be neither read nor written.
	ReadOnly                // ReadOnly means the pages can be read.
	ReadWrite               // ReadWrite means the pages can be read and written.
)

func (a Access) String() string {
	switch a {
	case NoAccess:
		return "no-access"
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// Sentinel is the value written to every byte of a freshly allocated region.
const Sentinel = 0xdb

// Region is a guarded allocation of a fixed number of bytes.
type Region struct {
	alloc []byte // guard page, inner pages, guard page
	inner []byte // the page-aligned pages holding data
	data  []byte // the last size bytes of inner
	state Access
	refs  atomic.Int32
}

//nolint:gochecknoglobals // process-wide state
var (
	initOnce sync.Once
	pageSize int

	liveMu sync.Mutex
	live   = make(map[*Region]struct{})
)

// Init resolves the page size used for allocations and disables core dumps. It is safe to call
// more than once; New calls it implicitly.
func Init() {
	initOnce.Do(func() {
		pageSize = osPageSize()
		if pageSize <= 0 || pageSize&(pageSize-1) != 0 {
			fatal(fmt.Errorf("guarded: invalid page size %d", pageSize))
		}

		// Best-effort; a hard limit we can't lower isn't worth failing over.
		_ = DisableCoreDumps()
	})
}

// PageSize returns the page size allocations are rounded to, or zero before Init.
func PageSize() int {
	return pageSize
}

// Purge overwrites every live region with zeros and leaves it inaccessible. It is meant for
// process shutdown: the regions stay mapped, but their contents are gone. Protection failures are
// ignored so Purge can run on the way to a fatal error.
func Purge() {
	liveMu.Lock()
	defer liveMu.Unlock()

	for r := range live {
		if protect(r.inner, ReadWrite) != nil {
			continue
		}

		memguard.WipeBytes(r.inner)

		if protect(r.inner, NoAccess) == nil {
			r.state = NoAccess
		} else {
			r.state = ReadWrite
		}
	}
}

// Live returns the number of regions which have not been released.
func Live() int {
	liveMu.Lock()
	defer liveMu.Unlock()

	return len(live)
}

// New allocates a region of size bytes, fills it with Sentinel, and leaves it in the NoAccess state
// with a single reference. Allocation failure is fatal.
func New(size int) *Region {
	if size < 0 {
		panic(fmt.Sprintf("guarded: negative size %d", size))
	}

	Init()

	// Round the data up to whole pages, with at least one page even for empty regions.
	innerLen := roundUp(size, pageSize)
	if innerLen == 0 {
		innerLen = pageSize
	}

	// Allocate the data pages plus a guard page on either side.
	alloc, err := allocate(innerLen + 2*pageSize)
	if err != nil {
		fatal(fmt.Errorf("guarded: unable to allocate %d bytes: %w", size, err))
	}

	inner := alloc[pageSize : pageSize+innerLen]

	// Locking is best-effort; RLIMIT_MEMLOCK is frequently tiny.
	_ = lock(inner)

	// Make the guard pages permanently inaccessible.
	mustProtect(alloc[:pageSize], NoAccess)
	mustProtect(alloc[pageSize+innerLen:], NoAccess)

	// Fill the data pages with the sentinel value.
	for i := range inner {
		inner[i] = Sentinel
	}

	// Align the data to the end of the inner pages so overruns hit the trailing guard page.
	r := &Region{
		alloc: alloc,
		inner: inner,
		data:  inner[innerLen-size : innerLen : innerLen],
		state: ReadWrite,
	}
	r.refs.Store(1)
	r.protect(NoAccess)

	liveMu.Lock()
	live[r] = struct{}{}
	liveMu.Unlock()

	return r
}

// Size returns the number of usable bytes in the region.
func (r *Region) Size() int {
	r.checkLive()

	return len(r.data)
}

// State returns the current access state of the region.
func (r *Region) State() Access {
	return r.state
}

// Refs returns the number of live references to the region.
func (r *Region) Refs() int {
	return int(r.refs.Load())
}

// WithRead makes the region readable, calls fn with its contents, and restores the previous access
// state, even if fn panics. fn must not retain the slice.
func WithRead[T any](r *Region, fn func(b []byte) T) T {
	r.checkLive()

	prev := r.enter(ReadOnly)
	defer r.leave(prev)

	return fn(r.data)
}

// WithWrite makes the region writable, calls fn with its contents, and restores the previous access
// state, even if fn panics. fn must not retain the slice.
func WithWrite[T any](r *Region, fn func(b []byte) T) T {
	r.checkLive()

	prev := r.enter(ReadWrite)
	defer r.leave(prev)

	return fn(r.data)
}

// Retain adds a reference to the region and returns it.
func (r *Region) Retain() *Region {
	if r.refs.Add(1) <= 1 {
		panic("guarded: retain of released region")
	}

	return r
}

// Release drops a reference to the region. When the last reference is dropped the region is made
// writable, overwritten with zeros, unlocked, and unmapped.
func (r *Region) Release() {
	n := r.refs.Add(-1)
	if n > 0 {
		return
	}

	if n < 0 {
		panic("guarded: release of released region")
	}

	// Zero the entire data pages, not just the data.
	r.protect(ReadWrite)
	memguard.WipeBytes(r.inner)

	liveMu.Lock()
	delete(live, r)
	liveMu.Unlock()

	_ = unlock(r.inner)

	if err := freeMemory(r.alloc); err != nil {
		fatal(fmt.Errorf("guarded: unable to free region: %w", err))
	}

	r.alloc, r.inner, r.data = nil, nil, nil
}

// enter raises the access state to at least want and returns the state to restore.
func (r *Region) enter(want Access) Access {
	prev := r.state
	if want > prev {
		r.protect(want)
	}

	return prev
}

func (r *Region) leave(prev Access) {
	if r.state != prev {
		r.protect(prev)
	}
}

func (r *Region) protect(a Access) {
	mustProtect(r.inner, a)
	r.state = a
}

func (r *Region) checkLive() {
	if r.refs.Load() <= 0 {
		panic("guarded: use of released region")
	}
}

func mustProtect(b []byte, a Access) {
	if err := protect(b, a); err != nil {
		fatal(fmt.Errorf("guarded: unable to set %s: %w", a, err))
	}
}

// fatal wipes every live region, then lets memguard wipe its own buffers and panic. Once a
// protection change fails, nothing about the secrets in this process can be promised.
func fatal(err error) {
	Purge()
	memguard.SafePanic(err)
}

func roundUp(n, multiple int) int {
	return (n + multiple - 1) &^ (multiple - 1)
}

// freeMemory is a variable so tests can observe regions before they are unmapped.
//
//nolint:gochecknoglobals // test seam
var freeMemory = free
