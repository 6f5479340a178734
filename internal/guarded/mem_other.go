//go:build !unix

package guarded

import (
	"os"

	"github.com/awnumar/memcall"
)

func osPageSize() int {
	return os.Getpagesize()
}

func allocate(n int) ([]byte, error) {
	return memcall.Alloc(n)
}

func free(b []byte) error {
	return memcall.Free(b)
}

func lock(b []byte) error {
	return memcall.Lock(b)
}

func unlock(b []byte) error {
	return memcall.Unlock(b)
}

func protect(b []byte, a Access) error {
	switch a {
	case ReadOnly:
		return memcall.Protect(b, memcall.ReadOnly())
	case ReadWrite:
		return memcall.Protect(b, memcall.ReadWrite())
	default:
		return memcall.Protect(b, memcall.NoAccess())
	}
}

// DisableCoreDumps stops a crash from writing guarded regions to disk, where the platform allows it.
func DisableCoreDumps() error {
	return memcall.DisableCoreDumps()
}
