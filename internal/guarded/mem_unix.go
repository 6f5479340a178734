//go:build unix

package guarded

import (
	"golang.org/x/sys/unix"
)

func osPageSize() int {
	return unix.Getpagesize()
}

func allocate(n int) ([]byte, error) {
	return unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func free(b []byte) error {
	return unix.Munmap(b)
}

func lock(b []byte) error {
	return unix.Mlock(b)
}

func unlock(b []byte) error {
	return unix.Munlock(b)
}

func protect(b []byte, a Access) error {
	switch a {
	case ReadOnly:
		return unix.Mprotect(b, unix.PROT_READ)
	case ReadWrite:
		return unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE)
	default:
		return unix.Mprotect(b, unix.PROT_NONE)
	}
}

// DisableCoreDumps sets the process's core file size limit to zero, so a crash can't write guarded
// regions to disk.
func DisableCoreDumps() error {
	return unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})
}
