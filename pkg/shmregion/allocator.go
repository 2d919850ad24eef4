// Package shmregion provides the anonymous shared-memory allocation adapter
// the bridge's two channels use to back their mapped regions. The spec names
// this allocator as an external collaborator ("the allocator primitive that
// produces anonymous memory-backed file descriptors"); this package is the
// one adapter in the bridge that ships a concrete implementation rather than
// only an interface, because the spec gives it a name ("juke-fb" /
// "juke-audio") and a platform-specific mechanism worth grounding in code.
package shmregion

import "fmt"

// Mapping is a shared-memory region: an open fd plus the process's mapping
// of it. There is no in-place resize; a larger region is a new Allocate call.
// Close unmaps and closes the fd.
type Mapping struct {
	FD    int
	Bytes []byte
}

// Allocator produces anonymous memory-backed shared regions.
type Allocator interface {
	// Allocate creates a new anonymous shared-memory object of exactly size
	// bytes tagged with the given advisory name ("juke-fb" or "juke-audio")
	// and maps it read-write into the caller's address space.
	Allocate(name string, size int) (*Mapping, error)
	// Close unmaps and closes a previously allocated mapping.
	Close(m *Mapping) error
}

// ErrUnsupported is returned by platform stubs that cannot back anonymous
// shared memory (see memfd_other.go).
var ErrUnsupported = fmt.Errorf("shmregion: anonymous shared memory not supported on this platform")
