//go:build linux

package shmregion

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LinuxAllocator backs regions with memfd_create + ftruncate + mmap, the
// standard Linux anonymous-shared-memory recipe. This mirrors the raw
// unix.Syscall / golang.org/x/sys/unix usage in api/pkg/drm/ioctl_linux.go,
// applied here to memfd/mmap instead of DRM ioctls.
type LinuxAllocator struct{}

// NewAllocator returns the Linux memfd-backed allocator.
func NewAllocator() Allocator {
	return LinuxAllocator{}
}

// Allocate implements Allocator.
func (LinuxAllocator) Allocate(name string, size int) (*Mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shmregion: invalid size %d", size)
	}

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("shmregion: memfd_create(%s): %w", name, err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmregion: ftruncate(%s, %d): %w", name, size, err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmregion: mmap(%s, %d): %w", name, size, err)
	}

	return &Mapping{FD: fd, Bytes: data}, nil
}

// Close implements Allocator.
func (LinuxAllocator) Close(m *Mapping) error {
	if m == nil {
		return nil
	}
	var err error
	if m.Bytes != nil {
		if uerr := unix.Munmap(m.Bytes); uerr != nil {
			err = fmt.Errorf("shmregion: munmap: %w", uerr)
		}
		m.Bytes = nil
	}
	if m.FD >= 0 {
		if cerr := unix.Close(m.FD); cerr != nil && err == nil {
			err = fmt.Errorf("shmregion: close fd: %w", cerr)
		}
		m.FD = -1
	}
	return err
}
