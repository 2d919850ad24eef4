//go:build !linux

package shmregion

// otherAllocator is the non-Linux stub. Anonymous memfd-backed shared memory
// is a Linux-specific mechanism; this bridge's reference renderer and tests
// target Linux hosts, matching the teacher's own //go:build !linux stub for
// DRM ioctls (api/pkg/drm/ioctl_other.go), which likewise refuses rather than
// emulating the platform primitive.
type otherAllocator struct{}

// NewAllocator returns a stub allocator that always fails on non-Linux hosts.
func NewAllocator() Allocator {
	return otherAllocator{}
}

func (otherAllocator) Allocate(name string, size int) (*Mapping, error) {
	return nil, ErrUnsupported
}

func (otherAllocator) Close(m *Mapping) error {
	return nil
}
