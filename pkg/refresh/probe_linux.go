//go:build linux

package refresh

import (
	"os"
	"path/filepath"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DRM ioctl numbers, same encoding as api/pkg/drm/ioctl_linux.go:
// _IOWR('d', nr, size) = 0xC0000000 | (size << 16) | ('d' << 8) | nr.
const (
	ioctlModeGetResources = 0xc04064a0
	ioctlModeGetCrtc      = 0xc06864a1
)

type drmModeCardRes struct {
	FbIDPtr         uint64
	CrtcIDPtr       uint64
	ConnectorIDPtr  uint64
	EncoderIDPtr    uint64
	CountFbs        uint32
	CountCrtcs      uint32
	CountConnectors uint32
	CountEncoders   uint32
	MinWidth        uint32
	MaxWidth        uint32
	MinHeight       uint32
	MaxHeight       uint32
}

// drmModeModeInfo corresponds to struct drm_mode_modeinfo (68 bytes).
type drmModeModeInfo struct {
	Clock      uint32
	Hdisplay   uint16
	HsyncStart uint16
	HsyncEnd   uint16
	Htotal     uint16
	Hskew      uint16
	Vdisplay   uint16
	VsyncStart uint16
	VsyncEnd   uint16
	Vtotal     uint16
	Vscan      uint16
	Vrefresh   uint32
	Flags      uint32
	Type       uint32
	Name       [32]byte
}

// drmModeCrtc corresponds to struct drm_mode_crtc.
type drmModeCrtc struct {
	SetConnectorsPtr uint64
	CountConnectors  uint32
	CrtcID           uint32
	FbID             uint32
	X                uint32
	Y                uint32
	GammaSize        uint32
	ModeValid        uint32
	Mode             drmModeModeInfo
}

// LinuxProber enumerates /dev/dri/card* and derives an interval from the
// fastest valid CRTC mode on the first card that yields one, per spec §4.4.
type LinuxProber struct{}

func NewProber() Prober { return LinuxProber{} }

func (LinuxProber) Probe() (int, bool) {
	cards, err := filepath.Glob("/dev/dri/card*")
	if err != nil {
		return 0, false
	}
	sort.Strings(cards)

	for _, path := range cards {
		if ms, ok := probeCard(path); ok {
			return ms, true
		}
	}
	return 0, false
}

func probeCard(path string) (int, bool) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	crtcIDs, err := getCrtcIDs(f)
	if err != nil || len(crtcIDs) == 0 {
		return 0, false
	}

	best := 0
	found := false
	for _, id := range crtcIDs {
		crtc, err := getCrtc(f, id)
		if err != nil || crtc.ModeValid == 0 {
			continue
		}
		hz := modeHz(crtc.Mode)
		ms := hzToIntervalMS(hz)
		if ms <= 0 {
			continue
		}
		if !found || ms < best {
			best = ms
			found = true
		}
	}
	return best, found
}

func modeHz(m drmModeModeInfo) float64 {
	htotal := uint32(m.Htotal)
	vtotal := uint32(m.Vtotal)
	if htotal == 0 || vtotal == 0 {
		return 0
	}
	return float64(m.Clock) * 1000.0 / float64(htotal*vtotal)
}

func getCrtcIDs(f *os.File) ([]uint32, error) {
	var res drmModeCardRes
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), ioctlModeGetResources,
		uintptr(unsafe.Pointer(&res))); errno != 0 {
		return nil, errno
	}
	if res.CountCrtcs == 0 {
		return nil, nil
	}

	crtcIDs := make([]uint32, res.CountCrtcs)
	res2 := drmModeCardRes{
		CrtcIDPtr:  uint64(uintptr(unsafe.Pointer(&crtcIDs[0]))),
		CountCrtcs: res.CountCrtcs,
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), ioctlModeGetResources,
		uintptr(unsafe.Pointer(&res2))); errno != 0 {
		return nil, errno
	}
	return crtcIDs, nil
}

func getCrtc(f *os.File, crtcID uint32) (drmModeCrtc, error) {
	crtc := drmModeCrtc{CrtcID: crtcID}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), ioctlModeGetCrtc,
		uintptr(unsafe.Pointer(&crtc))); errno != 0 {
		return drmModeCrtc{}, errno
	}
	return crtc, nil
}
