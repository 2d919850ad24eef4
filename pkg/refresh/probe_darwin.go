//go:build darwin && cgo

package refresh

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>

static double juke_main_display_refresh_period(void) {
	CGDirectDisplayID display = CGMainDisplayID();
	CGDisplayModeRef mode = CGDisplayCopyDisplayMode(display);
	if (mode == NULL) {
		return 0;
	}
	double hz = CGDisplayModeGetRefreshRate(mode);
	CGDisplayModeRelease(mode);
	return hz;
}
*/
import "C"

// DarwinProber queries the main display's nominal refresh rate via
// CoreGraphics, per spec §4.4.
type DarwinProber struct{}

func NewProber() Prober { return DarwinProber{} }

func (DarwinProber) Probe() (int, bool) {
	hz := float64(C.juke_main_display_refresh_period())
	if hz <= 0 {
		// Many displays report 0 for CGDisplayModeGetRefreshRate when the
		// mode is fixed-rate; fall back to a sane default panel rate.
		hz = 60
	}
	ms := hzToIntervalMS(hz)
	if ms <= 0 {
		return 0, false
	}
	return ms, true
}
