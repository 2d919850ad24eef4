// Package refresh implements the refresh-rate probe: at startup it queries
// the host's active display mode and chooses a poll interval for the
// display refresh callback, per spec §4.4. The platform split (Linux DRM
// ioctls vs a cgo-gated Darwin probe vs an unsupported-host stub) mirrors
// the teacher's own ioctl_linux.go / ioctl_other.go and
// gst_pipeline.go / gst_pipeline_nocgo.go build-tag pairs.
package refresh

import "github.com/anderstorpsfestivalen/jukebridge/pkg/hostapi"

// fallbackIntervalMS is used whenever probing yields nothing usable,
// targeting roughly 120 Hz, per spec §4.4.
const fallbackIntervalMS = 8

// Prober queries the host's active display mode and returns a candidate
// poll interval in milliseconds. ok is false if no mode could be read.
type Prober interface {
	Probe() (intervalMS int, ok bool)
}

// clampInterval accepts intervals in (0, 100) ms; anything else falls back.
func clampInterval(ms int) int {
	if ms > 0 && ms < 100 {
		return ms
	}
	return fallbackIntervalMS
}

// Detect probes p, clamps the result, registers it with sched, and returns
// the chosen interval.
func Detect(p Prober, sched hostapi.RefreshScheduler) int {
	ms, ok := p.Probe()
	if !ok {
		ms = fallbackIntervalMS
	} else {
		ms = clampInterval(ms)
	}
	sched.Register(ms)
	return ms
}

// hzToIntervalMS converts a refresh rate in Hz to an integer millisecond
// interval, per spec §4.4's `interval = 1000 / Hz`.
func hzToIntervalMS(hz float64) int {
	if hz <= 0 {
		return 0
	}
	return int(1000.0 / hz)
}
