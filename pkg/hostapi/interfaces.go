// Package hostapi declares the minimal interfaces the bridge needs from its
// host virtualization framework. The framework itself, the guest driver
// surface, the audio mixer's rate conversion machinery, the display-surface
// format negotiation, and the input-device abstraction are all external
// collaborators; this package is the seam, not an implementation of any of
// them.
package hostapi

import "time"

// CursorImage is the console's canonical cursor shape, read by the display
// region manager on a cursor-define callback. The passed-in pointer from the
// host callback can lag; implementations should always read back through
// Console.Cursor rather than trust a stashed argument.
type CursorImage struct {
	Width, Height  int
	HotspotX       int
	HotspotY       int
	Pixels         []byte // width*height*4 RGBA8888, row-major, no padding
}

// Console exposes the active console's cursor shape (qemu_console_get_cursor).
type Console interface {
	Cursor() (CursorImage, bool)
}

// InputSink receives drained input-ring events and dispatches them into the
// guest's input-device abstraction (qemu_input_queue_{rel,abs,btn},
// qemu_input_event_send_key_number, qemu_input_event_sync).
type InputSink interface {
	QueueRelative(dx, dy int32)
	QueueAbsolute(x, y int32)
	QueueButton(button uint8, pressed bool)
	QueueKey(scancode int32, pressed bool)
	Sync()
}

// RefreshScheduler registers and updates the display refresh callback's poll
// interval (register_displaychangelistener / update_displaychangelistener).
type RefreshScheduler interface {
	Register(intervalMS int)
	Update(intervalMS int)
}

// RateController models the host audio framework's upstream rate estimator
// (audio_rate_start / audio_rate_get_bytes), used to apply backpressure
// without blocking when the renderer isn't draining the PCM ring.
type RateController interface {
	Start()
	BytesForElapsed(d time.Duration) int
}
