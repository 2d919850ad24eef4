package display

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/anderstorpsfestivalen/jukebridge/pkg/hostapi"
	"github.com/anderstorpsfestivalen/jukebridge/pkg/shmregion"
	"github.com/anderstorpsfestivalen/jukebridge/pkg/transport"
)

// regionName is the advisory name passed to the shared-memory allocator,
// per spec §6.
const regionName = "juke-fb"

// Region is the display channel's region manager: it owns the mapped
// shared-memory region, the rendezvous handshake, and the up-calls the host
// display framework drives (gfx_switch, gfx_update, cursor_define,
// mouse_set, refresh). One Region per console, matching the one-region-per-
// channel model of api/pkg/drm/manager.go's per-lease state.
type Region struct {
	alloc   shmregion.Allocator
	rv      *transport.Rendezvous
	console hostapi.Console
	sink    hostapi.InputSink
	errOnce *hostapi.OnceLogger

	mapping *shmregion.Mapping
	hdr     header

	width, height, stride, format uint32
}

// NewRegion constructs a Region. The renderer socket path and allocator are
// supplied by the caller; no other configuration is read, per spec §6.
func NewRegion(alloc shmregion.Allocator, rv *transport.Rendezvous, console hostapi.Console, sink hostapi.InputSink) *Region {
	return &Region{
		alloc:   alloc,
		rv:      rv,
		console: console,
		sink:    sink,
		errOnce: hostapi.NewOnceLogger(),
	}
}

// OnGfxSwitch implements spec §4.2: grow-only reallocation on surface
// resize/format change, header (re)initialization, and an opportunistic fd
// handshake. initial is the new surface's pixel data, exactly stride*height
// bytes.
func (r *Region) OnGfxSwitch(width, height, stride, format uint32, initial []byte) error {
	needed := NeededBytes(stride, height)

	if r.mapping == nil || needed > len(r.mapping.Bytes) {
		if r.mapping != nil {
			if err := r.alloc.Close(r.mapping); err != nil {
				log.Warn().Err(err).Msg("[display] failed to release prior region")
			}
		}

		m, err := r.alloc.Allocate(regionName, needed)
		if err != nil {
			r.errOnce.Fire("display_alloc", func() {
				log.Error().Err(err).Int("bytes", needed).Msg("[display] shared-memory allocation failed")
			})
			r.mapping = nil
			return fmt.Errorf("display: on_gfx_switch: %w", err)
		}

		r.mapping = m
		// A fresh region means a fresh fd that must be handed to the
		// renderer again, per spec §9.
		r.rv.ResetFDSent()
	}

	r.hdr = newHeader(r.mapping.Bytes)
	r.hdr.initConstants(width, height, stride, format)

	pixels := r.hdr.pixels()
	n := int(stride) * int(height)
	if n > len(initial) {
		n = len(initial)
	}
	copy(pixels[:n], initial[:n])

	r.width, r.height, r.stride, r.format = width, height, stride, format

	r.rv.Connect()
	if r.rv.Connected() {
		r.rv.SendFD(r.mapping.FD)
	}

	return nil
}

// OnGfxUpdate implements spec §4.2: copies rows [y, y+h) from the host
// surface using the surface's own stride (the whole row, not just the w
// dirty pixels — an intentional over-copy per spec §9(2), not a bug),
// records the dirty rectangle, then publishes with a release-ordered
// frame_counter increment.
func (r *Region) OnGfxUpdate(surface []byte, surfaceStride, x, y, w, h uint32) {
	if r.mapping == nil {
		return
	}

	pixels := r.hdr.pixels()
	rowBytes := int(surfaceStride)
	for row := uint32(0); row < h; row++ {
		srcOff := int(y+row) * rowBytes
		dstOff := int(y+row) * int(r.stride)
		if srcOff+rowBytes > len(surface) || dstOff+rowBytes > len(pixels) {
			break
		}
		copy(pixels[dstOff:dstOff+rowBytes], surface[srcOff:srcOff+rowBytes])
	}

	r.hdr.setDirtyRect(x, y, w, h)
	r.hdr.publishFrame()
}

// OnCursorDefine implements spec §4.2: reads the console's canonical cursor
// (never the caller's possibly-stale argument), clamps to the 64x64 slot,
// copies pixels, and bumps cursor_version with release ordering whether or
// not a cursor is present.
func (r *Region) OnCursorDefine() {
	if r.mapping == nil {
		return
	}

	img, ok := r.console.Cursor()
	if !ok {
		r.hdr.setCursorShape(0, 0, 0, 0)
		r.hdr.publishCursorShape()
		return
	}

	width := clampCursorDim(img.Width)
	height := clampCursorDim(img.Height)
	src := img.Pixels
	if int(width) < img.Width {
		// Repack the clamped window so each source row is width*4 bytes.
		src = make([]byte, int(width)*int(height)*4)
		for row := 0; row < int(height); row++ {
			copy(src[row*int(width)*4:(row+1)*int(width)*4], img.Pixels[row*img.Width*4:])
		}
	}
	writeCursorShape(r.hdr.cursorSlot(), src, int(width), int(height))
	r.hdr.setCursorShape(width, height, int32(img.HotspotX), int32(img.HotspotY))
	r.hdr.publishCursorShape()
}

// OnMouseSet implements spec §4.2: position/visibility update with a
// release fence but no version bump — shape version is the ordering
// anchor, position is read best-effort.
func (r *Region) OnMouseSet(x, y int32, visible bool) {
	if r.mapping == nil {
		return
	}
	r.hdr.setCursorPosition(x, y, visible)
}

// Refresh implements spec §4.3: drains the renderer-produced input ring and
// dispatches events to the input sink. Intended to run on every refresh
// tick before graphic_hw_update.
func (r *Region) Refresh() {
	if r.mapping == nil {
		return
	}
	drainInput(r.hdr.ring(), r.sink)
}

// Close releases the mapped region and the rendezvous connection.
func (r *Region) Close() error {
	if r.mapping == nil {
		return r.rv.Close()
	}
	err := r.alloc.Close(r.mapping)
	r.mapping = nil
	if cerr := r.rv.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
