// Package display implements the display channel: a resizable shared-memory
// region carrying a DisplayHeader, a fixed cursor sprite slot, an input ring
// written by the renderer, and the emulator's pixel buffer. Layout and
// atomic-field discipline are dictated entirely by the wire ABI; the Go side
// reads/writes through raw offsets into the mapped byte slice the way the
// teacher's drm package manipulates wire buffers directly with
// binary.LittleEndian.PutUint32 rather than through a Go struct overlay
// (api/pkg/drm/manager.go, api/pkg/drm/protocol.go).
package display

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

const (
	// Magic is the display region's wire identifier ("JUKE" little-endian).
	Magic = 0x454B554A
	// Version is the protocol revision this package writes and expects.
	Version = 3
)

// Header field byte offsets, in declaration order. hdrSize is the total
// header size in bytes; all offsets below it are part of the wire ABI and
// must never be reordered.
const (
	offMagic         = 0
	offVersion       = 4
	offWidth         = 8
	offHeight        = 12
	offStride        = 16
	offFormat        = 20
	offFrameCounter  = 24 // u64, naturally 8-byte aligned at this offset
	offDirtyX        = 32
	offDirtyY        = 36
	offDirtyW        = 40
	offDirtyH        = 44
	offCursorVersion = 48
	offCursorX       = 52
	offCursorY       = 56
	offCursorVisible = 60
	offCursorWidth   = 64
	offCursorHeight  = 68
	offCursorHotX    = 72
	offCursorHotY    = 76

	hdrSize = 80
)

const (
	// CursorDim is the fixed cursor sprite edge length in pixels.
	CursorDim = 64
	// cursorBytes is the fixed cursor slot size: 64x64 RGBA8888.
	cursorBytes = CursorDim * CursorDim * 4

	// ringCapacity is the fixed input ring capacity, in events.
	ringCapacity = 256
	// inputEventSize is sizeof(InputEvent) on the wire: type,button,pressed,reserved,x,y.
	inputEventSize = 12
	// ringHeaderSize is write_idx + read_idx + 8 bytes padding to align events to 16.
	ringHeaderSize = 4 + 4 + 8
	ringBytes      = ringHeaderSize + ringCapacity*inputEventSize

	// HeaderSize is sizeof(DisplayHeader) on the wire.
	HeaderSize = hdrSize
	// FixedBytes is everything before the pixel buffer: header + cursor slot + ring.
	FixedBytes = HeaderSize + cursorBytes + ringBytes
)

// NeededBytes returns the total region size for a surface of the given
// stride and height, per spec §4.2.
func NeededBytes(stride, height uint32) int {
	return FixedBytes + int(stride)*int(height)
}

// header is a thin view over the first HeaderSize bytes of a mapped region.
// All accessors index directly into buf; there is no Go struct overlay so
// the wire layout above is the only source of truth.
type header struct {
	buf []byte
}

func newHeader(buf []byte) header {
	return header{buf: buf}
}

func (h header) u32ptr(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&h.buf[off]))
}

func (h header) u64ptr(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&h.buf[off]))
}

// initConstants writes magic/version and the surface dimensions/format, and
// zeroes the rest of the header (including the cursor metadata) and the
// input ring indices; the cursor slot pixels are left as they are. Called on
// every surface switch, whether or not the region was reallocated, using
// plain (non-atomic) stores.
func (h header) initConstants(width, height, stride, format uint32) {
	binary.LittleEndian.PutUint32(h.buf[offMagic:], Magic)
	binary.LittleEndian.PutUint32(h.buf[offVersion:], Version)
	binary.LittleEndian.PutUint32(h.buf[offWidth:], width)
	binary.LittleEndian.PutUint32(h.buf[offHeight:], height)
	binary.LittleEndian.PutUint32(h.buf[offStride:], stride)
	binary.LittleEndian.PutUint32(h.buf[offFormat:], format)
	binary.LittleEndian.PutUint64(h.buf[offFrameCounter:], 0)
	binary.LittleEndian.PutUint32(h.buf[offDirtyX:], 0)
	binary.LittleEndian.PutUint32(h.buf[offDirtyY:], 0)
	binary.LittleEndian.PutUint32(h.buf[offDirtyW:], 0)
	binary.LittleEndian.PutUint32(h.buf[offDirtyH:], 0)
	binary.LittleEndian.PutUint32(h.buf[offCursorVersion:], 0)
	binary.LittleEndian.PutUint32(h.buf[offCursorX:], 0)
	binary.LittleEndian.PutUint32(h.buf[offCursorY:], 0)
	binary.LittleEndian.PutUint32(h.buf[offCursorVisible:], 0)
	binary.LittleEndian.PutUint32(h.buf[offCursorWidth:], 0)
	binary.LittleEndian.PutUint32(h.buf[offCursorHeight:], 0)
	binary.LittleEndian.PutUint32(h.buf[offCursorHotX:], 0)
	binary.LittleEndian.PutUint32(h.buf[offCursorHotY:], 0)

	ring := h.buf[HeaderSize+cursorBytes:]
	binary.LittleEndian.PutUint32(ring[0:], 0) // write_idx
	binary.LittleEndian.PutUint32(ring[4:], 0) // read_idx
}

func (h header) setDirtyRect(x, y, w, hh uint32) {
	binary.LittleEndian.PutUint32(h.buf[offDirtyX:], x)
	binary.LittleEndian.PutUint32(h.buf[offDirtyY:], y)
	binary.LittleEndian.PutUint32(h.buf[offDirtyW:], w)
	binary.LittleEndian.PutUint32(h.buf[offDirtyH:], hh)
}

// publishFrame is the release-ordered commit point for a dirty update: all
// preceding writes to this mapping become visible to a renderer that
// acquire-loads frame_counter after this call returns.
func (h header) publishFrame() {
	atomic.AddUint64(h.u64ptr(offFrameCounter), 1)
}

func (h header) setCursorShape(width, height uint32, hotX, hotY int32) {
	binary.LittleEndian.PutUint32(h.buf[offCursorWidth:], width)
	binary.LittleEndian.PutUint32(h.buf[offCursorHeight:], height)
	binary.LittleEndian.PutUint32(h.buf[offCursorHotX:], uint32(hotX))
	binary.LittleEndian.PutUint32(h.buf[offCursorHotY:], uint32(hotY))
}

// publishCursorShape is the release-ordered commit point for cursor sprite
// changes (pixels, dimensions, hotspot).
func (h header) publishCursorShape() {
	atomic.AddUint32(h.u32ptr(offCursorVersion), 1)
}

// setCursorPosition updates position/visibility and issues a release fence
// via an atomic store; there is no dedicated version counter for position,
// per spec §4.2 — the renderer reads it best-effort.
func (h header) setCursorPosition(x, y int32, visible bool) {
	binary.LittleEndian.PutUint32(h.buf[offCursorX:], uint32(x))
	binary.LittleEndian.PutUint32(h.buf[offCursorY:], uint32(y))
	v := uint32(0)
	if visible {
		v = 1
	}
	atomic.StoreUint32(h.u32ptr(offCursorVisible), v)
}

func (h header) cursorSlot() []byte {
	return h.buf[HeaderSize : HeaderSize+cursorBytes]
}

func (h header) ring() []byte {
	return h.buf[HeaderSize+cursorBytes : FixedBytes]
}

func (h header) pixels() []byte {
	return h.buf[FixedBytes:]
}

// Diagnostics is a read-only snapshot of header fields, exported for
// external tools (e.g. the render-stub harness) that observe the region
// without owning the write side.
type Diagnostics struct {
	Magic, Version                uint32
	Width, Height, Stride, Format uint32
	FrameCounter                  uint64
	CursorVersion                 uint32
}

// ReadDiagnostics acquire-loads the two commit anchors and reads the rest of
// the header fields best-effort, for diagnostic/inspection purposes only.
func ReadDiagnostics(buf []byte) Diagnostics {
	h := newHeader(buf)
	return Diagnostics{
		Magic:         binary.LittleEndian.Uint32(buf[offMagic:]),
		Version:       binary.LittleEndian.Uint32(buf[offVersion:]),
		Width:         binary.LittleEndian.Uint32(buf[offWidth:]),
		Height:        binary.LittleEndian.Uint32(buf[offHeight:]),
		Stride:        binary.LittleEndian.Uint32(buf[offStride:]),
		Format:        binary.LittleEndian.Uint32(buf[offFormat:]),
		FrameCounter:  atomic.LoadUint64(h.u64ptr(offFrameCounter)),
		CursorVersion: atomic.LoadUint32(h.u32ptr(offCursorVersion)),
	}
}
