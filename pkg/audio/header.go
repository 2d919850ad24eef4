// Package audio implements the audio channel: a fixed-size shared-memory
// region carrying an AudioHeader and a single-producer/single-consumer PCM
// ring buffer. As with pkg/display, the wire layout is manipulated directly
// through byte offsets rather than a Go struct overlay, matching the
// teacher's own wire-buffer style in api/pkg/drm/manager.go.
package audio

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

const (
	// Magic is the audio region's wire identifier ("JAUD" little-endian).
	Magic = 0x4455414A
	// Version is the protocol revision this package writes and expects.
	Version = 2

	// RingFrames is the fixed PCM ring capacity, a power of two, per spec §3.2.
	RingFrames = 8192

	// FormatS16LE and FormatF32LE are the two supported sample encodings.
	FormatS16LE = 1
	FormatF32LE = 2
)

// Header field byte offsets.
const (
	offMagic       = 0
	offVersion     = 4
	offSampleRate  = 8
	offChannels    = 12
	offFormat      = 16
	offRingFrames  = 20
	offWriteIdx    = 24
	offReadIdx     = 28
	offEnabled     = 32
	offMuted       = 36
	offVolumeLeft  = 40
	offVolumeRight = 44
	// 4 u32 padding words follow, reaching HeaderSize.

	// HeaderSize is sizeof(AudioHeader) on the wire: padded to 64 bytes.
	HeaderSize = 64
)

// BytesPerFrame returns the frame size for the given channel count and
// format code.
func BytesPerFrame(channels, format uint32) int {
	sampleBytes := 2
	if format == FormatF32LE {
		sampleBytes = 4
	}
	return int(channels) * sampleBytes
}

// NeededBytes returns the total region size for the given channel/format
// combination: header plus the fixed-size ring.
func NeededBytes(channels, format uint32) int {
	return HeaderSize + RingFrames*BytesPerFrame(channels, format)
}

type header struct {
	buf []byte
}

func newHeader(buf []byte) header {
	return header{buf: buf}
}

func (h header) u32ptr(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&h.buf[off]))
}

// initConstants writes the header once at region allocation time: magic,
// version, format fields, ring_frames, zeroed indices, disabled-by-default
// enabled flag left for the renderer to set, and the default unmuted
// full-volume state per spec §4.5.
func (h header) initConstants(sampleRate, channels, format uint32) {
	binary.LittleEndian.PutUint32(h.buf[offMagic:], Magic)
	binary.LittleEndian.PutUint32(h.buf[offVersion:], Version)
	binary.LittleEndian.PutUint32(h.buf[offSampleRate:], sampleRate)
	binary.LittleEndian.PutUint32(h.buf[offChannels:], channels)
	binary.LittleEndian.PutUint32(h.buf[offFormat:], format)
	binary.LittleEndian.PutUint32(h.buf[offRingFrames:], RingFrames)
	binary.LittleEndian.PutUint32(h.buf[offWriteIdx:], 0)
	binary.LittleEndian.PutUint32(h.buf[offReadIdx:], 0)
	binary.LittleEndian.PutUint32(h.buf[offEnabled:], 0)
	binary.LittleEndian.PutUint32(h.buf[offMuted:], 0)
	binary.LittleEndian.PutUint32(h.buf[offVolumeLeft:], 255)
	binary.LittleEndian.PutUint32(h.buf[offVolumeRight:], 255)
}

func (h header) loadWriteIdx() uint32 {
	return atomic.LoadUint32(h.u32ptr(offWriteIdx))
}

func (h header) storeWriteIdxRelease(v uint32) {
	atomic.StoreUint32(h.u32ptr(offWriteIdx), v)
}

func (h header) loadReadIdxAcquire() uint32 {
	return atomic.LoadUint32(h.u32ptr(offReadIdx))
}

func (h header) loadEnabledAcquire() bool {
	return atomic.LoadUint32(h.u32ptr(offEnabled)) != 0
}

func (h header) setVolume(muted bool, left, right uint32) {
	m := uint32(0)
	if muted {
		m = 1
	}
	atomic.StoreUint32(h.u32ptr(offMuted), m)
	atomic.StoreUint32(h.u32ptr(offVolumeLeft), left)
	atomic.StoreUint32(h.u32ptr(offVolumeRight), right)
}

func (h header) samples() []byte {
	return h.buf[HeaderSize:]
}
