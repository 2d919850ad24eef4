package display

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"github.com/anderstorpsfestivalen/jukebridge/pkg/hostapi"
)

// Input event type codes, per spec §3.1.
const (
	EventMouseRelative = 1
	EventMouseAbsolute = 2
	EventMouseButton   = 3
	EventKey           = 4
)

// ring offsets relative to the start of the InputRing region.
const (
	ringOffWriteIdx = 0
	ringOffReadIdx  = 4
	ringOffEvents   = ringHeaderSize
)

func ringWriteIdxPtr(ring []byte) *uint32 {
	return (*uint32)(unsafe.Pointer(&ring[ringOffWriteIdx]))
}

func ringReadIdxPtr(ring []byte) *uint32 {
	return (*uint32)(unsafe.Pointer(&ring[ringOffReadIdx]))
}

// decodeEvent reads the 12-byte InputEvent at unbounded index idx, wrapped
// to the ring's fixed capacity.
func decodeEvent(ring []byte, idx uint32) (evType, button, pressed uint8, x, y int32) {
	slot := idx % ringCapacity
	off := ringOffEvents + int(slot)*inputEventSize
	b := ring[off : off+inputEventSize]
	evType = b[0]
	button = b[1]
	pressed = b[2]
	// b[3] is reserved.
	x = int32(binary.LittleEndian.Uint32(b[4:8]))
	y = int32(binary.LittleEndian.Uint32(b[8:12]))
	return
}

// drainInput implements spec §4.3: acquire-load write_idx, decode and
// dispatch events up to it using unsigned modular subtraction (so the loop
// terminates correctly even as both counters wrap past 2^32), flush the
// sink once if anything was drained, then release-store read_idx.
func drainInput(ring []byte, sink hostapi.InputSink) {
	w := atomic.LoadUint32(ringWriteIdxPtr(ring))
	r := atomic.LoadUint32(ringReadIdxPtr(ring))

	if w == r {
		return
	}

	drained := false
	for w-r != 0 {
		evType, button, pressed, x, y := decodeEvent(ring, r)
		dispatchEvent(sink, evType, button, pressed, x, y)
		r++
		drained = true
	}

	if drained {
		sink.Sync()
		atomic.StoreUint32(ringReadIdxPtr(ring), r)
	}
}

func dispatchEvent(sink hostapi.InputSink, evType, button, pressed uint8, x, y int32) {
	switch evType {
	case EventMouseRelative:
		sink.QueueRelative(x, y)
	case EventMouseAbsolute:
		sink.QueueAbsolute(x, y)
	case EventMouseButton:
		sink.QueueButton(button, pressed != 0)
	case EventKey:
		sink.QueueKey(x, pressed != 0)
	}
}
