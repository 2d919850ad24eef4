package display

import (
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anderstorpsfestivalen/jukebridge/pkg/hostapi"
	"github.com/anderstorpsfestivalen/jukebridge/pkg/shmregion"
	"github.com/anderstorpsfestivalen/jukebridge/pkg/transport"
)

// memAllocator is a test double that backs Mappings with plain Go slices
// instead of memfd, so display logic can be exercised without Linux.
type memAllocator struct{}

func (memAllocator) Allocate(name string, size int) (*shmregion.Mapping, error) {
	return &shmregion.Mapping{FD: -1, Bytes: make([]byte, size)}, nil
}

func (memAllocator) Close(m *shmregion.Mapping) error { return nil }

type fakeConsole struct {
	img hostapi.CursorImage
	ok  bool
}

func (f fakeConsole) Cursor() (hostapi.CursorImage, bool) { return f.img, f.ok }

type fakeSink struct {
	rel, abs, btn, key int
	synced             int
}

func (f *fakeSink) QueueRelative(dx, dy int32)      { f.rel++ }
func (f *fakeSink) QueueAbsolute(x, y int32)        { f.abs++ }
func (f *fakeSink) QueueButton(b uint8, p bool)     { f.btn++ }
func (f *fakeSink) QueueKey(scancode int32, p bool) { f.key++ }
func (f *fakeSink) Sync()                           { f.synced++ }

func newTestRegion() (*Region, *fakeSink) {
	sink := &fakeSink{}
	rv := transport.New("/tmp/does-not-exist.sock")
	r := NewRegion(memAllocator{}, rv, fakeConsole{}, sink)
	return r, sink
}

func TestOnGfxSwitchResizeCorrectness(t *testing.T) {
	r, _ := newTestRegion()

	width, height, stride := uint32(800), uint32(600), uint32(3200)
	surface := make([]byte, stride*height)
	for i := range surface {
		surface[i] = byte(i)
	}

	require.NoError(t, r.OnGfxSwitch(width, height, stride, 1, surface))

	require.Equal(t, width, binary.LittleEndian.Uint32(r.mapping.Bytes[offWidth:]))
	require.Equal(t, height, binary.LittleEndian.Uint32(r.mapping.Bytes[offHeight:]))
	require.Equal(t, stride, binary.LittleEndian.Uint32(r.mapping.Bytes[offStride:]))
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(r.mapping.Bytes[offFormat:]))
	require.Equal(t, Magic, int(binary.LittleEndian.Uint32(r.mapping.Bytes[offMagic:])))
	require.Equal(t, Version, int(binary.LittleEndian.Uint32(r.mapping.Bytes[offVersion:])))

	pixels := r.hdr.pixels()
	require.Equal(t, surface, pixels[:len(surface)])
}

func TestOnGfxSwitchResetsFDSent(t *testing.T) {
	// A listening socket gives the rendezvous a peer, so SendFD really sends.
	sockPath := filepath.Join(t.TempDir(), "juke-display.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	r := NewRegion(memAllocator{}, transport.New(sockPath), fakeConsole{}, &fakeSink{})
	require.NoError(t, r.OnGfxSwitch(64, 64, 256, 1, make([]byte, 256*64)))

	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	r.rv.SendFD(int(wr.Fd()))
	require.True(t, r.rv.FDSent())
	// second switch that needs a bigger region must reset fd_sent
	require.NoError(t, r.OnGfxSwitch(128, 128, 512, 1, make([]byte, 512*128)))
	require.False(t, r.rv.FDSent())
}

func TestOnGfxUpdateDirtyPublish(t *testing.T) {
	r, _ := newTestRegion()
	stride := uint32(3200)
	height := uint32(600)
	require.NoError(t, r.OnGfxSwitch(800, height, stride, 1, make([]byte, stride*height)))

	surface := make([]byte, stride*height)
	for i := range surface {
		surface[i] = 0xAB
	}

	r.OnGfxUpdate(surface, stride, 10, 20, 30, 40)

	require.Equal(t, uint32(10), binary.LittleEndian.Uint32(r.mapping.Bytes[offDirtyX:]))
	require.Equal(t, uint32(20), binary.LittleEndian.Uint32(r.mapping.Bytes[offDirtyY:]))
	require.Equal(t, uint32(30), binary.LittleEndian.Uint32(r.mapping.Bytes[offDirtyW:]))
	require.Equal(t, uint32(40), binary.LittleEndian.Uint32(r.mapping.Bytes[offDirtyH:]))
	require.Equal(t, uint64(1), binary.LittleEndian.Uint64(r.mapping.Bytes[offFrameCounter:]))

	r.OnGfxUpdate(surface, stride, 0, 0, 1, 1)
	require.Equal(t, uint64(2), binary.LittleEndian.Uint64(r.mapping.Bytes[offFrameCounter:]))
}

func TestOnCursorDefineShapeAndNull(t *testing.T) {
	r, _ := newTestRegion()
	require.NoError(t, r.OnGfxSwitch(64, 64, 256, 1, make([]byte, 256*64)))

	pixels := make([]byte, 24*24*4)
	for i := range pixels {
		pixels[i] = 0x7F
	}
	r.console = fakeConsole{ok: true, img: hostapi.CursorImage{
		Width: 24, Height: 24, HotspotX: 3, HotspotY: 3, Pixels: pixels,
	}}

	r.OnCursorDefine()

	require.Equal(t, uint32(24), binary.LittleEndian.Uint32(r.mapping.Bytes[offCursorWidth:]))
	require.Equal(t, uint32(24), binary.LittleEndian.Uint32(r.mapping.Bytes[offCursorHeight:]))
	require.Equal(t, int32(3), int32(binary.LittleEndian.Uint32(r.mapping.Bytes[offCursorHotX:])))
	require.Equal(t, int32(3), int32(binary.LittleEndian.Uint32(r.mapping.Bytes[offCursorHotY:])))
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(r.mapping.Bytes[offCursorVersion:]))

	r.console = fakeConsole{ok: false}
	r.OnCursorDefine()

	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(r.mapping.Bytes[offCursorWidth:]))
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(r.mapping.Bytes[offCursorHeight:]))
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(r.mapping.Bytes[offCursorVersion:]))
}

func TestInputDrainOrderAndReadIdx(t *testing.T) {
	r, sink := newTestRegion()
	require.NoError(t, r.OnGfxSwitch(64, 64, 256, 1, make([]byte, 256*64)))

	ring := r.hdr.ring()
	writeEvent := func(idx uint32, evType, button, pressed uint8, x, y int32) {
		off := ringOffEvents + int(idx%ringCapacity)*inputEventSize
		ring[off] = evType
		ring[off+1] = button
		ring[off+2] = pressed
		binary.LittleEndian.PutUint32(ring[off+4:], uint32(x))
		binary.LittleEndian.PutUint32(ring[off+8:], uint32(y))
	}

	writeEvent(0, EventMouseRelative, 0, 0, 3, -2)
	writeEvent(1, EventMouseButton, 7, 1, 0, 0)
	writeEvent(2, EventKey, 0, 1, 42, 0)
	binary.LittleEndian.PutUint32(ring[ringOffWriteIdx:], 3)

	r.Refresh()

	require.Equal(t, 1, sink.rel)
	require.Equal(t, 1, sink.btn)
	require.Equal(t, 1, sink.key)
	require.Equal(t, 1, sink.synced)
	require.Equal(t, uint32(3), binary.LittleEndian.Uint32(ring[ringOffReadIdx:]))
}

func TestInputDrainEmptyIsNoop(t *testing.T) {
	r, sink := newTestRegion()
	require.NoError(t, r.OnGfxSwitch(64, 64, 256, 1, make([]byte, 256*64)))

	r.Refresh()
	require.Equal(t, 0, sink.synced)
}
