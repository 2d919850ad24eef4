package audio

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anderstorpsfestivalen/jukebridge/pkg/hostapi"
	"github.com/anderstorpsfestivalen/jukebridge/pkg/shmregion"
	"github.com/anderstorpsfestivalen/jukebridge/pkg/transport"
)

// regionName is the advisory name passed to the shared-memory allocator,
// per spec §6.
const regionName = "juke-audio"

// Settings describes the PCM format init_out negotiates with the guest
// mixer, per spec §4.5.
type Settings struct {
	SampleRate uint32
	Channels   uint32 // 1 or 2
	Format     uint32 // FormatS16LE or FormatF32LE
}

// Region is the audio channel's region manager. Unlike the display region,
// it is allocated exactly once (spec §3.3: "audio region is created on
// first voice init and never grown").
type Region struct {
	alloc   shmregion.Allocator
	rv      *transport.Rendezvous
	rate    hostapi.RateController
	errOnce *hostapi.OnceLogger

	mapping *shmregion.Mapping
	hdr     header

	channels      uint32
	bytesPerFrame int
	lastWriteTime time.Time
}

// NewRegion constructs a Region. The renderer socket path and allocator are
// supplied by the caller.
func NewRegion(alloc shmregion.Allocator, rv *transport.Rendezvous, rate hostapi.RateController) *Region {
	return &Region{
		alloc:   alloc,
		rv:      rv,
		rate:    rate,
		errOnce: hostapi.NewOnceLogger(),
	}
}

// InitOut implements spec §4.5: first call allocates the region, writes
// header constants, and kicks the handshake.
func (r *Region) InitOut(s Settings) error {
	if r.mapping != nil {
		return nil
	}

	needed := NeededBytes(s.Channels, s.Format)
	m, err := r.alloc.Allocate(regionName, needed)
	if err != nil {
		r.errOnce.Fire("audio_alloc", func() {
			log.Error().Err(err).Int("bytes", needed).Msg("[audio] shared-memory allocation failed")
		})
		return fmt.Errorf("audio: init_out: %w", err)
	}

	r.mapping = m
	r.hdr = newHeader(m.Bytes)
	r.hdr.initConstants(s.SampleRate, s.Channels, s.Format)
	r.channels = s.Channels
	r.bytesPerFrame = BytesPerFrame(s.Channels, s.Format)
	r.lastWriteTime = time.Time{}

	r.rv.Connect()
	if r.rv.Connected() {
		r.rv.SendFD(r.mapping.FD)
	}

	return nil
}

// Write implements spec §4.5's hot path: opportunistic connect, the
// disabled/backpressure short-circuits, the wrap-aware memcpy into the
// ring, and the release-ordered write_idx publish.
func (r *Region) Write(buf []byte, now time.Time) int {
	if r.mapping == nil {
		return 0
	}

	if !r.rv.Connected() {
		r.rv.Connect()
		if r.rv.Connected() {
			r.rv.SendFD(r.mapping.FD)
		}
	}

	elapsed := r.elapsedSince(now)

	if !r.hdr.loadEnabledAcquire() {
		return r.rate.BytesForElapsed(elapsed)
	}

	readIdx := r.hdr.loadReadIdxAcquire()
	writeIdx := r.hdr.loadWriteIdx() // producer-owned, no synchronization needed to read our own value

	used := (writeIdx - readIdx) & (RingFrames - 1)
	freeFrames := RingFrames - used - 1

	requestedFrames := len(buf) / r.bytesPerFrame
	framesToWrite := requestedFrames
	if framesToWrite > int(freeFrames) {
		framesToWrite = int(freeFrames)
	}

	if framesToWrite <= 0 {
		return r.rate.BytesForElapsed(elapsed)
	}

	r.copyIntoRing(writeIdx, buf, framesToWrite)

	r.hdr.storeWriteIdxRelease(writeIdx + uint32(framesToWrite))

	return framesToWrite * r.bytesPerFrame
}

func (r *Region) elapsedSince(now time.Time) time.Duration {
	if r.lastWriteTime.IsZero() {
		r.lastWriteTime = now
		return 0
	}
	d := now.Sub(r.lastWriteTime)
	r.lastWriteTime = now
	return d
}

// copyIntoRing writes framesToWrite frames from buf starting at the
// unbounded index writeIdx, splitting across the ring's wrap boundary.
func (r *Region) copyIntoRing(writeIdx uint32, buf []byte, framesToWrite int) {
	samples := r.hdr.samples()
	bpf := r.bytesPerFrame
	startSlot := int(writeIdx & (RingFrames - 1))

	firstRun := RingFrames - startSlot
	if firstRun > framesToWrite {
		firstRun = framesToWrite
	}

	copy(samples[startSlot*bpf:(startSlot+firstRun)*bpf], buf[:firstRun*bpf])

	remaining := framesToWrite - firstRun
	if remaining > 0 {
		copy(samples[0:remaining*bpf], buf[firstRun*bpf:framesToWrite*bpf])
	}
}

// EnableOut implements spec §4.5: restarts the rate controller. The
// header's enabled field itself is renderer-owned and never written here.
func (r *Region) EnableOut(enable bool) {
	if enable {
		r.rate.Start()
	}
}

// VolumeOut implements spec §4.5: release-ordered stores of muted/volume
// fields. vol holds per-channel volume 0..255; the right channel mirrors
// the left when the format is mono.
func (r *Region) VolumeOut(mute bool, vol []uint32) {
	if r.mapping == nil {
		return
	}
	left := vol[0]
	right := left
	if r.channels > 1 && len(vol) > 1 {
		right = vol[1]
	}
	r.hdr.setVolume(mute, left, right)
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
