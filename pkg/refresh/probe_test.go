package refresh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	ms int
	ok bool
}

func (f fakeProber) Probe() (int, bool) { return f.ms, f.ok }

type fakeScheduler struct {
	registered int
	updated    int
}

func (f *fakeScheduler) Register(ms int) { f.registered = ms }
func (f *fakeScheduler) Update(ms int)   { f.updated = ms }

func TestDetectUsesValidProbe(t *testing.T) {
	sched := &fakeScheduler{}
	ms := Detect(fakeProber{ms: 16, ok: true}, sched)
	require.Equal(t, 16, ms)
	require.Equal(t, 16, sched.registered)
}

func TestDetectFallsBackWhenProbeFails(t *testing.T) {
	sched := &fakeScheduler{}
	ms := Detect(fakeProber{ok: false}, sched)
	require.Equal(t, fallbackIntervalMS, ms)
	require.Equal(t, fallbackIntervalMS, sched.registered)
}

func TestDetectClampsOutOfRangeInterval(t *testing.T) {
	sched := &fakeScheduler{}

	ms := Detect(fakeProber{ms: 0, ok: true}, sched)
	require.Equal(t, fallbackIntervalMS, ms)

	ms = Detect(fakeProber{ms: 250, ok: true}, sched)
	require.Equal(t, fallbackIntervalMS, ms)

	ms = Detect(fakeProber{ms: 99, ok: true}, sched)
	require.Equal(t, 99, ms)
}

func TestHzToIntervalMS(t *testing.T) {
	require.Equal(t, 16, hzToIntervalMS(60))
	require.Equal(t, 8, hzToIntervalMS(120))
	require.Equal(t, 0, hzToIntervalMS(0))
}
