//go:build !linux && !(darwin && cgo)

package refresh

// OtherProber is the stub used on hosts with no supported display-mode
// query facility; Detect falls back to the default interval, matching the
// teacher's own !cgo stubs (api/pkg/desktop/gst_pipeline_nocgo.go).
type OtherProber struct{}

func NewProber() Prober { return OtherProber{} }

func (OtherProber) Probe() (int, bool) { return 0, false }
