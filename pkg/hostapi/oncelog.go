package hostapi

import "sync"

// OnceLogger gates a transient-error class to a single log line, matching the
// spec's "report at most once per class of transient error" requirement. A
// class stays fired until Reset(class) is called; no caller in this module
// calls Reset. It follows the sync.Once-guarded lazy-init idiom, but keeps
// one flag per class in a mutex-guarded map.
type OnceLogger struct {
	mu    sync.Mutex
	fired map[string]bool
}

// NewOnceLogger returns a ready-to-use OnceLogger.
func NewOnceLogger() *OnceLogger {
	return &OnceLogger{fired: make(map[string]bool)}
}

// Fire runs log() the first time it is called for class, and is a no-op on
// every subsequent call until Reset(class) is invoked.
func (o *OnceLogger) Fire(class string, log func()) {
	o.mu.Lock()
	already := o.fired[class]
	o.fired[class] = true
	o.mu.Unlock()

	if !already {
		log()
	}
}

// Reset clears the fired state for class so the next Fire logs again.
func (o *OnceLogger) Reset(class string) {
	o.mu.Lock()
	delete(o.fired, class)
	o.mu.Unlock()
}
