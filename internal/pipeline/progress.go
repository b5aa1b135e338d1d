package pipeline

import (
	"sync"
	"time"
)

// Phase names a pipeline stage reported through progress callbacks.
type Phase string

const (
	PhaseStructure Phase = "structure"
	PhaseParsing   Phase = "parsing"
	PhaseImports   Phase = "imports"
	PhaseCalls     Phase = "calls"
	PhaseComplete  Phase = "complete"
)

// Progress is one observational progress event.
type Progress struct {
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message"`
	Percent   int       `json:"percent"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressFunc receives progress events. It must not block for long; the
// pipeline calls it synchronously.
type ProgressFunc func(Progress)

type progressReporter struct {
	mu  sync.Mutex
	fn  ProgressFunc
	now func() time.Time
}

func (r *progressReporter) emit(phase Phase, percent int, msg string) {
	if r == nil || r.fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fn(Progress{Phase: phase, Message: msg, Percent: percent, Timestamp: r.now()})
}

// stepCounter reports parse progress each time another tenth of the files
// has settled.
type stepCounter struct {
	mu       sync.Mutex
	total    int
	done     int
	lastStep int
}

// advance records one settled item and returns the new decile when a
// boundary was crossed.
func (c *stepCounter) advance() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done++
	if c.total == 0 {
		return 0, false
	}
	step := c.done * 10 / c.total
	if step <= c.lastStep {
		return 0, false
	}
	c.lastStep = step
	return step * 10, true
}
