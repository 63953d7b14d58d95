package utils

import (
	"sort"
	"sync"
	"time"
)

// StageTimer records wall-clock durations of named compile stages.
// It is used by the compile driver to build per-pass statistics.
type StageTimer struct {
	mu       sync.Mutex
	started  map[string]time.Time
	finished map[string]time.Duration
	order    []string
}

// NewStageTimer creates an empty StageTimer.
func NewStageTimer() *StageTimer {
	return &StageTimer{
		started:  make(map[string]time.Time),
		finished: make(map[string]time.Duration),
	}
}

// Start marks the beginning of a stage.  Starting a stage twice restarts it.
func (t *StageTimer) Start(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.finished[stage]; !seen {
		if _, running := t.started[stage]; !running {
			t.order = append(t.order, stage)
		}
	}
	t.started[stage] = time.Now()
}

// Stop marks the end of a stage and returns its duration.  Stopping a stage
// that was never started returns zero.
func (t *StageTimer) Stop(stage string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	start, ok := t.started[stage]
	if !ok {
		return 0
	}
	d := time.Since(start)
	t.finished[stage] = d
	delete(t.started, stage)
	return d
}

// Time runs fn as the named stage and records its duration.
func (t *StageTimer) Time(stage string, fn func() error) error {
	t.Start(stage)
	defer t.Stop(stage)
	return fn()
}

// Duration returns the recorded duration for a stage.
func (t *StageTimer) Duration(stage string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.finished[stage]
	return d, ok
}

// Stages returns the stage names in the order they were first started.
func (t *StageTimer) Stages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Total returns the sum of all finished stage durations.
func (t *StageTimer) Total() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total time.Duration
	for _, d := range t.finished {
		total += d
	}
	return total
}

// Report returns finished stages and durations sorted by descending duration.
func (t *StageTimer) Report() []StageDuration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageDuration, 0, len(t.finished))
	for stage, d := range t.finished {
		out = append(out, StageDuration{Stage: stage, Duration: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Duration != out[j].Duration {
			return out[i].Duration > out[j].Duration
		}
		return out[i].Stage < out[j].Stage
	})
	return out
}

// StageDuration pairs a stage name with its recorded duration.
type StageDuration struct {
	Stage    string
	Duration time.Duration
}
