// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package threading

import (
	"log"
	"sync"
	"sync/atomic"
)

// ProgressTracker counts completed work units and logs a line roughly every
// 10% of the total. It is purely observational: nothing reads it to gate
// control flow. The counter is lock-free; the mutex serializes only the
// log output.
type ProgressTracker struct {
	total     int
	completed atomic.Int64

	mu   sync.Mutex
	logf func(format string, args ...any)
}

// NewProgressTracker tracks completion out of total units, logging through
// the standard logger. Use SetLogf to redirect output.
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total, logf: log.Printf}
}

// SetLogf replaces the diagnostic sink. Must be called before the tracker
// is shared with workers.
func (p *ProgressTracker) SetLogf(logf func(format string, args ...any)) {
	p.logf = logf
}

// MarkCompleted records one finished unit, emitting a progress line when the
// count crosses a 10% boundary.
func (p *ProgressTracker) MarkCompleted() {
	completed := p.completed.Add(1)
	step := int64(p.total/10 + 1)
	if completed%step == 0 {
		p.mu.Lock()
		p.logf("bitnet: progress %d/%d tiles (%.1f%%)",
			completed, p.total, 100*float64(completed)/float64(p.total))
		p.mu.Unlock()
	}
}

// Completed returns the number of units marked so far.
func (p *ProgressTracker) Completed() int {
	return int(p.completed.Load())
}

// IsComplete reports whether every unit has been marked.
func (p *ProgressTracker) IsComplete() bool {
	return p.completed.Load() >= int64(p.total)
}
