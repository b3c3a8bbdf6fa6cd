// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

// Package threading provides the work-distribution layer for the BitNet LUT
// kernels: a fixed-size worker pool draining a FIFO task queue, a lock-free
// tile distributor for work sharing between running tasks, and an
// observability-only progress tracker.
//
// A Pool is an explicitly owned object. Create one, share it with the
// dispatch functions, and Close it when done:
//
//	pool := threading.New(bitnet.OptimalWorkerCount())
//	defer pool.Close()
//
//	lut.QGemmLUT(pool, m, k, a, qlut, scales, lutScales, c)
package threading

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Executor is the subset of Pool used by dispatch code. Accepting the
// interface keeps kernels testable with instrumented pools.
type Executor interface {
	// Submit enqueues a task for asynchronous execution.
	Submit(fn func())
	// Wait blocks until every submitted task has finished.
	Wait()
	// ParallelFor executes fn over [0, n) in contiguous chunks and blocks
	// until all chunks complete.
	ParallelFor(n int, fn func(start, end int))
	// NumWorkers reports the fixed worker count.
	NumWorkers() int
}

// Pool is a fixed-size set of worker goroutines draining a TaskQueue.
// Workers are spawned once at construction; the pool is not reusable after
// Close. Each worker is a run-to-completion executor: tasks never block on
// other tasks, and there is no cancellation or timeout.
type Pool struct {
	queue      *TaskQueue
	numWorkers int
	pinned     bool

	workers   sync.WaitGroup // joins worker goroutines on Close
	closeOnce sync.Once
	stopped   atomic.Bool

	// pending counts tasks that are queued or executing. Wait blocks on
	// idle until pending drops to zero (a countdown barrier, not a
	// busy-poll).
	mu      sync.Mutex
	idle    *sync.Cond
	pending int

	active    atomic.Int32 // tasks currently executing, observational
	submitted atomic.Int64 // total Submit calls, observational
}

// New creates a pool with numWorkers workers. If numWorkers <= 0, the
// worker count defaults to runtime.NumCPU(); callers usually pass
// bitnet.OptimalWorkerCount() to apply the small-core cap. Workers start
// immediately.
func New(numWorkers int) *Pool {
	return newPool(numWorkers, false)
}

// NewPinned is New with best-effort core pinning: worker i locks its
// OS thread and requests affinity to logical core i mod NumCPU. On
// platforms without an affinity facility, or when the request fails,
// the worker runs unpinned; failure is never reported.
func NewPinned(numWorkers int) *Pool {
	return newPool(numWorkers, true)
}

func newPool(numWorkers int, pinned bool) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	p := &Pool{
		queue:      NewTaskQueue(),
		numWorkers: numWorkers,
		pinned:     pinned,
	}
	p.idle = sync.NewCond(&p.mu)
	p.workers.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.workers.Done()
	if p.pinned {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		pinToCore(id % runtime.NumCPU())
	}
	for {
		task, ok := p.queue.WaitPop()
		if !ok {
			return
		}
		task()
	}
}

// NumWorkers returns the fixed worker count.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// ActiveWorkers returns the number of tasks executing right now.
// Observational only.
func (p *Pool) ActiveWorkers() int {
	return int(p.active.Load())
}

// Submitted returns the total number of tasks ever submitted.
// Observational only.
func (p *Pool) Submitted() int64 {
	return p.submitted.Load()
}

// Submit enqueues fn for asynchronous execution. Execution order is not
// guaranteed to match submission order once multiple workers drain
// concurrently. After Close, fn runs synchronously on the caller.
func (p *Pool) Submit(fn func()) {
	p.submitted.Add(1)
	if p.stopped.Load() {
		fn()
		return
	}
	p.mu.Lock()
	p.pending++
	p.mu.Unlock()
	p.queue.Push(func() {
		defer p.taskDone()
		if p.stopped.Load() {
			// Pool is shutting down: queued work is dropped unexecuted.
			return
		}
		p.active.Add(1)
		defer p.active.Add(-1)
		fn()
	})
}

func (p *Pool) taskDone() {
	p.mu.Lock()
	p.pending--
	if p.pending == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

// Wait blocks until every submitted task has completed: no task is executing
// and none remains in the queue. This is a full barrier over the pool, so a
// caller must not submit further work concurrently with a Wait it expects to
// return.
func (p *Pool) Wait() {
	p.mu.Lock()
	for p.pending > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

// ParallelFor executes fn over [0, n) in contiguous chunks, one per worker,
// and blocks until all chunks complete. Chunks are ceil(n/workers) wide, so
// only trailing workers can be left without work. For n too small to split,
// or after Close, fn runs once on the caller.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if p.stopped.Load() {
		fn(0, n)
		return
	}

	workers := min(p.numWorkers, n)
	if workers == 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunk
		end := min(start+chunk, n)
		if start >= end {
			continue
		}
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			fn(start, end)
		})
	}
	wg.Wait()
}

// Close shuts the pool down: no new tasks are accepted asynchronously,
// tasks still queued are dropped unexecuted, and all workers are joined
// before Close returns. Calling Close multiple times is safe. A closed pool
// is never restarted; construct a new one instead.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.stopped.Store(true)
		p.queue.Finish()
		p.workers.Wait()
	})
}
