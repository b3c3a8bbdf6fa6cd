// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package threading

import "sync"

// Task is a deferred zero-argument unit of computation. Inputs are captured
// by the closure at enqueue time; the queue owns the task until a worker
// executes it.
type Task func()

// TaskQueue is an unbounded thread-safe FIFO of pending tasks.
//
// Finish flips a one-way flag that releases blocked WaitPop callers. The
// queue itself does not reject pushes after Finish; submitting work to a
// finished queue is a usage error at the pool level, but TryPop still drains
// whatever remains.
type TaskQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	tasks    []Task
	finished bool
}

// NewTaskQueue returns an empty queue.
func NewTaskQueue() *TaskQueue {
	q := &TaskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a task to the tail and wakes one waiter. Never blocks.
func (q *TaskQueue) Push(t Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	q.cond.Signal()
}

// TryPop removes and returns the head task without blocking.
// ok is false when the queue is empty.
func (q *TaskQueue) TryPop() (t Task, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	t = q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t, true
}

// WaitPop blocks until a task is available or Finish has been called.
// After Finish, remaining tasks are still handed out; once the queue is
// drained, WaitPop returns ok=false.
func (q *TaskQueue) WaitPop() (t Task, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 && !q.finished {
		q.cond.Wait()
	}
	if len(q.tasks) == 0 {
		return nil, false
	}
	t = q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t, true
}

// Finish sets the finished flag and wakes all waiters. Idempotent.
func (q *TaskQueue) Finish() {
	q.mu.Lock()
	q.finished = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len returns the number of pending tasks.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
