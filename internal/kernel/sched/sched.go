// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sched is the thin stand-in for the "taken as given" preemptive
// scheduler and allocator of spec §1/§5. It is not a real scheduler — there
// is no board to preempt — but it gives every higher package in this module
// the blocking-primitive surface §5 requires: every primitive accepts a
// timeout, and expiry returns kerrors.ETIME.
package sched

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/suyog44/dnx-go/internal/kerrors"
)

// maxSemaphoreCapacity bounds the handful of semaphores in this kernel
// (exit semaphores, the per-task syscall semaphore, the inbound request
// queue's slot semaphore); none needs more than a small count, so this is
// comfortably above any real usage.
const maxSemaphoreCapacity = 1 << 20

// Semaphore is a counting semaphore with timeout, backing
// semaphore_wait/semaphore_signal and the per-task syscall semaphore and
// per-thread/process exit semaphores described in spec §4.1, §4.2, §5.
//
// golang.org/x/sync/semaphore.Weighted tracks capacity *in use*, not
// capacity *available*, so a freshly constructed Weighted has zero permits
// in use (i.e. all of it "available" to Acquire). To start with `initial`
// available permits we pre-acquire the rest of the capacity up front,
// leaving exactly `initial` acquirable — Signal (Release) then frees a
// permit and Wait (Acquire) consumes one, matching sem_post/sem_wait.
type Semaphore struct {
	sem *semaphore.Weighted
}

// NewSemaphore creates a semaphore with the given initial count.
func NewSemaphore(initial int64) *Semaphore {
	s := &Semaphore{sem: semaphore.NewWeighted(maxSemaphoreCapacity)}
	if initial < 0 {
		initial = 0
	}
	if deficit := maxSemaphoreCapacity - initial; deficit > 0 {
		_ = s.sem.Acquire(context.Background(), deficit)
	}
	return s
}

// Wait blocks until the semaphore has a permit or the timeout expires. A
// zero timeout blocks forever, per the non-zero-timeout suspension points
// listed in spec §5 (a zero timeout being the "no timeout" / infinite case
// used by tests and the wait-for-child-exit idiom).
func (s *Semaphore) Wait(timeout time.Duration) kerrors.Kind {
	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return kerrors.ETIME
	}
	return kerrors.ESUCC
}

// Signal releases one permit.
func (s *Semaphore) Signal() {
	s.sem.Release(1)
}

// TryWait attempts a non-blocking acquire, for the dispatcher's worker-slot
// check, which must never suspend the kworker loop.
func (s *Semaphore) TryWait() bool {
	return s.sem.TryAcquire(1)
}

// Mutex is a simple blocking mutex with timeout.
type Mutex struct {
	ch chan struct{}
}

// NewMutex returns an unlocked mutex.
func NewMutex() *Mutex {
	m := &Mutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

// Lock blocks until the mutex is acquired or the timeout expires.
func (m *Mutex) Lock(timeout time.Duration) kerrors.Kind {
	if timeout <= 0 {
		<-m.ch
		return kerrors.ESUCC
	}
	select {
	case <-m.ch:
		return kerrors.ESUCC
	case <-time.After(timeout):
		return kerrors.ETIME
	}
}

// Unlock releases the mutex. Unlocking an already-unlocked mutex panics,
// the way an unbalanced unlock is a programmer bug in the source.
func (m *Mutex) Unlock() {
	select {
	case m.ch <- struct{}{}:
	default:
		panic("sched: Unlock of already-unlocked Mutex")
	}
}

// RecursiveMutex is a re-entrant mutex with timeout: a holder re-enters by
// calling Lock again with the same owner id. LFS (§4.4) guards its entire
// instance with one; devfs (§4.5) uses the plain Mutex instead. No
// library in the corpus ships a timeout-capable recursive mutex — this is
// hand-rolled over sync.Mutex plus caller-supplied owner-id tracking; see
// DESIGN.md.
type RecursiveMutex struct {
	mu    sync.Mutex
	owner int64
	depth int
	cond  *sync.Cond
}

// NewRecursiveMutex returns an unlocked recursive mutex.
func NewRecursiveMutex() *RecursiveMutex {
	m := &RecursiveMutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Lock acquires the mutex, recursively if the calling goroutine already
// holds it. goroutineID is a caller-supplied identity (the owning process
// or thread id works fine; this is not real goroutine-local storage).
func (m *RecursiveMutex) Lock(goroutineID int64, timeout time.Duration) kerrors.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.depth > 0 && m.owner == goroutineID {
		m.depth++
		return kerrors.ESUCC
	}

	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for m.depth > 0 {
		if timeout > 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return kerrors.ETIME
			}
			timer := time.AfterFunc(remaining, func() {
				m.mu.Lock()
				m.cond.Broadcast()
				m.mu.Unlock()
			})
			m.cond.Wait()
			timer.Stop()
			if m.depth > 0 && time.Now().After(deadline) {
				return kerrors.ETIME
			}
		} else {
			m.cond.Wait()
		}
	}
	m.owner = goroutineID
	m.depth = 1
	return kerrors.ESUCC
}

// Unlock releases one level of recursion.
func (m *RecursiveMutex) Unlock(goroutineID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == 0 || m.owner != goroutineID {
		panic("sched: Unlock of RecursiveMutex not held by caller")
	}
	m.depth--
	if m.depth == 0 {
		m.cond.Broadcast()
	}
}

// Task is a schedulable unit of execution: a goroutine with a cancel
// function, standing in for a scheduler task handle. Threads (§4.1) and
// dispatcher worker threads (§4.2) are built on top of Task.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Spawn starts fn on a new goroutine, returning a Task handle. fn receives
// a context that is cancelled by Task.Cancel.
func Spawn(fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		fn(ctx)
	}()
	return t
}

// Cancel requests that the task's context be cancelled. It does not force
// the goroutine to stop — cooperative cancellation only, as with any
// context-based Go code.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task's function has returned.
func (t *Task) Wait() { <-t.done }
