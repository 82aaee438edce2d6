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

package process

import (
	"context"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/sched"
)

// Thread is a subordinate schedulable entity of a process, per spec §3.
type Thread struct {
	Tid      int
	Task     *sched.Task
	Detached bool
	ExitSem  *sched.Semaphore
	Status   int

	owner  *Process
	header *ResourceHeader
}

// ThreadCreate allocates a thread record, registers it as a THREAD
// resource of proc, and spawns fn on a scheduler task, per spec §4.1's
// process_thread_create. On return fn's result is recorded as the
// thread's exit status and its exit semaphore is signaled; a detached
// thread additionally self-releases from the table.
func (t *Table) ThreadCreate(pid int, fn func(ctx context.Context) int, detached bool) (tid int, err kerrors.Kind) {
	p := t.lookup(pid)
	if p == nil {
		return 0, kerrors.ESRCH
	}

	p.mu.Lock()
	th := &Thread{
		Tid:      len(p.threads) + 1,
		Detached: detached,
		ExitSem:  sched.NewSemaphore(0),
		owner:    p,
	}
	header := &ResourceHeader{Type: ResThread, Handle: th}
	th.header = header
	p.threads = append(p.threads, th)
	p.resources = prepend(p.resources, header)
	p.mu.Unlock()

	th.Task = sched.Spawn(func(ctx context.Context) {
		status := fn(ctx)
		th.Status = status
		th.ExitSem.Signal()
		if th.Detached {
			_ = t.ReleaseResource(pid, header, ResThread)
		}
	})

	return th.Tid, kerrors.ESUCC
}

func prepend(head *ResourceHeader, h *ResourceHeader) *ResourceHeader {
	h.next = head
	return h
}

// ThreadGetExitSem returns the exit semaphore for tid of proc, the
// canonical join interface of spec §4.1.
func (t *Table) ThreadGetExitSem(pid, tid int) (*sched.Semaphore, kerrors.Kind) {
	p := t.lookup(pid)
	if p == nil {
		return nil, kerrors.ESRCH
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, th := range p.threads {
		if th.Tid == tid {
			return th.ExitSem, kerrors.ESUCC
		}
	}
	return nil, kerrors.ESRCH
}

// ThreadExit cancels a thread's underlying task, backing the THREADEXIT and
// THREADDESTROY syscalls. The dispatcher's worker cancellation does not go
// through here; it cancels via the worker's THREAD resource destructor.
func (t *Table) ThreadExit(pid, tid int) kerrors.Kind {
	p := t.lookup(pid)
	if p == nil {
		return kerrors.ESRCH
	}
	p.mu.Lock()
	var target *Thread
	for _, th := range p.threads {
		if th.Tid == tid {
			target = th
			break
		}
	}
	p.mu.Unlock()
	if target == nil {
		return kerrors.ESRCH
	}
	if target.Task != nil {
		target.Task.Cancel()
	}
	return kerrors.ESUCC
}
