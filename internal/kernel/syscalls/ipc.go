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

// ipc.go registers only the create/destroy side of semaphores, mutexes and
// queues as syscalls: once created, a handle's wait/signal/send/receive
// operations are scheduler primitives a program calls directly (sched
// already accepts a timeout on every one, per spec §5), not syscalls that
// need kworker marshaling.
package syscalls

import (
	"context"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/dispatch"
	"github.com/suyog44/dnx-go/internal/kernel/process"
	"github.com/suyog44/dnx-go/internal/kernel/sched"
)

func (h *Handlers) semaphoreCreate(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	initial, k := arg[int64](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	sem := sched.NewSemaphore(initial)
	header := &process.ResourceHeader{Type: process.ResSemaphore, Handle: sem}
	if err := h.Procs.RegisterResource(call.ClientPid, header); err != kerrors.ESUCC {
		return nil, err
	}
	return header, kerrors.ESUCC
}

func (h *Handlers) semaphoreDestroy(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	header, k := arg[*process.ResourceHeader](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, releaseResource(h, call.ClientPid, header, process.ResSemaphore)
}

func (h *Handlers) mutexCreate(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	mu := sched.NewMutex()
	header := &process.ResourceHeader{Type: process.ResMutex, Handle: mu}
	if err := h.Procs.RegisterResource(call.ClientPid, header); err != kerrors.ESUCC {
		return nil, err
	}
	return header, kerrors.ESUCC
}

func (h *Handlers) mutexDestroy(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	header, k := arg[*process.ResourceHeader](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, releaseResource(h, call.ClientPid, header, process.ResMutex)
}

func (h *Handlers) queueCreate(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	capacity, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	q := sched.NewBoundedQueue[any](capacity)
	header := &process.ResourceHeader{Type: process.ResQueue, Handle: q}
	if err := h.Procs.RegisterResource(call.ClientPid, header); err != kerrors.ESUCC {
		return nil, err
	}
	return header, kerrors.ESUCC
}

func (h *Handlers) queueDestroy(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	header, k := arg[*process.ResourceHeader](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, releaseResource(h, call.ClientPid, header, process.ResQueue)
}
