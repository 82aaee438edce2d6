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

package syscalls

import (
	"context"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/dispatch"
	"github.com/suyog44/dnx-go/internal/kernel/process"
	"github.com/suyog44/dnx-go/internal/vfs/devfs"
)

func (h *Handlers) allocate(call dispatch.Call) (any, kerrors.Kind) {
	size, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	if size < 0 {
		return nil, kerrors.EINVAL
	}
	buf := make([]byte, size)
	header := &process.ResourceHeader{Type: process.ResMemory, Handle: buf}
	if err := h.Procs.RegisterResource(call.ClientPid, header); err != kerrors.ESUCC {
		return nil, err
	}
	return header, kerrors.ESUCC
}

// malloc and zalloc are identical here: make([]byte, n) already zeroes,
// so there is no uninitialized-memory distinction to simulate.
func (h *Handlers) malloc(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	return h.allocate(call)
}

func (h *Handlers) zalloc(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	return h.allocate(call)
}

func (h *Handlers) free(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	header, k := arg[*process.ResourceHeader](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, releaseResource(h, call.ClientPid, header, process.ResMemory)
}

// driverInit/driverRelease validate that the caller handed over something
// implementing devfs.Driver; the hardware side of "init" has nothing to do
// in this kernel, since the driver is a caller-supplied vtable rather than
// something this kernel discovers or owns.
func (h *Handlers) driverInit(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	if _, k := arg[devfs.Driver](call, 0); k != kerrors.ESUCC {
		return nil, k
	}
	return nil, kerrors.ESUCC
}

func (h *Handlers) driverRelease(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	if _, k := arg[devfs.Driver](call, 0); k != kerrors.ESUCC {
		return nil, k
	}
	return nil, kerrors.ESUCC
}
