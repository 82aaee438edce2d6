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
	"github.com/suyog44/dnx-go/internal/kernel/klog"
	"github.com/suyog44/dnx-go/internal/kernel/process"
)

func (h *Handlers) processGetPid(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	return call.ClientPid, kerrors.ESUCC
}

func (h *Handlers) processGetPrio(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	pid, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	st, err := h.Procs.Stat(pid)
	if err != kerrors.ESUCC {
		return nil, err
	}
	return st.Priority, kerrors.ESUCC
}

func (h *Handlers) getCwd(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	return call.Cwd, kerrors.ESUCC
}

func (h *Handlers) setCwd(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	p, err := h.Procs.Lookup(call.ClientPid)
	if err != kerrors.ESUCC {
		return nil, err
	}
	p.SetCwd(resolved)
	return nil, kerrors.ESUCC
}

func (h *Handlers) processGetExitSem(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	pid, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	p, err := h.Procs.Lookup(pid)
	if err != kerrors.ESUCC {
		return nil, err
	}
	return p.ExitSem(), kerrors.ESUCC
}

func (h *Handlers) processStatSeek(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	i, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	st, err := h.Procs.StatAt(i)
	return st, err
}

func (h *Handlers) processStatPid(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	pid, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	st, err := h.Procs.Stat(pid)
	return st, err
}

func (h *Handlers) processCreate(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	cmd, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	attrs, k := arg[process.Attrs](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	if attrs.Cwd == "" {
		attrs.Cwd = call.Cwd
	}
	pid, err := h.Procs.Create(cmd, attrs, h.Catalog)
	return pid, err
}

func (h *Handlers) processDestroy(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	pid, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	status, err := h.Procs.Destroy(pid)
	return status, err
}

func (h *Handlers) abort(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	return nil, h.Procs.Abort(call.ClientPid)
}

func (h *Handlers) exit(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	status, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.Procs.Exit(call.ClientPid, status)
}

// system is the catch-all shell-out syscall of the original source; there
// is no shell in this kernel (spec's "Open Question" on SYSTEM resolves to
// unsupported rather than simulated).
func (h *Handlers) system(_ context.Context, _ *dispatch.Dispatcher, _ dispatch.Call) (any, kerrors.Kind) {
	return nil, kerrors.ENOTSUP
}

func (h *Handlers) kernelPanicDetect(_ context.Context, _ *dispatch.Dispatcher, _ dispatch.Call) (any, kerrors.Kind) {
	return klog.PanicDetected(), kerrors.ESUCC
}

func (h *Handlers) syslogEnable(_ context.Context, _ *dispatch.Dispatcher, _ dispatch.Call) (any, kerrors.Kind) {
	klog.SetEnabled(true)
	return nil, kerrors.ESUCC
}

func (h *Handlers) syslogDisable(_ context.Context, _ *dispatch.Dispatcher, _ dispatch.Call) (any, kerrors.Kind) {
	klog.SetEnabled(false)
	return nil, kerrors.ESUCC
}

func (h *Handlers) threadCreate(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	fn, k := arg[func(arg any) int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	var threadArg any
	if len(call.Args) > 1 {
		threadArg = call.Args[1]
	}
	detached, k := arg[bool](call, 2)
	if k != kerrors.ESUCC {
		return nil, k
	}
	tid, err := h.Procs.ThreadCreate(call.ClientPid, func(ctx context.Context) int {
		return fn(threadArg)
	}, detached)
	return tid, err
}

func (h *Handlers) threadGetExitSem(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	tid, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	sem, err := h.Procs.ThreadGetExitSem(call.ClientPid, tid)
	return sem, err
}

// threadDestroy cancels the thread's task; it does not walk the process's
// resource list to unlink the THREAD header (that field is private to
// process.Thread), so the header is released only when the owning process
// itself is destroyed or, for a detached thread, when the thread's own
// goroutine returns.
func (h *Handlers) threadDestroy(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	tid, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.Procs.ThreadExit(call.ClientPid, tid)
}

func (h *Handlers) threadExit(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	tid, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.Procs.ThreadExit(call.ClientPid, tid)
}
