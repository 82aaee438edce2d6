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

// Package syscalls binds every syscall id of spec §6 to a dispatch.Handler
// over a concrete process.Table, vfs.Table and clock.Clock: this is the
// layer that turns the dispatcher's generic classify/dispatch machinery
// into the actual kernel mediation surface user tasks call into.
package syscalls

import (
	"fmt"
	"strings"

	"github.com/suyog44/dnx-go/cfg"
	"github.com/suyog44/dnx-go/internal/clock"
	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
	"github.com/suyog44/dnx-go/internal/kernel/dispatch"
	"github.com/suyog44/dnx-go/internal/kernel/process"
	"github.com/suyog44/dnx-go/internal/vfs"
)

// Handlers holds the kernel singletons every syscall handler closes over.
type Handlers struct {
	Procs   *process.Table
	VFS     *vfs.Table
	Clock   clock.Clock
	Catalog map[string]*process.Program
	FS      cfg.FileSystemConfig
}

// New returns a Handlers bound to the given kernel tables.
func New(procs *process.Table, vfst *vfs.Table, clk clock.Clock, catalog map[string]*process.Program, fsCfg cfg.FileSystemConfig) *Handlers {
	return &Handlers{Procs: procs, VFS: vfst, Clock: clk, Catalog: catalog, FS: fsCfg}
}

// RegisterAll binds every handler this package implements to d. Boot code
// calls this once before dispatch.Dispatcher.Start.
func (h *Handlers) RegisterAll(d *dispatch.Dispatcher) {
	// Group 0 — inline.
	d.Register(abi.GETTIME, h.getTime)
	d.Register(abi.SETTIME, h.setTime)
	d.Register(abi.DRIVERINIT, h.driverInit)
	d.Register(abi.DRIVERRELEASE, h.driverRelease)
	d.Register(abi.MALLOC, h.malloc)
	d.Register(abi.ZALLOC, h.zalloc)
	d.Register(abi.FREE, h.free)
	d.Register(abi.SYSLOGENABLE, h.syslogEnable)
	d.Register(abi.SYSLOGDISABLE, h.syslogDisable)
	d.Register(abi.KERNELPANICDETECT, h.kernelPanicDetect)
	d.Register(abi.PROCESSGETEXITSEM, h.processGetExitSem)
	d.Register(abi.PROCESSSTATSEEK, h.processStatSeek)
	d.Register(abi.PROCESSSTATPID, h.processStatPid)
	d.Register(abi.PROCESSGETPID, h.processGetPid)
	d.Register(abi.PROCESSGETPRIO, h.processGetPrio)
	d.Register(abi.GETCWD, h.getCwd)
	d.Register(abi.SETCWD, h.setCwd)
	d.Register(abi.THREADGETEXITSEM, h.threadGetExitSem)
	d.Register(abi.SEMAPHORECREATE, h.semaphoreCreate)
	d.Register(abi.SEMAPHOREDESTROY, h.semaphoreDestroy)
	d.Register(abi.MUTEXCREATE, h.mutexCreate)
	d.Register(abi.MUTEXDESTROY, h.mutexDestroy)
	d.Register(abi.QUEUECREATE, h.queueCreate)
	d.Register(abi.QUEUEDESTROY, h.queueDestroy)
	d.Register(abi.GETMNTENTRY, h.getMntEntry)
	d.Register(abi.STATFS, h.statfs)
	d.Register(abi.STAT, h.stat)
	d.Register(abi.FSTAT, h.fstat)
	d.Register(abi.IOCTL, h.ioctl)
	d.Register(abi.ABORT, h.abort)
	d.Register(abi.EXIT, h.exit)
	d.Register(abi.SYSTEM, h.system)

	// Group 1 — fs-blocking.
	d.Register(abi.MOUNT, h.mount)
	d.Register(abi.UMOUNT, h.umount)
	d.Register(abi.MKNOD, h.mknod)
	d.Register(abi.MKDIR, h.mkdir)
	d.Register(abi.MKFIFO, h.mkfifo)
	d.Register(abi.OPENDIR, h.opendir)
	d.Register(abi.CLOSEDIR, h.closedir)
	d.Register(abi.READDIR, h.readdir)
	d.Register(abi.REMOVE, h.remove)
	d.Register(abi.RENAME, h.rename)
	d.Register(abi.CHMOD, h.chmod)
	d.Register(abi.CHOWN, h.chown)
	d.Register(abi.FOPEN, h.fopen)
	d.Register(abi.FCLOSE, h.fclose)
	d.Register(abi.FWRITE, h.fwrite)
	d.Register(abi.FREAD, h.fread)
	d.Register(abi.FSEEK, h.fseek)
	d.Register(abi.FFLUSH, h.fflush)
	d.Register(abi.SYNC, h.sync)
	d.Register(abi.PROCESSCREATE, h.processCreate)
	d.Register(abi.PROCESSDESTROY, h.processDestroy)
	d.Register(abi.THREADCREATE, h.threadCreate)
	d.Register(abi.THREADDESTROY, h.threadDestroy)
	d.Register(abi.THREADEXIT, h.threadExit)

	// Group 2 — network-blocking. The network stack itself is an
	// externally-supplied collaborator (spec §1), not a subsystem this
	// kernel implements; these handlers only exercise the dispatcher's
	// group-2 classification and worker-thread path. See net.go.
	h.registerNet(d)
}

// arg type-asserts call.Args[i] as T, failing EFAULT on a missing index or
// a mismatched type — a bad argument from a user task is never a panic.
func arg[T any](call dispatch.Call, i int) (T, kerrors.Kind) {
	var zero T
	if i < 0 || i >= len(call.Args) {
		return zero, kerrors.EFAULT
	}
	v, ok := call.Args[i].(T)
	if !ok {
		return zero, kerrors.EFAULT
	}
	return v, kerrors.ESUCC
}

// resolvePath joins a relative path against the calling process's
// snapshotted cwd; an already-absolute path passes through unchanged.
func resolvePath(cwd, path string) string {
	if path != "" && path[0] == '/' {
		return path
	}
	if cwd == "" {
		cwd = "/"
	}
	if cwd != "/" {
		return cwd + "/" + path
	}
	return "/" + path
}

// resolveValidPath is resolvePath plus the cfg.FileSystemConfig.MaxPathLength/
// MaxNameLength bounds every path-taking handler enforces before reaching
// the VFS, failing EINVAL rather than letting an oversized path reach a
// back-end. Either limit set to 0 leaves that dimension unbounded.
func (h *Handlers) resolveValidPath(cwd, path string) (string, kerrors.Kind) {
	resolved := resolvePath(cwd, path)
	if h.FS.MaxPathLength > 0 && len(resolved) > h.FS.MaxPathLength {
		return "", kerrors.EINVAL
	}
	if h.FS.MaxNameLength > 0 {
		for _, seg := range strings.Split(strings.Trim(resolved, "/"), "/") {
			if len(seg) > h.FS.MaxNameLength {
				return "", kerrors.EINVAL
			}
		}
	}
	return resolved, kerrors.ESUCC
}

// releaseResource unregisters header from pid, treating a type mismatch
// (EFAULT) as fatal to the caller per process.ReleaseResource's contract:
// the offending process's stderr is told why before it is aborted, rather
// than handed an ordinary errno.
func releaseResource(h *Handlers, pid int, header *process.ResourceHeader, want process.ResourceType) kerrors.Kind {
	k := h.Procs.ReleaseResource(pid, header, want)
	if k == kerrors.EFAULT {
		fatal := &kerrors.FatalProcessError{Err: fmt.Errorf("resource handle is not a %s", want)}
		if p, err := h.Procs.Lookup(pid); err == kerrors.ESUCC {
			fmt.Fprintln(p.Stderr, fatal.Error())
		}
		_ = h.Procs.Abort(pid)
	}
	return k
}
