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
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/sched"
)

// Table is the global process table of spec §4.1/§5: "mutated only under a
// global kernel critical section." One Table is a kernel instance; the
// dispatcher and the PROCESSCREATE/PROCESSDESTROY family of syscalls are
// built directly on top of it.
type Table struct {
	mu      sync.Mutex
	byPid   map[int]*Process
	nextPid int
}

// NewTable returns an empty process table.
func NewTable() *Table {
	return &Table{byPid: make(map[int]*Process)}
}

func (t *Table) lookup(pid int) *Process {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byPid[pid]
}

// Create parses cmd into argv, resolves argv[0] against catalog, and
// starts the process's main thread, per spec §4.1's process_create.
func (t *Table) Create(cmd string, attrs Attrs, catalog map[string]*Program) (pid int, err kerrors.Kind) {
	argv := splitCmd(cmd)
	if len(argv) == 0 {
		return 0, kerrors.EINVAL
	}
	prog, ok := catalog[argv[0]]
	if !ok {
		return 0, kerrors.ENOENT
	}

	p := &Process{
		Generation: uuid.New(),
		Program:    prog,
		Argv:       append([]string(nil), argv...),
		Global:     make([]byte, prog.GlobalSize),
		cwd:        attrs.Cwd,
		hasParent:  attrs.HasParent,
		exitSem:    sched.NewSemaphore(0),
		priority:   attrs.Priority,
		Stdin:      streamOrNull(attrs.Stdin),
		Stdout:     streamOrNull(attrs.Stdout),
		Stderr:     streamOrNull(attrs.Stderr),
		state:      StateNew,
	}
	if p.cwd == "" {
		p.cwd = "/"
	}

	t.mu.Lock()
	t.nextPid++
	p.Pid = t.nextPid
	t.byPid[p.Pid] = p
	t.mu.Unlock()

	p.mu.Lock()
	p.state = StateRunning
	p.mu.Unlock()

	sched.Spawn(func(ctx context.Context) {
		status := prog.Main(&Context{Proc: p}, p.Argv)
		t.finish(p.Pid, status)
	})

	return p.Pid, kerrors.ESUCC
}

// finish runs the RUNNING→ZOMBIE (or →REAPED, if has_parent is false)
// transition when a process's main thread returns, per spec §4.1's state
// machine. It releases every registered resource (Invariant R2) before
// the transition, in reverse-registration order.
func (t *Table) finish(pid int, status int) {
	p := t.lookup(pid)
	if p == nil {
		return
	}

	p.mu.Lock()
	p.releaseAllResources()
	p.exitStatus = status
	if p.hasParent {
		p.state = StateZombie
	} else {
		p.state = StateReaped
	}
	hasParent := p.hasParent
	p.mu.Unlock()

	p.exitSem.Signal()

	if !hasParent {
		t.mu.Lock()
		delete(t.byPid, pid)
		t.mu.Unlock()
	}
}

// Abort is process_abort: equivalent to exiting the calling process with
// status -1, per spec §4.1.
func (t *Table) Abort(pid int) kerrors.Kind {
	p := t.lookup(pid)
	if p == nil {
		return kerrors.ESRCH
	}
	t.finish(pid, -1)
	return kerrors.ESUCC
}

// Exit is the exit syscall: finish pid early with the given status, the
// way a program's main would on a normal return, but triggered explicitly.
func (t *Table) Exit(pid int, status int) kerrors.Kind {
	p := t.lookup(pid)
	if p == nil {
		return kerrors.ESRCH
	}
	t.finish(pid, status)
	return kerrors.ESUCC
}

// Destroy is process_destroy/PROCESSDESTROY: it collects a zombie's exit
// status and frees its slot, or — used by the dispatcher's OOM-reaping
// path (spec §4.2) and PROCESSDESTROY on a still-running victim — force
// finishes a running process first. Either way the slot is gone (REAPED)
// when Destroy returns successfully.
func (t *Table) Destroy(pid int) (status int, err kerrors.Kind) {
	p := t.lookup(pid)
	if p == nil {
		return 0, kerrors.ESRCH
	}

	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	if state == StateRunning || state == StateNew {
		t.finish(pid, -1)
	}

	p.mu.Lock()
	status = p.exitStatus
	p.mu.Unlock()

	t.mu.Lock()
	delete(t.byPid, pid)
	t.mu.Unlock()

	return status, kerrors.ESUCC
}

// ProcStat is the procfs-lite introspection record returned by StatAt and
// Stat, grounded on original_source's stat-by-seek/stat-by-pid pair
// (PROCESSSTATSEEK/PROCESSSTATPID, spec §6).
type ProcStat struct {
	Pid      int
	Name     string
	State    State
	Priority int
	Threads  int
}

func (p *Process) stat() ProcStat {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := ""
	if p.Program != nil {
		name = p.Program.Name
	}
	return ProcStat{
		Pid:      p.Pid,
		Name:     name,
		State:    p.state,
		Priority: p.priority,
		Threads:  len(p.threads),
	}
}

// Stat looks up a process by pid, backing PROCESSSTATPID.
func (t *Table) Stat(pid int) (ProcStat, kerrors.Kind) {
	p := t.lookup(pid)
	if p == nil {
		return ProcStat{}, kerrors.ESRCH
	}
	return p.stat(), kerrors.ESUCC
}

// StatAt returns the i-th process in pid order, backing PROCESSSTATSEEK's
// sequential-scan idiom.
func (t *Table) StatAt(i int) (ProcStat, kerrors.Kind) {
	t.mu.Lock()
	pids := make([]int, 0, len(t.byPid))
	for pid := range t.byPid {
		pids = append(pids, pid)
	}
	t.mu.Unlock()

	sort.Ints(pids)
	if i < 0 || i >= len(pids) {
		return ProcStat{}, kerrors.ESRCH
	}
	return t.Stat(pids[i])
}

// Len returns the number of live process-table entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byPid)
}

// Lookup exposes the process record itself, for collaborators (the
// dispatcher, the syscall handlers) that need more than the stat summary.
func (t *Table) Lookup(pid int) (*Process, kerrors.Kind) {
	p := t.lookup(pid)
	if p == nil {
		return nil, kerrors.ESRCH
	}
	return p, kerrors.ESUCC
}
