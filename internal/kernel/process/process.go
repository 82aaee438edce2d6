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

// Package process is the process/thread/resource table of spec §4.1: the
// largest single component of the kernel. It owns every process record,
// the resource headers registered against each one, and the threads
// spawned on their behalf.
package process

import (
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/klog"
	"github.com/suyog44/dnx-go/internal/kernel/sched"
)

// State is a process's position in the NEW → RUNNING → ZOMBIE → REAPED
// lifecycle of spec §4.1.
type State int32

const (
	StateNew State = iota
	StateRunning
	StateZombie
	StateReaped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateRunning:
		return "RUNNING"
	case StateZombie:
		return "ZOMBIE"
	case StateReaped:
		return "REAPED"
	default:
		return "UNKNOWN"
	}
}

// Stream is the minimal stdin/stdout/stderr surface a process is attached
// to; programs in the catalog read/write through it.
type Stream interface {
	io.Reader
	io.Writer
}

// nullStream discards writes and reads nothing, standing in for an
// unattached stdio stream.
type nullStream struct{}

func (nullStream) Read([]byte) (int, error)    { return 0, io.EOF }
func (nullStream) Write(p []byte) (int, error) { return len(p), nil }

// Program is a catalog entry: a statically linked program image, per spec
// §1 ("launched from a catalog compiled into the image").
type Program struct {
	Name       string
	GlobalSize int
	Main       func(ctx *Context, argv []string) int
}

// Context is what a cataloged program's main function runs with.
type Context struct {
	Proc *Process
}

// Attrs configure a new process, mirroring the `attrs` parameter of
// process_create in spec §4.1.
type Attrs struct {
	HasParent             bool
	Priority              int
	Stdin, Stdout, Stderr Stream
	Cwd                   string
}

// Process is a running or recently-finished program instance.
type Process struct {
	mu sync.Mutex

	Pid        int
	Generation uuid.UUID
	Program    *Program
	Argv       []string
	Global     []byte

	cwd string

	hasParent  bool
	exitSem    *sched.Semaphore
	exitStatus int
	priority   int

	Stdin, Stdout, Stderr Stream

	threads   []*Thread
	resources *ResourceHeader

	state State
}

// Cwd returns the process's current working directory.
func (p *Process) Cwd() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cwd
}

// SetCwd updates the process's current working directory.
func (p *Process) SetCwd(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cwd = path
}

// State returns the process's current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Priority returns the process's scheduling priority.
func (p *Process) Priority() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.priority
}

// ExitSem returns the process's exit semaphore, signaled once when the
// process finishes (spec §4.1, "signals the exit semaphore").
func (p *Process) ExitSem() *sched.Semaphore {
	return p.exitSem
}

// splitCmd parses a command line into argv the way process_create does:
// whitespace-separated tokens, argv[0] naming a catalog program.
func splitCmd(cmd string) []string {
	return strings.Fields(cmd)
}

func streamOrNull(s Stream) Stream {
	if s == nil {
		return nullStream{}
	}
	return s
}

// logf is a small indirection so tests don't need a live klog sink.
func logf(format string, args ...any) {
	klog.Debug(format, args...)
}
