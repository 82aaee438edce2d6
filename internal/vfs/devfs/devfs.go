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

// Package devfs is the device-node file system of spec §4.5: a chain of
// fixed-size node-slot buckets (never freed, only appended to — grounded
// on original_source/src/system/fs/devfs/devfs.c), delegating device-node
// operations to a driver vtable and pipe-node operations to a blocking
// byte queue. It is a vfs.Backend.
package devfs

import (
	"sync/atomic"
	"time"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
	"github.com/suyog44/dnx-go/internal/kernel/sched"
)

// bucketSlots is the fixed size of one node-slot bucket; grounded on
// driver_registration.c's fixed-capacity device table.
const bucketSlots = 16

// pipeCapacity is the build-time byte capacity of a pipe node's queue.
const pipeCapacity = 4096

// Driver is the capability record mknod binds to a new device node, per
// spec §3/§4.5 — grounded on original_source's driver_registration.c and
// uart.c entry-point shape (init/release/open/close/read/write/ioctl).
type Driver interface {
	Open(flags abi.OpenFlag, mode uint32) (any, kerrors.Kind)
	Close(h any) kerrors.Kind
	Read(h any, buf []byte) (int, kerrors.Kind)
	Write(h any, buf []byte) (int, kerrors.Kind)
	Ioctl(h any, request uint32, arg []byte) (int, kerrors.Kind)
	Flush(h any) kerrors.Kind
	// Size is the driver's self-reported size, queried live at stat time
	// (spec §4.5: "stat.st_size for devices is the driver's self-reported
	// size").
	Size() uint64
}

type nodeKind int

const (
	kindDriver nodeKind = iota
	kindPipe
)

// node is a devfs entry: spec §3's "variant of driver-entry or
// pipe-queue". Path is relative to the mount point.
type node struct {
	Path string
	Mode uint32
	Uid  uint32
	Gid  uint32

	Kind   nodeKind
	Driver Driver
	Pipe   *pipe
}

type bucket struct {
	slots [bucketSlots]*node
	next  *bucket
}

// Instance is one mounted devfs back-end.
type Instance struct {
	mu        *sched.Mutex
	head      *bucket
	openFiles int64
	destroyed bool

	// maxNodes bounds the number of device/pipe nodes this instance will
	// hold at once; Mknod/Mkfifo fail EMFILE once it is reached. Zero
	// means unbounded.
	maxNodes int
	nodes    int
}

// New creates an empty devfs instance with a single bucket, rejecting a
// new device or pipe node with EMFILE once maxNodes nodes are held. A
// maxNodes of 0 leaves the instance unbounded.
func New(maxNodes int) *Instance {
	return &Instance{mu: sched.NewMutex(), head: &bucket{}, maxNodes: maxNodes}
}

func (fsys *Instance) Name() string { return "devfs" }

// Release runs the destruction critical section of spec §4.5, excluding
// concurrent opens by holding the instance mutex for the whole call.
func (fsys *Instance) Release() error {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()
	fsys.destroyed = true
	return nil
}

func (fsys *Instance) OpenFileCount() int {
	return int(atomic.LoadInt64(&fsys.openFiles))
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// findLocked returns the node at path, or nil. Caller must hold fsys.mu.
func (fsys *Instance) findLocked(path string) *node {
	for b := fsys.head; b != nil; b = b.next {
		for _, n := range b.slots {
			if n != nil && n.Path == path {
				return n
			}
		}
	}
	return nil
}

// atCapacityLocked reports whether maxNodes nodes are already held, the
// devfs-bucket-size ceiling of spec §4.5's device-table accounting. Caller
// must hold fsys.mu.
func (fsys *Instance) atCapacityLocked() bool {
	return fsys.maxNodes > 0 && fsys.nodes >= fsys.maxNodes
}

// insertLocked stores n in the first free slot, appending a new bucket if
// every existing bucket is full (spec §4.5: buckets are never freed).
// Caller must hold fsys.mu.
func (fsys *Instance) insertLocked(n *node) {
	fsys.nodes++
	for b := fsys.head; ; b = b.next {
		for i := range b.slots {
			if b.slots[i] == nil {
				b.slots[i] = n
				return
			}
		}
		if b.next == nil {
			b.next = &bucket{}
		}
	}
}

// removeLocked clears the slot holding n; the slot itself remains part of
// its bucket (no contraction). Caller must hold fsys.mu.
func (fsys *Instance) removeLocked(n *node) {
	for b := fsys.head; b != nil; b = b.next {
		for i, c := range b.slots {
			if c == n {
				b.slots[i] = nil
				fsys.nodes--
				return
			}
		}
	}
}

// pipe is the blocking byte queue backing a FIFO node, with a closed flag
// so pending readers/writers unblock with a partial count on handle
// closure (spec §4.5).
type pipe struct {
	q      *sched.BoundedQueue[byte]
	closed int32
}

func newPipe() *pipe {
	return &pipe{q: sched.NewBoundedQueue[byte](pipeCapacity)}
}

func (p *pipe) depth() int { return p.q.Len() }

func (p *pipe) close() { atomic.StoreInt32(&p.closed, 1) }

func (p *pipe) isClosed() bool { return atomic.LoadInt32(&p.closed) == 1 }

const pollInterval = 5 * time.Millisecond

// read blocks until at least one byte is available, filling as much of
// buf as is immediately available thereafter, or until the pipe is closed
// (returning the partial count transferred so far).
func (p *pipe) read(buf []byte) int {
	n := 0
	for n < len(buf) {
		b, k := p.q.Receive(pollInterval)
		if k != kerrors.ESUCC {
			if n > 0 || p.isClosed() {
				return n
			}
			continue
		}
		buf[n] = b
		n++
		if p.q.Len() == 0 {
			return n
		}
	}
	return n
}

// write blocks until space is available for at least one byte, or until
// the pipe is closed.
func (p *pipe) write(buf []byte) int {
	n := 0
	for n < len(buf) {
		if k := p.q.Send(buf[n], pollInterval); k != kerrors.ESUCC {
			if n > 0 || p.isClosed() {
				return n
			}
			continue
		}
		n++
	}
	return n
}

func statOf(n *node) abi.Stat {
	st := abi.Stat{Mode: n.Mode, Uid: n.Uid, Gid: n.Gid}
	switch n.Kind {
	case kindDriver:
		st.Type = abi.NodeDevice
		if n.Driver != nil {
			st.Size = n.Driver.Size()
		}
	case kindPipe:
		st.Type = abi.NodeFifo
		st.Size = uint64(n.Pipe.depth())
	}
	return st
}
