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

// Package lfs is the in-RAM file system of spec §4.4: a single root
// directory node, linear-by-name child lookup, and the write/read
// algorithms transcribed from original_source's lfs.c. It is a vfs.Backend.
package lfs

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
	"github.com/suyog44/dnx-go/internal/kernel/sched"
)

// nodeType distinguishes the four LFS node variants of spec §3.
type nodeType int

const (
	typeDir nodeType = iota
	typeFile
	typeDevice
	typeFifo
)

// fifoCapacity is the build-time constant capacity of a FIFO's byte queue,
// per spec §4.4 ("capacity is a build-time constant").
const fifoCapacity = 4096

// node is an LFS node. Children own their nodes exclusively; a child's
// Parent pointer is a non-owning back-reference (spec §9's cyclic-structure
// guidance).
type node struct {
	Name string
	Mode uint32
	Uid  uint32
	Gid  uint32
	Mtime int64

	Type nodeType

	Parent   *node
	Children []*node // typeDir only, insertion order (Invariant L1: unique names among nodes not marked remove-at-close)

	Data []byte // typeFile only

	Driver any // typeDevice only: caller-provided driver vtable

	Pipe *pipe // typeFifo only

	removeAtClose bool
	openCount     int
}

// pipe is the bounded byte queue backing a FIFO node.
type pipe struct {
	buf    *sched.BoundedQueue[byte]
	closed int32
}

func newPipe() *pipe {
	return &pipe{buf: sched.NewBoundedQueue[byte](fifoCapacity)}
}

func (p *pipe) depth() int { return p.buf.Len() }

// openFile is an open-file record (spec §3): binds a node to a caller via
// a cursor, plus the remove-at-close bookkeeping of Invariant L3.
type openFile struct {
	n      *node
	offset int64
	dir    bool
	seek   int // directory traversal cursor, 1-based per spec §4.4
}

// Instance is one mounted LFS back-end.
type Instance struct {
	root *node
	mu   *sched.RecursiveMutex
	seq  int64 // owner-id source for mu; every lock() takes a fresh id, so calls never re-enter one another's hold

	openFiles int64

	// capacityBytes bounds the total size of every typeFile node's Data
	// across the instance (spec §4.4's back-end capacity accounting). Zero
	// means unbounded.
	capacityBytes int64
	usedBytes     int64
}

// New creates an empty LFS instance with just a root directory, rejecting
// file growth past capacityBytes total bytes held with ENOSPC. A
// capacityBytes of 0 leaves the instance unbounded.
func New(capacityBytes int64) *Instance {
	return &Instance{
		root:          &node{Name: "/", Type: typeDir, Mode: 0755},
		mu:            sched.NewRecursiveMutex(),
		capacityBytes: capacityBytes,
	}
}

func (fsys *Instance) callID() int64 {
	return atomic.AddInt64(&fsys.seq, 1)
}

func (fsys *Instance) lock() int64 {
	id := fsys.callID()
	fsys.mu.Lock(id, 0)
	return id
}

func (fsys *Instance) unlock(id int64) {
	fsys.mu.Unlock(id)
}

func (fsys *Instance) Name() string   { return "lfs" }
func (fsys *Instance) Release() error { return nil }

func (fsys *Instance) OpenFileCount() int {
	return int(atomic.LoadInt64(&fsys.openFiles))
}

// reserveLocked charges growth additional bytes against capacityBytes,
// failing ENOSPC rather than reserving anything if that would exceed it.
// Caller must hold fsys.mu.
func (fsys *Instance) reserveLocked(growth int64) kerrors.Kind {
	if growth <= 0 {
		return kerrors.ESUCC
	}
	if fsys.capacityBytes > 0 && fsys.usedBytes+growth > fsys.capacityBytes {
		return kerrors.ENOSPC
	}
	fsys.usedBytes += growth
	return kerrors.ESUCC
}

// releaseFileBytesLocked gives back n's currently held bytes, for a
// truncate or unlink. Caller must hold fsys.mu.
func (fsys *Instance) releaseFileBytesLocked(n *node) {
	if n.Type == typeFile {
		fsys.usedBytes -= int64(len(n.Data))
	}
}

// splitPath breaks an absolute path into its non-empty segments. Trailing
// slash is stripped here; callers that care about directory intent check
// the original string first (spec §4.3: "back-ends may choose to
// interpret . and .. at the core level [...] but the LFS does not").
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (n *node) findChild(name string) *node {
	for _, c := range n.Children {
		if c.Name == name && !c.removeAtClose {
			return c
		}
	}
	return nil
}

// walk resolves segs under dir, returning ENOTDIR if an intermediate
// segment is not a directory and ENOENT if a segment is missing.
func walk(dir *node, segs []string) (*node, kerrors.Kind) {
	cur := dir
	for _, s := range segs {
		if cur.Type != typeDir {
			return nil, kerrors.ENOTDIR
		}
		child := cur.findChild(s)
		if child == nil {
			return nil, kerrors.ENOENT
		}
		cur = child
	}
	return cur, kerrors.ESUCC
}

// resolveParentAndName splits path into the parent directory node and the
// final path segment, for operations that create or remove a name.
func (fsys *Instance) resolveParentAndName(path string) (parent *node, name string, err kerrors.Kind) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, "", kerrors.EINVAL
	}
	parentSegs := segs[:len(segs)-1]
	parent, err = walk(fsys.root, parentSegs)
	if err != kerrors.ESUCC {
		return nil, "", err
	}
	if parent.Type != typeDir {
		return nil, "", kerrors.ENOTDIR
	}
	return parent, segs[len(segs)-1], kerrors.ESUCC
}

func (fsys *Instance) resolve(path string) (*node, kerrors.Kind) {
	segs := splitPath(path)
	return walk(fsys.root, segs)
}

func nowUnix() int64 { return time.Now().Unix() }

func statOf(n *node) abi.Stat {
	st := abi.Stat{Mode: n.Mode, Uid: n.Uid, Gid: n.Gid, Mtime: n.Mtime}
	switch n.Type {
	case typeDir:
		st.Type = abi.NodeDirectory
		st.Size = uint64(len(n.Children))
	case typeFile:
		st.Type = abi.NodeRegular
		st.Size = uint64(len(n.Data))
	case typeDevice:
		st.Type = abi.NodeDevice
		// Size is asked of the driver at call time when it reports one.
		if d, ok := n.Driver.(interface{ Size() uint64 }); ok {
			st.Size = d.Size()
		}
	case typeFifo:
		st.Type = abi.NodeFifo
		st.Size = uint64(n.Pipe.depth())
	}
	return st
}
