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
	"github.com/suyog44/dnx-go/internal/kerrors"
)

// ResourceType tags a resource header with the kind of object it guards,
// per spec §3's "Resource header" / §9's tagged-variant-enum note.
type ResourceType int

const (
	ResFile ResourceType = iota
	ResDir
	ResMutex
	ResSemaphore
	ResQueue
	ResMemory
	ResSocket
	ResThread
)

func (t ResourceType) String() string {
	switch t {
	case ResFile:
		return "FILE"
	case ResDir:
		return "DIR"
	case ResMutex:
		return "MUTEX"
	case ResSemaphore:
		return "SEMAPHORE"
	case ResQueue:
		return "QUEUE"
	case ResMemory:
		return "MEMORY"
	case ResSocket:
		return "SOCKET"
	case ResThread:
		return "THREAD"
	default:
		return "UNKNOWN"
	}
}

// ResourceHeader is the header every kernel-owned object handed to user
// code carries, per spec §3 Invariant R1: it identifies the object's type
// and owns a destructor, and is linked into exactly one process's resource
// list at a time.
type ResourceHeader struct {
	Type    ResourceType
	Handle  any
	Destroy func() error

	next *ResourceHeader
}

// RegisterResource prepends header to proc's resource list (O(1), per
// spec §4.1). It fails only if proc is unknown to this table.
func (t *Table) RegisterResource(pid int, header *ResourceHeader) kerrors.Kind {
	p := t.lookup(pid)
	if p == nil {
		return kerrors.ESRCH
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	header.next = p.resources
	p.resources = header
	return kerrors.ESUCC
}

// ReleaseResource scans proc's resource list for header, unlinks it, and
// invokes its destructor, matching spec §4.1's process_release_resource.
// A type mismatch against expected returns EFAULT; per spec §7 this is
// fatal to the caller, so the dispatcher must treat an EFAULT return from
// this function as cause to abort the client process, not as an ordinary
// error to propagate through retptr/errno.
func (t *Table) ReleaseResource(pid int, header *ResourceHeader, expected ResourceType) kerrors.Kind {
	p := t.lookup(pid)
	if p == nil {
		return kerrors.ESRCH
	}
	p.mu.Lock()
	var prev *ResourceHeader
	cur := p.resources
	for cur != nil {
		if cur == header {
			break
		}
		prev = cur
		cur = cur.next
	}
	if cur == nil {
		p.mu.Unlock()
		return kerrors.ENOENT
	}
	if cur.Type != expected {
		p.mu.Unlock()
		logf("process %d: resource type mismatch: have %s want %s", pid, cur.Type, expected)
		return kerrors.EFAULT
	}
	if prev == nil {
		p.resources = cur.next
	} else {
		prev.next = cur.next
	}
	cur.next = nil
	p.mu.Unlock()

	if cur.Destroy != nil {
		if err := cur.Destroy(); err != nil {
			// Resource-destructor failures are logged but cannot stop
			// destruction, per spec §4.1's failure semantics.
			logf("process %d: resource destructor for %s failed: %v", pid, cur.Type, err)
		}
	}
	return kerrors.ESUCC
}

// releaseAllResources releases every resource still registered to p, in
// reverse registration order (the list is a stack, so a head-to-tail walk
// already visits most-recently-registered first), per spec §4.1's
// process_destroy and Invariant R2.
func (p *Process) releaseAllResources() {
	for p.resources != nil {
		h := p.resources
		p.resources = h.next
		h.next = nil
		if h.Destroy != nil {
			if err := h.Destroy(); err != nil {
				logf("process %d: teardown destructor for %s failed: %v", p.Pid, h.Type, err)
			}
		}
	}
}
