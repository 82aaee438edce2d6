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

package devfs

import (
	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
)

// handle is the open-file record devfs hands back: the node plus whatever
// the driver (or nothing, for a pipe) returns from its own Open.
type handle struct {
	n            *node
	driverHandle any
}

func (fsys *Instance) Open(path string, flags abi.OpenFlag, mode uint32) (any, kerrors.Kind) {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	path = normalizePath(path)
	n := fsys.findLocked(path)
	if n == nil {
		return nil, kerrors.ENOENT
	}

	h := &handle{n: n}
	switch n.Kind {
	case kindDriver:
		dh, err := n.Driver.Open(flags, mode)
		if err != kerrors.ESUCC {
			return nil, err
		}
		h.driverHandle = dh
	case kindPipe:
		// no per-open driver state; the node's pipe is shared by all
		// handles, matching a FIFO's single-queue semantics.
	}

	fsys.openFiles++
	return h, kerrors.ESUCC
}

func (fsys *Instance) Close(hh any) kerrors.Kind {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	h := hh.(*handle)
	fsys.openFiles--
	if h.n.Kind == kindDriver {
		return h.n.Driver.Close(h.driverHandle)
	}
	return kerrors.ESUCC
}

func (fsys *Instance) Read(hh any, offset int64, buf []byte) (int, kerrors.Kind) {
	h := hh.(*handle)
	if h.n.Kind == kindPipe {
		// Blocking; deliberately outside the instance lock so one slow
		// reader cannot stall every other operation (spec §4.5's
		// blocking read/write contract for pipe nodes).
		return h.n.Pipe.read(buf), kerrors.ESUCC
	}
	fsys.mu.Lock(0)
	driver := h.n.Driver
	dh := h.driverHandle
	fsys.mu.Unlock()
	return driver.Read(dh, buf)
}

func (fsys *Instance) Write(hh any, offset int64, buf []byte) (int, kerrors.Kind) {
	h := hh.(*handle)
	if h.n.Kind == kindPipe {
		return h.n.Pipe.write(buf), kerrors.ESUCC
	}
	fsys.mu.Lock(0)
	driver := h.n.Driver
	dh := h.driverHandle
	fsys.mu.Unlock()
	return driver.Write(dh, buf)
}

func (fsys *Instance) Ioctl(hh any, request uint32, arg []byte) (int, kerrors.Kind) {
	h := hh.(*handle)
	if h.n.Kind != kindDriver {
		return 0, kerrors.ENOTSUP
	}
	return h.n.Driver.Ioctl(h.driverHandle, request, arg)
}

func (fsys *Instance) Flush(hh any) kerrors.Kind {
	h := hh.(*handle)
	if h.n.Kind != kindDriver {
		return kerrors.ESUCC
	}
	return h.n.Driver.Flush(h.driverHandle)
}

func (fsys *Instance) Stat(path string) (abi.Stat, kerrors.Kind) {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	n := fsys.findLocked(normalizePath(path))
	if n == nil {
		return abi.Stat{}, kerrors.ENOENT
	}
	return statOf(n), kerrors.ESUCC
}

func (fsys *Instance) Fstat(hh any) (abi.Stat, kerrors.Kind) {
	h := hh.(*handle)
	return statOf(h.n), kerrors.ESUCC
}

func (fsys *Instance) Statfs() (uint64, uint64, kerrors.Kind) {
	return 0, 0, kerrors.ESUCC
}

// Mkdir is rejected: devfs has a flat namespace, spec §4.5.
func (fsys *Instance) Mkdir(path string, mode uint32) kerrors.Kind { return kerrors.EPERM }

func (fsys *Instance) Mkfifo(path string, mode uint32) kerrors.Kind {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	path = normalizePath(path)
	if fsys.findLocked(path) != nil {
		return kerrors.EEXIST
	}
	if fsys.atCapacityLocked() {
		return kerrors.EMFILE
	}
	fsys.insertLocked(&node{Path: path, Mode: mode, Kind: kindPipe, Pipe: newPipe()})
	return kerrors.ESUCC
}

func (fsys *Instance) Mknod(path string, mode uint32, driver any) kerrors.Kind {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	path = normalizePath(path)
	if fsys.findLocked(path) != nil {
		return kerrors.EEXIST
	}
	d, ok := driver.(Driver)
	if !ok {
		return kerrors.EINVAL
	}
	if fsys.atCapacityLocked() {
		return kerrors.EMFILE
	}
	fsys.insertLocked(&node{Path: path, Mode: mode, Kind: kindDriver, Driver: d})
	return kerrors.ESUCC
}

// opendirHandle walks the flat node list in bucket-slot order.
type opendirHandle struct{ _ struct{} }

func (fsys *Instance) Opendir(path string) (any, kerrors.Kind) {
	if normalizePath(path) != "/" {
		return nil, kerrors.ENOTDIR
	}
	return &opendirHandle{}, kerrors.ESUCC
}

func (fsys *Instance) Closedir(h any) kerrors.Kind { return kerrors.ESUCC }

func (fsys *Instance) Readdir(h any, seek int) (string, abi.Stat, kerrors.Kind) {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	i := 0
	for b := fsys.head; b != nil; b = b.next {
		for _, n := range b.slots {
			if n == nil {
				continue
			}
			i++
			if i == seek {
				return n.Path, statOf(n), kerrors.ESUCC
			}
		}
	}
	return "", abi.Stat{}, kerrors.ENOENT
}

func (fsys *Instance) Remove(path string) kerrors.Kind {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	path = normalizePath(path)
	n := fsys.findLocked(path)
	if n == nil {
		return kerrors.ENOENT
	}
	if n.Kind == kindPipe {
		n.Pipe.close()
	}
	fsys.removeLocked(n)
	return kerrors.ESUCC
}

// Rename changes the stored path string in place, spec §4.5.
func (fsys *Instance) Rename(oldPath, newPath string) kerrors.Kind {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	oldPath = normalizePath(oldPath)
	newPath = normalizePath(newPath)
	n := fsys.findLocked(oldPath)
	if n == nil {
		return kerrors.ENOENT
	}
	if fsys.findLocked(newPath) != nil {
		return kerrors.EEXIST
	}
	n.Path = newPath
	return kerrors.ESUCC
}

func (fsys *Instance) Chmod(path string, mode uint32) kerrors.Kind {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	n := fsys.findLocked(normalizePath(path))
	if n == nil {
		return kerrors.ENOENT
	}
	n.Mode = mode
	return kerrors.ESUCC
}

func (fsys *Instance) Chown(path string, uid, gid uint32) kerrors.Kind {
	fsys.mu.Lock(0)
	defer fsys.mu.Unlock()

	n := fsys.findLocked(normalizePath(path))
	if n == nil {
		return kerrors.ENOENT
	}
	n.Uid, n.Gid = uid, gid
	return kerrors.ESUCC
}

// Sync is a no-op: neither driver nodes nor pipes buffer anything devfs
// itself is responsible for flushing.
func (fsys *Instance) Sync() kerrors.Kind { return kerrors.ESUCC }
