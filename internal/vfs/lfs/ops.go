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

package lfs

import (
	"strings"
	"sync/atomic"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
)

// Open implements vfs.Backend's open contract (spec §4.3): ENOENT without
// O_CREATE, truncate on O_CREATE without O_APPEND and also on O_TRUNC,
// cursor at EOF iff O_APPEND.
func (fsys *Instance) Open(path string, flags abi.OpenFlag, mode uint32) (any, kerrors.Kind) {
	id := fsys.lock()
	defer fsys.unlock(id)

	n, err := fsys.resolve(path)
	if err == kerrors.ENOENT {
		if !flags.Has(abi.O_CREATE) {
			return nil, kerrors.ENOENT
		}
		parent, name, perr := fsys.resolveParentAndName(path)
		if perr != kerrors.ESUCC {
			return nil, perr
		}
		if parent.findChild(name) != nil {
			return nil, kerrors.EEXIST
		}
		n = &node{Name: name, Type: typeFile, Mode: mode, Parent: parent, Mtime: nowUnix()}
		parent.Children = append(parent.Children, n)
	} else if err != kerrors.ESUCC {
		return nil, err
	} else if flags.Has(abi.O_CREATE) && flags.Has(abi.O_EXCL) {
		return nil, kerrors.EEXIST
	}

	if n.Type == typeDir {
		return nil, kerrors.EISDIR
	}

	of := &openFile{n: n}
	if flags.Has(abi.O_CREATE) && !flags.Has(abi.O_APPEND) {
		fsys.releaseFileBytesLocked(n)
		n.Data = nil
		n.Mtime = nowUnix()
	}
	if flags.Has(abi.O_TRUNC) {
		fsys.releaseFileBytesLocked(n)
		n.Data = nil
		n.Mtime = nowUnix()
	}
	if flags.Has(abi.O_APPEND) {
		of.offset = int64(len(n.Data))
	}

	n.openCount++
	atomic.AddInt64(&fsys.openFiles, 1)
	return of, kerrors.ESUCC
}

func (fsys *Instance) Close(h any) kerrors.Kind {
	id := fsys.lock()
	defer fsys.unlock(id)

	of := h.(*openFile)
	of.n.openCount--
	atomic.AddInt64(&fsys.openFiles, -1)

	// Invariant L3: a remove-at-close node is unlinked only once every
	// open record referencing it has closed.
	if of.n.removeAtClose && of.n.openCount == 0 {
		fsys.releaseFileBytesLocked(of.n)
		unlinkFromParent(of.n)
	}
	return kerrors.ESUCC
}

func unlinkFromParent(n *node) {
	if n.Parent == nil {
		return
	}
	siblings := n.Parent.Children
	for i, c := range siblings {
		if c == n {
			n.Parent.Children = append(siblings[:i], siblings[i+1:]...)
			n.Parent = nil
			return
		}
	}
}

// Read implements the LFS read algorithm of spec §4.4: at offset o beyond
// length L, return 0 bytes; otherwise return min(r, L-o) bytes.
func (fsys *Instance) Read(h any, offset int64, buf []byte) (int, kerrors.Kind) {
	id := fsys.lock()
	defer fsys.unlock(id)

	of := h.(*openFile)
	n := of.n
	if n.Type == typeFifo {
		return readPipe(n.Pipe, buf)
	}

	L := int64(len(n.Data))
	if offset > L {
		return 0, kerrors.ESUCC
	}
	want := int64(len(buf))
	avail := L - offset
	if want > avail {
		want = avail
	}
	copy(buf, n.Data[offset:offset+want])
	return int(want), kerrors.ESUCC
}

func readPipe(p *pipe, buf []byte) (int, kerrors.Kind) {
	n := 0
	for n < len(buf) {
		b, k := p.buf.Receive(0)
		if k != kerrors.ESUCC {
			break
		}
		buf[n] = b
		n++
		if n >= 1 && p.buf.Len() == 0 {
			break
		}
	}
	return n, kerrors.ESUCC
}

// Write implements the LFS write algorithm of spec §4.4 exactly:
// offsets past the current end are clamped (no holes); a write that
// extends the file reallocates and copies; an in-place write does not.
func (fsys *Instance) Write(h any, offset int64, buf []byte) (int, kerrors.Kind) {
	id := fsys.lock()
	defer fsys.unlock(id)

	of := h.(*openFile)
	n := of.n
	if n.Type == typeFifo {
		return writePipe(n.Pipe, buf)
	}

	L := int64(len(n.Data))
	o := offset
	if o > L {
		o = L
	}
	w := int64(len(buf))

	if growth := o + w - L; growth > 0 {
		if k := fsys.reserveLocked(growth); k != kerrors.ESUCC {
			return 0, k
		}
	}

	if o+w > L || n.Data == nil {
		newData := make([]byte, o+w)
		copy(newData, n.Data)
		copy(newData[o:], buf)
		n.Data = newData
	} else {
		copy(n.Data[o:o+w], buf)
	}
	n.Mtime = nowUnix()
	return len(buf), kerrors.ESUCC
}

func writePipe(p *pipe, buf []byte) (int, kerrors.Kind) {
	n := 0
	for _, b := range buf {
		if k := p.buf.Send(b, 0); k != kerrors.ESUCC {
			break
		}
		n++
	}
	return n, kerrors.ESUCC
}

func (fsys *Instance) Ioctl(h any, request uint32, arg []byte) (int, kerrors.Kind) {
	return 0, kerrors.ENOTSUP
}

func (fsys *Instance) Flush(h any) kerrors.Kind { return kerrors.ESUCC }

func (fsys *Instance) Stat(path string) (abi.Stat, kerrors.Kind) {
	id := fsys.lock()
	defer fsys.unlock(id)

	n, err := fsys.resolve(path)
	if err != kerrors.ESUCC {
		return abi.Stat{}, err
	}
	return statOf(n), kerrors.ESUCC
}

func (fsys *Instance) Fstat(h any) (abi.Stat, kerrors.Kind) {
	id := fsys.lock()
	defer fsys.unlock(id)
	return statOf(h.(*openFile).n), kerrors.ESUCC
}

func (fsys *Instance) Statfs() (uint64, uint64, kerrors.Kind) {
	id := fsys.lock()
	defer fsys.unlock(id)

	if fsys.capacityBytes <= 0 {
		// No ceiling configured: report unbounded, as the allocator does.
		return 0, 0, kerrors.ESUCC
	}
	free := fsys.capacityBytes - fsys.usedBytes
	if free < 0 {
		free = 0
	}
	return uint64(fsys.capacityBytes), uint64(free), kerrors.ESUCC
}

func (fsys *Instance) Mkdir(path string, mode uint32) kerrors.Kind {
	id := fsys.lock()
	defer fsys.unlock(id)

	parent, name, err := fsys.resolveParentAndName(path)
	if err != kerrors.ESUCC {
		return err
	}
	if parent.findChild(name) != nil {
		return kerrors.EEXIST
	}
	parent.Children = append(parent.Children, &node{
		Name: name, Type: typeDir, Mode: mode, Parent: parent, Mtime: nowUnix(),
	})
	return kerrors.ESUCC
}

func (fsys *Instance) Mkfifo(path string, mode uint32) kerrors.Kind {
	id := fsys.lock()
	defer fsys.unlock(id)

	parent, name, err := fsys.resolveParentAndName(path)
	if err != kerrors.ESUCC {
		return err
	}
	if parent.findChild(name) != nil {
		return kerrors.EEXIST
	}
	parent.Children = append(parent.Children, &node{
		Name: name, Type: typeFifo, Mode: mode, Parent: parent, Mtime: nowUnix(), Pipe: newPipe(),
	})
	return kerrors.ESUCC
}

func (fsys *Instance) Mknod(path string, mode uint32, driver any) kerrors.Kind {
	id := fsys.lock()
	defer fsys.unlock(id)

	parent, name, err := fsys.resolveParentAndName(path)
	if err != kerrors.ESUCC {
		return err
	}
	if parent.findChild(name) != nil {
		return kerrors.EEXIST
	}
	parent.Children = append(parent.Children, &node{
		Name: name, Type: typeDevice, Mode: mode, Parent: parent, Mtime: nowUnix(), Driver: driver,
	})
	return kerrors.ESUCC
}

func (fsys *Instance) Opendir(path string) (any, kerrors.Kind) {
	id := fsys.lock()
	defer fsys.unlock(id)

	n, err := fsys.resolve(path)
	if err != kerrors.ESUCC {
		return nil, err
	}
	if n.Type != typeDir {
		return nil, kerrors.ENOTDIR
	}
	return &openFile{n: n, dir: true}, kerrors.ESUCC
}

func (fsys *Instance) Closedir(h any) kerrors.Kind { return kerrors.ESUCC }

// Readdir returns the k-th child in insertion order (spec §4.4), 1-based.
func (fsys *Instance) Readdir(h any, seek int) (string, abi.Stat, kerrors.Kind) {
	id := fsys.lock()
	defer fsys.unlock(id)

	of := h.(*openFile)
	if seek < 1 || seek > len(of.n.Children) {
		return "", abi.Stat{}, kerrors.ENOENT
	}
	child := of.n.Children[seek-1]
	return child.Name, statOf(child), kerrors.ESUCC
}

// Remove deletes path: a directory must be empty; a regular file that is
// currently open is deferred to remove-at-close (Invariant L2).
func (fsys *Instance) Remove(path string) kerrors.Kind {
	id := fsys.lock()
	defer fsys.unlock(id)

	parent, name, err := fsys.resolveParentAndName(path)
	if err != kerrors.ESUCC {
		return err
	}
	n := parent.findChild(name)
	if n == nil {
		return kerrors.ENOENT
	}
	if n.Type == typeDir {
		if len(n.Children) > 0 {
			return kerrors.ENOTDIR
		}
		unlinkFromParent(n)
		return kerrors.ESUCC
	}
	if n.Type == typeFile && n.openCount > 0 {
		n.removeAtClose = true
		return kerrors.ESUCC
	}
	fsys.releaseFileBytesLocked(n)
	unlinkFromParent(n)
	return kerrors.ESUCC
}

// Rename is permitted only within the same parent (spec §4.4); a path
// that ends in a slash (directory intent) is rejected with EINVAL.
func (fsys *Instance) Rename(oldPath, newPath string) kerrors.Kind {
	id := fsys.lock()
	defer fsys.unlock(id)

	if strings.HasSuffix(oldPath, "/") || strings.HasSuffix(newPath, "/") {
		return kerrors.EINVAL
	}

	oldParent, oldName, err := fsys.resolveParentAndName(oldPath)
	if err != kerrors.ESUCC {
		return err
	}
	newParent, newName, err := fsys.resolveParentAndName(newPath)
	if err != kerrors.ESUCC {
		return err
	}
	if oldParent != newParent {
		return kerrors.EPERM
	}
	n := oldParent.findChild(oldName)
	if n == nil {
		return kerrors.ENOENT
	}
	if newParent.findChild(newName) != nil {
		return kerrors.EEXIST
	}
	n.Name = newName
	return kerrors.ESUCC
}

func (fsys *Instance) Chmod(path string, mode uint32) kerrors.Kind {
	id := fsys.lock()
	defer fsys.unlock(id)

	n, err := fsys.resolve(path)
	if err != kerrors.ESUCC {
		return err
	}
	n.Mode = mode
	return kerrors.ESUCC
}

func (fsys *Instance) Chown(path string, uid, gid uint32) kerrors.Kind {
	id := fsys.lock()
	defer fsys.unlock(id)

	n, err := fsys.resolve(path)
	if err != kerrors.ESUCC {
		return err
	}
	n.Uid, n.Gid = uid, gid
	return kerrors.ESUCC
}

// Sync is a no-op: LFS has nothing to flush to a backing medium.
func (fsys *Instance) Sync() kerrors.Kind { return kerrors.ESUCC }
