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

// Package vfs is the Virtual File System of spec §4.3: a mount tree over
// pluggable Backend instances, longest-prefix path resolution, and the
// public file/directory operations dispatched to whichever backend owns
// the resolved path.
package vfs

import (
	"strings"
	"sync"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
)

// FileHandle is an open-file token a Backend hands back from Open; the VFS
// itself never looks inside it. An alias (not a defined type) so backend
// implementations can use a plain `any` in their method signatures and
// still satisfy the Backend interface.
type FileHandle = any

// DirHandle is an open-directory token a Backend hands back from Opendir.
type DirHandle = any

// Backend is the capability record every file-system implementation binds
// to a mount point, per spec §3's "File-system instance" and §9's guidance
// to model back-end dispatch as an interface over a finite set of known
// implementations — directly grounded on the jacobsa/fuse FileSystem
// interface shape retrieved alongside this pack (every operation takes an
// opaque instance context implicitly, as a method receiver here).
type Backend interface {
	Name() string
	Release() error

	Open(path string, flags abi.OpenFlag, mode uint32) (FileHandle, kerrors.Kind)
	Close(h FileHandle) kerrors.Kind
	Read(h FileHandle, offset int64, buf []byte) (int, kerrors.Kind)
	Write(h FileHandle, offset int64, buf []byte) (int, kerrors.Kind)
	Ioctl(h FileHandle, request uint32, arg []byte) (int, kerrors.Kind)
	Flush(h FileHandle) kerrors.Kind
	Stat(path string) (abi.Stat, kerrors.Kind)
	Fstat(h FileHandle) (abi.Stat, kerrors.Kind)
	Statfs() (totalBlocks, freeBlocks uint64, err kerrors.Kind)

	Mkdir(path string, mode uint32) kerrors.Kind
	Mkfifo(path string, mode uint32) kerrors.Kind
	Mknod(path string, mode uint32, driver any) kerrors.Kind
	Opendir(path string) (DirHandle, kerrors.Kind)
	Closedir(h DirHandle) kerrors.Kind
	Readdir(h DirHandle, seek int) (name string, st abi.Stat, err kerrors.Kind)
	Remove(path string) kerrors.Kind
	Rename(oldPath, newPath string) kerrors.Kind
	Chmod(path string, mode uint32) kerrors.Kind
	Chown(path string, uid, gid uint32) kerrors.Kind
	Sync() kerrors.Kind

	// OpenFileCount reports the backend's currently open file handles, the
	// quiescence test umount uses (spec §5: "umount with non-zero count
	// returns EBUSY").
	OpenFileCount() int
}

// mountEntry is one row of the mount table, spec §3.
type mountEntry struct {
	source  string
	prefix  string // normalized, no trailing slash except for "/"
	backend Backend
}

// Table is the VFS mount table: spec §3 Invariant V1 ("no mount-point
// prefix equals another; longest-match is unique") enforced at mount time.
type Table struct {
	mu     sync.RWMutex
	mounts []mountEntry
}

// NewTable returns an empty mount table. The root must be mounted (spec
// §3: "The root must be mounted before any syscall can succeed") before
// any path operation will succeed.
func NewTable() *Table {
	return &Table{}
}

func normalizeMountPath(p string) string {
	if p == "/" {
		return "/"
	}
	return strings.TrimSuffix(p, "/")
}

// Mount attaches backend at mountPath, spec §4.3 "mount".
func (t *Table) Mount(source, mountPath string, backend Backend) kerrors.Kind {
	norm := normalizeMountPath(mountPath)

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.mounts {
		if m.prefix == norm {
			return kerrors.EEXIST
		}
	}
	t.mounts = append(t.mounts, mountEntry{source: source, prefix: norm, backend: backend})
	return kerrors.ESUCC
}

// Umount detaches the backend mounted at mountPath. Fails with EBUSY if
// the backend reports any open file handles (spec §3, §5).
func (t *Table) Umount(mountPath string) kerrors.Kind {
	norm := normalizeMountPath(mountPath)

	t.mu.Lock()
	defer t.mu.Unlock()
	for i, m := range t.mounts {
		if m.prefix != norm {
			continue
		}
		if m.backend.OpenFileCount() > 0 {
			return kerrors.EBUSY
		}
		if err := m.backend.Release(); err != nil {
			return kerrors.Of(err)
		}
		t.mounts = append(t.mounts[:i], t.mounts[i+1:]...)
		return kerrors.ESUCC
	}
	return kerrors.ENOENT
}

// resolved is a path after mount resolution: the backend that owns it and
// the path re-rooted under that backend.
type resolved struct {
	mount     *mountEntry
	localPath string
}

// resolve finds the mount whose prefix is the longest proper prefix of
// path and re-roots path under it, per spec §4.3's mount-resolution
// paragraph and Invariant V1.
func (t *Table) resolve(path string) (resolved, kerrors.Kind) {
	if !strings.HasPrefix(path, "/") {
		return resolved{}, kerrors.EINVAL
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var best *mountEntry
	bestLen := -1
	for i := range t.mounts {
		m := &t.mounts[i]
		if m.prefix == "/" {
			if bestLen < 1 {
				best = m
				bestLen = 1
			}
			continue
		}
		if path == m.prefix || strings.HasPrefix(path, m.prefix+"/") {
			if len(m.prefix) > bestLen {
				best = m
				bestLen = len(m.prefix)
			}
		}
	}
	if best == nil {
		return resolved{}, kerrors.ENOENT
	}

	local := strings.TrimPrefix(path, best.prefix)
	if local == "" {
		local = "/"
	}
	if !strings.HasPrefix(local, "/") {
		local = "/" + local
	}
	return resolved{mount: best, localPath: local}, kerrors.ESUCC
}

// GetMntEntry returns the mount-entry record for the mount at index i in
// table order, backing GETMNTENTRY (spec §6).
func (t *Table) GetMntEntry(i int) (abi.MountEntry, kerrors.Kind) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.mounts) {
		return abi.MountEntry{}, kerrors.ENOENT
	}
	m := t.mounts[i]
	total, free, err := m.backend.Statfs()
	if err != kerrors.ESUCC {
		return abi.MountEntry{}, err
	}
	return abi.MountEntry{
		Source:      m.source,
		MountPath:   m.prefix,
		BackendName: m.backend.Name(),
		TotalBlocks: total,
		FreeBlocks:  free,
	}, kerrors.ESUCC
}

// Len returns the number of active mounts.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mounts)
}
