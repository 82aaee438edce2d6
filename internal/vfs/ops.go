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

package vfs

import (
	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
)

// File is a handle returned by Open: the owning mount plus the backend's
// own opaque FileHandle.
type File struct {
	mount *mountEntry
	inner FileHandle
}

// Dir is a handle returned by Opendir.
type Dir struct {
	mount *mountEntry
	inner DirHandle
}

// Open resolves path to a mount and opens it there. The open-flag contract
// common to all backends (spec §4.3): ENOENT without O_CREATE,
// truncate-to-zero on O_CREATE without O_APPEND, EOF-positioned cursor on
// O_APPEND, is each backend's to implement; this layer only resolves the
// path and forwards flags.
func (t *Table) Open(path string, flags abi.OpenFlag, mode uint32) (*File, kerrors.Kind) {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return nil, err
	}
	h, err := r.mount.backend.Open(r.localPath, flags, mode)
	if err != kerrors.ESUCC {
		return nil, err
	}
	return &File{mount: r.mount, inner: h}, kerrors.ESUCC
}

func (t *Table) Close(f *File) kerrors.Kind {
	return f.mount.backend.Close(f.inner)
}

func (t *Table) Read(f *File, offset int64, buf []byte) (int, kerrors.Kind) {
	return f.mount.backend.Read(f.inner, offset, buf)
}

func (t *Table) Write(f *File, offset int64, buf []byte) (int, kerrors.Kind) {
	return f.mount.backend.Write(f.inner, offset, buf)
}

func (t *Table) Ioctl(f *File, request uint32, arg []byte) (int, kerrors.Kind) {
	return f.mount.backend.Ioctl(f.inner, request, arg)
}

func (t *Table) Flush(f *File) kerrors.Kind {
	return f.mount.backend.Flush(f.inner)
}

func (t *Table) Fstat(f *File) (abi.Stat, kerrors.Kind) {
	return f.mount.backend.Fstat(f.inner)
}

// Stat resolves path and queries the owning backend. A trailing slash
// denotes directory intent (spec §4.3); stat-ing a regular file through a
// trailing-slash path fails with ENOTDIR.
func (t *Table) Stat(path string) (abi.Stat, kerrors.Kind) {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return abi.Stat{}, err
	}
	st, err := r.mount.backend.Stat(r.localPath)
	if err != kerrors.ESUCC {
		return abi.Stat{}, err
	}
	if trailingSlashIntendsDir(path) && st.Type != abi.NodeDirectory {
		return abi.Stat{}, kerrors.ENOTDIR
	}
	return st, kerrors.ESUCC
}

func trailingSlashIntendsDir(path string) bool {
	return len(path) > 1 && path[len(path)-1] == '/'
}

func (t *Table) Statfs(path string) (total, free uint64, err kerrors.Kind) {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return 0, 0, err
	}
	return r.mount.backend.Statfs()
}

func (t *Table) Mkdir(path string, mode uint32) kerrors.Kind {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return err
	}
	return r.mount.backend.Mkdir(r.localPath, mode)
}

func (t *Table) Mkfifo(path string, mode uint32) kerrors.Kind {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return err
	}
	return r.mount.backend.Mkfifo(r.localPath, mode)
}

func (t *Table) Mknod(path string, mode uint32, driver any) kerrors.Kind {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return err
	}
	return r.mount.backend.Mknod(r.localPath, mode, driver)
}

func (t *Table) Opendir(path string) (*Dir, kerrors.Kind) {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return nil, err
	}
	h, err := r.mount.backend.Opendir(r.localPath)
	if err != kerrors.ESUCC {
		return nil, err
	}
	return &Dir{mount: r.mount, inner: h}, kerrors.ESUCC
}

func (t *Table) Closedir(d *Dir) kerrors.Kind {
	return d.mount.backend.Closedir(d.inner)
}

func (t *Table) Readdir(d *Dir, seek int) (string, abi.Stat, kerrors.Kind) {
	return d.mount.backend.Readdir(d.inner, seek)
}

// Remove removes path; a directory must be empty (spec §4.3), a regular
// file currently open is deferred (remove-at-close) by the backend.
func (t *Table) Remove(path string) kerrors.Kind {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return err
	}
	return r.mount.backend.Remove(r.localPath)
}

// Rename resolves both paths; cross-backend renames are rejected with
// EXDEV (spec §4.3), same-backend semantics are the backend's own
// decision (LFS rejects cross-directory renames, per spec §4.4).
func (t *Table) Rename(oldPath, newPath string) kerrors.Kind {
	oldR, err := t.resolve(oldPath)
	if err != kerrors.ESUCC {
		return err
	}
	newR, err := t.resolve(newPath)
	if err != kerrors.ESUCC {
		return err
	}
	if oldR.mount != newR.mount {
		return kerrors.EXDEV
	}
	return oldR.mount.backend.Rename(oldR.localPath, newR.localPath)
}

func (t *Table) Chmod(path string, mode uint32) kerrors.Kind {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return err
	}
	return r.mount.backend.Chmod(r.localPath, mode)
}

func (t *Table) Chown(path string, uid, gid uint32) kerrors.Kind {
	r, err := t.resolve(path)
	if err != kerrors.ESUCC {
		return err
	}
	return r.mount.backend.Chown(r.localPath, uid, gid)
}

// Sync iterates every mounted backend and invokes its Sync, per spec
// §4.3; backends with nothing to flush return success trivially.
func (t *Table) Sync() kerrors.Kind {
	t.mu.RLock()
	backends := make([]Backend, len(t.mounts))
	for i, m := range t.mounts {
		backends[i] = m.backend
	}
	t.mu.RUnlock()

	for _, b := range backends {
		if err := b.Sync(); err != kerrors.ESUCC {
			return err
		}
	}
	return kerrors.ESUCC
}
