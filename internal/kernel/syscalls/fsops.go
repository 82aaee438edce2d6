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

package syscalls

import (
	"context"
	"io"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
	"github.com/suyog44/dnx-go/internal/kernel/dispatch"
	"github.com/suyog44/dnx-go/internal/kernel/process"
	"github.com/suyog44/dnx-go/internal/vfs"
	"github.com/suyog44/dnx-go/internal/vfs/devfs"
	"github.com/suyog44/dnx-go/internal/vfs/lfs"
)

// openFile is an FOPEN resource's handle contents: the VFS-level File plus
// the cursor fseek/fread/fwrite share, since vfs.Table.Read/Write take an
// explicit offset but the syscall surface is cursor-based.
type openFile struct {
	file   *vfs.File
	cursor int64
}

func (h *Handlers) mount(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	source, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	mountPath, k := arg[string](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	backendName, k := arg[string](call, 2)
	if k != kerrors.ESUCC {
		return nil, k
	}

	var backend vfs.Backend
	switch backendName {
	case "lfs":
		backend = lfs.New(h.FS.LfsCapacityBytes)
	case "devfs":
		backend = devfs.New(h.FS.DevfsBucketSize)
	default:
		return nil, kerrors.EINVAL
	}
	return nil, h.VFS.Mount(source, mountPath, backend)
}

func (h *Handlers) umount(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	mountPath, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.VFS.Umount(mountPath)
}

func (h *Handlers) getMntEntry(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	i, k := arg[int](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	entry, err := h.VFS.GetMntEntry(i)
	return entry, err
}

func (h *Handlers) mkdir(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	mode, k := arg[uint32](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.VFS.Mkdir(resolved, mode)
}

func (h *Handlers) mkfifo(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	mode, k := arg[uint32](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.VFS.Mkfifo(resolved, mode)
}

func (h *Handlers) mknod(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	mode, k := arg[uint32](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	driver, k := arg[devfs.Driver](call, 2)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.VFS.Mknod(resolved, mode, driver)
}

func (h *Handlers) opendir(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	d, err := h.VFS.Opendir(resolved)
	if err != kerrors.ESUCC {
		return nil, err
	}
	header := &process.ResourceHeader{Type: process.ResDir, Handle: d, Destroy: func() error {
		h.VFS.Closedir(d)
		return nil
	}}
	if err := h.Procs.RegisterResource(call.ClientPid, header); err != kerrors.ESUCC {
		h.VFS.Closedir(d)
		return nil, err
	}
	return header, kerrors.ESUCC
}

func (h *Handlers) closedir(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	header, k := arg[*process.ResourceHeader](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, releaseResource(h, call.ClientPid, header, process.ResDir)
}

func (h *Handlers) readdir(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	header, k := arg[*process.ResourceHeader](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	seek, k := arg[int](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	d, ok := header.Handle.(*vfs.Dir)
	if !ok {
		return nil, kerrors.EFAULT
	}
	name, st, err := h.VFS.Readdir(d, seek)
	if err != kerrors.ESUCC {
		return nil, err
	}
	return struct {
		Name string
		Stat abi.Stat
	}{name, st}, kerrors.ESUCC
}

func (h *Handlers) remove(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.VFS.Remove(resolved)
}

func (h *Handlers) rename(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	oldPath, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	newPath, k := arg[string](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolvedOld, k := h.resolveValidPath(call.Cwd, oldPath)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolvedNew, k := h.resolveValidPath(call.Cwd, newPath)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.VFS.Rename(resolvedOld, resolvedNew)
}

func (h *Handlers) chmod(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	mode, k := arg[uint32](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.VFS.Chmod(resolved, mode)
}

func (h *Handlers) chown(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	uid, k := arg[uint32](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	gid, k := arg[uint32](call, 2)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.VFS.Chown(resolved, uid, gid)
}

func (h *Handlers) statfs(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	total, free, err := h.VFS.Statfs(resolved)
	if err != kerrors.ESUCC {
		return nil, err
	}
	return struct{ Total, Free uint64 }{total, free}, kerrors.ESUCC
}

func (h *Handlers) stat(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	st, err := h.VFS.Stat(resolved)
	return st, err
}

func (h *Handlers) fstat(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	_, of, k := h.openFileArg(call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	st, err := h.VFS.Fstat(of.file)
	return st, err
}

func (h *Handlers) fopen(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	path, k := arg[string](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	flags, k := arg[abi.OpenFlag](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	mode, k := arg[uint32](call, 2)
	if k != kerrors.ESUCC {
		return nil, k
	}

	resolved, k := h.resolveValidPath(call.Cwd, path)
	if k != kerrors.ESUCC {
		return nil, k
	}
	f, err := h.VFS.Open(resolved, flags, mode)
	if err != kerrors.ESUCC {
		return nil, err
	}
	of := &openFile{file: f}
	if flags.Has(abi.O_APPEND) {
		if st, serr := h.VFS.Fstat(f); serr == kerrors.ESUCC {
			of.cursor = int64(st.Size)
		}
	}
	header := &process.ResourceHeader{Type: process.ResFile, Handle: of, Destroy: func() error {
		h.VFS.Close(f)
		return nil
	}}
	if err := h.Procs.RegisterResource(call.ClientPid, header); err != kerrors.ESUCC {
		h.VFS.Close(f)
		return nil, err
	}
	return header, kerrors.ESUCC
}

func (h *Handlers) fclose(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	header, k := arg[*process.ResourceHeader](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, releaseResource(h, call.ClientPid, header, process.ResFile)
}

// openFileArg resolves call.Args[i] to the *openFile a registered FILE
// resource header wraps, failing EFAULT on anything else.
func (h *Handlers) openFileArg(call dispatch.Call, i int) (*process.ResourceHeader, *openFile, kerrors.Kind) {
	header, k := arg[*process.ResourceHeader](call, i)
	if k != kerrors.ESUCC {
		return nil, nil, k
	}
	of, ok := header.Handle.(*openFile)
	if !ok {
		return nil, nil, kerrors.EFAULT
	}
	return header, of, kerrors.ESUCC
}

func (h *Handlers) fread(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	_, of, k := h.openFileArg(call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	buf, k := arg[[]byte](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	n, err := h.VFS.Read(of.file, of.cursor, buf)
	if err == kerrors.ESUCC {
		of.cursor += int64(n)
	}
	return n, err
}

func (h *Handlers) fwrite(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	_, of, k := h.openFileArg(call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	buf, k := arg[[]byte](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	n, err := h.VFS.Write(of.file, of.cursor, buf)
	if err == kerrors.ESUCC {
		of.cursor += int64(n)
	}
	return n, err
}

func (h *Handlers) fseek(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	_, of, k := h.openFileArg(call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	offset, k := arg[int64](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	whence, k := arg[int](call, 2)
	if k != kerrors.ESUCC {
		return nil, k
	}

	switch whence {
	case io.SeekStart:
		of.cursor = offset
	case io.SeekCurrent:
		of.cursor += offset
	case io.SeekEnd:
		st, err := h.VFS.Fstat(of.file)
		if err != kerrors.ESUCC {
			return nil, err
		}
		of.cursor = int64(st.Size) + offset
	default:
		return nil, kerrors.EINVAL
	}
	if of.cursor < 0 {
		of.cursor = 0
		return nil, kerrors.EINVAL
	}
	return of.cursor, kerrors.ESUCC
}

func (h *Handlers) fflush(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	_, of, k := h.openFileArg(call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	return nil, h.VFS.Flush(of.file)
}

func (h *Handlers) ioctl(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	_, of, k := h.openFileArg(call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	request, k := arg[uint32](call, 1)
	if k != kerrors.ESUCC {
		return nil, k
	}
	buf, k := arg[[]byte](call, 2)
	if k != kerrors.ESUCC {
		return nil, k
	}
	n, err := h.VFS.Ioctl(of.file, request, buf)
	return n, err
}

func (h *Handlers) sync(_ context.Context, _ *dispatch.Dispatcher, _ dispatch.Call) (any, kerrors.Kind) {
	return nil, h.VFS.Sync()
}
