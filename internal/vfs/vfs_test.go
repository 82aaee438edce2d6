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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
)

// fakeBackend is the smallest Backend implementation that lets vfs_test.go
// exercise mount-table resolution without depending on lfs/devfs.
type fakeBackend struct {
	name      string
	openFiles int
	lastPath  string
}

func (b *fakeBackend) Name() string    { return b.name }
func (b *fakeBackend) Release() error  { return nil }

func (b *fakeBackend) Open(path string, flags abi.OpenFlag, mode uint32) (FileHandle, kerrors.Kind) {
	b.lastPath = path
	b.openFiles++
	return path, kerrors.ESUCC
}
func (b *fakeBackend) Close(h FileHandle) kerrors.Kind { b.openFiles--; return kerrors.ESUCC }
func (b *fakeBackend) Read(h FileHandle, offset int64, buf []byte) (int, kerrors.Kind) {
	return 0, kerrors.ESUCC
}
func (b *fakeBackend) Write(h FileHandle, offset int64, buf []byte) (int, kerrors.Kind) {
	return len(buf), kerrors.ESUCC
}
func (b *fakeBackend) Ioctl(h FileHandle, request uint32, arg []byte) (int, kerrors.Kind) {
	return 0, kerrors.ENOTSUP
}
func (b *fakeBackend) Flush(h FileHandle) kerrors.Kind { return kerrors.ESUCC }
func (b *fakeBackend) Stat(path string) (abi.Stat, kerrors.Kind) {
	b.lastPath = path
	return abi.Stat{Type: abi.NodeRegular}, kerrors.ESUCC
}
func (b *fakeBackend) Fstat(h FileHandle) (abi.Stat, kerrors.Kind) {
	return abi.Stat{Type: abi.NodeRegular}, kerrors.ESUCC
}
func (b *fakeBackend) Statfs() (uint64, uint64, kerrors.Kind) { return 1024, 512, kerrors.ESUCC }
func (b *fakeBackend) Mkdir(path string, mode uint32) kerrors.Kind       { return kerrors.ESUCC }
func (b *fakeBackend) Mkfifo(path string, mode uint32) kerrors.Kind      { return kerrors.ESUCC }
func (b *fakeBackend) Mknod(path string, mode uint32, driver any) kerrors.Kind { return kerrors.ESUCC }
func (b *fakeBackend) Opendir(path string) (DirHandle, kerrors.Kind)     { return path, kerrors.ESUCC }
func (b *fakeBackend) Closedir(h DirHandle) kerrors.Kind                 { return kerrors.ESUCC }
func (b *fakeBackend) Readdir(h DirHandle, seek int) (string, abi.Stat, kerrors.Kind) {
	return "", abi.Stat{}, kerrors.ENOENT
}
func (b *fakeBackend) Remove(path string) kerrors.Kind             { return kerrors.ESUCC }
func (b *fakeBackend) Rename(oldPath, newPath string) kerrors.Kind { return kerrors.ESUCC }
func (b *fakeBackend) Chmod(path string, mode uint32) kerrors.Kind { return kerrors.ESUCC }
func (b *fakeBackend) Chown(path string, uid, gid uint32) kerrors.Kind { return kerrors.ESUCC }
func (b *fakeBackend) Sync() kerrors.Kind                          { return kerrors.ESUCC }
func (b *fakeBackend) OpenFileCount() int                         { return b.openFiles }

func TestMountDuplicatePrefixIsEEXIST(t *testing.T) {
	table := NewTable()
	require.Equal(t, kerrors.ESUCC, table.Mount("src", "/", &fakeBackend{name: "root"}))

	k := table.Mount("src2", "/", &fakeBackend{name: "root2"})

	assert.Equal(t, kerrors.EEXIST, k)
}

func TestLongestPrefixMatch(t *testing.T) {
	table := NewTable()
	root := &fakeBackend{name: "root"}
	tmp := &fakeBackend{name: "tmp"}
	require.Equal(t, kerrors.ESUCC, table.Mount("s1", "/", root))
	require.Equal(t, kerrors.ESUCC, table.Mount("s2", "/tmp", tmp))

	_, err := table.Open("/tmp/x", abi.O_CREATE, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, "/x", tmp.lastPath, "path should be re-rooted under the longest matching mount")

	_, err = table.Open("/x", abi.O_CREATE, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, "/x", root.lastPath)
}

func TestResolveWithoutRootMountIsENOENT(t *testing.T) {
	table := NewTable()

	_, err := table.Stat("/anything")

	assert.Equal(t, kerrors.ENOENT, err)
}

func TestUmountBusyWithOpenFiles(t *testing.T) {
	table := NewTable()
	b := &fakeBackend{name: "root"}
	require.Equal(t, kerrors.ESUCC, table.Mount("s", "/", b))

	_, err := table.Open("/a", abi.O_CREATE, 0644)
	require.Equal(t, kerrors.ESUCC, err)

	k := table.Umount("/")
	assert.Equal(t, kerrors.EBUSY, k)
}

func TestUmountWhenQuiescentSucceedsAndRepeatIsENOENT(t *testing.T) {
	table := NewTable()
	b := &fakeBackend{name: "root"}
	require.Equal(t, kerrors.ESUCC, table.Mount("s", "/", b))

	require.Equal(t, kerrors.ESUCC, table.Umount("/"))
	assert.Equal(t, kerrors.ENOENT, table.Umount("/"), "umount of an already-unmounted path is not a no-op, it's ENOENT")

	require.Equal(t, kerrors.ESUCC, table.Mount("s", "/", b))
	require.Equal(t, kerrors.ESUCC, table.Umount("/"))
}

func TestRenameAcrossBackendsIsEXDEV(t *testing.T) {
	table := NewTable()
	require.Equal(t, kerrors.ESUCC, table.Mount("s1", "/", &fakeBackend{name: "root"}))
	require.Equal(t, kerrors.ESUCC, table.Mount("s2", "/tmp", &fakeBackend{name: "tmp"}))

	k := table.Rename("/a", "/tmp/a")

	assert.Equal(t, kerrors.EXDEV, k)
}

func TestStatTrailingSlashRequiresDirectory(t *testing.T) {
	table := NewTable()
	require.Equal(t, kerrors.ESUCC, table.Mount("s", "/", &fakeBackend{name: "root"}))

	_, err := table.Stat("/file/")

	assert.Equal(t, kerrors.ENOTDIR, err)
}

func TestGetMntEntryReportsBackend(t *testing.T) {
	table := NewTable()
	require.Equal(t, kerrors.ESUCC, table.Mount("source", "/", &fakeBackend{name: "lfs"}))

	entry, err := table.GetMntEntry(0)

	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, "lfs", entry.BackendName)
	assert.Equal(t, uint64(1024), entry.TotalBlocks)
}
