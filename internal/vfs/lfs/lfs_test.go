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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
)

func TestBasicReadWriteRoundTrip(t *testing.T) {
	fsys := New(0)

	h, err := fsys.Open("/a", abi.O_CREATE|abi.O_RDWR, 0644)
	require.Equal(t, kerrors.ESUCC, err)

	n, err := fsys.Write(h, 0, []byte("hello"))
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = fsys.Read(h, 0, buf)
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	require.Equal(t, kerrors.ESUCC, fsys.Close(h))
	require.Equal(t, kerrors.ESUCC, fsys.Remove("/a"))

	_, err = fsys.Open("/a", abi.O_RDONLY, 0)
	assert.Equal(t, kerrors.ENOENT, err)
}

func TestOpenWithoutCreateOnMissingFileIsENOENT(t *testing.T) {
	fsys := New(0)

	_, err := fsys.Open("/missing", abi.O_RDONLY, 0)

	assert.Equal(t, kerrors.ENOENT, err)
}

func TestRemoveAtCloseDefersDeletionUntilLastHandle(t *testing.T) {
	fsys := New(0)

	h1, err := fsys.Open("/b", abi.O_CREATE|abi.O_RDWR, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	_, err = fsys.Write(h1, 0, []byte("x"))
	require.Equal(t, kerrors.ESUCC, err)

	h2, err := fsys.Open("/b", abi.O_RDONLY, 0)
	require.Equal(t, kerrors.ESUCC, err)

	require.Equal(t, kerrors.ESUCC, fsys.Remove("/b"))

	_, err = fsys.Stat("/b")
	assert.Equal(t, kerrors.ENOENT, err, "remove-at-close still hides the node from stat/lookup immediately")

	buf := make([]byte, 1)
	n, err := fsys.Read(h2, 0, buf)
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 1, n, "data is still accessible through the live handle")

	require.Equal(t, kerrors.ESUCC, fsys.Close(h1))
	require.Equal(t, kerrors.ESUCC, fsys.Close(h2))
}

func TestWriteClampsOffsetPastEOF(t *testing.T) {
	fsys := New(0)
	h, err := fsys.Open("/c", abi.O_CREATE|abi.O_RDWR, 0644)
	require.Equal(t, kerrors.ESUCC, err)

	n, err := fsys.Write(h, 100, []byte("ab"))
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 2, n)

	st, err := fsys.Fstat(h)
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, uint64(2), st.Size, "a write past EOF clamps to the current end, the file has no holes")
}

func TestWriteOverwritesInPlaceWithoutExtending(t *testing.T) {
	fsys := New(0)
	h, err := fsys.Open("/d", abi.O_CREATE|abi.O_RDWR, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	_, err = fsys.Write(h, 0, []byte("hello"))
	require.Equal(t, kerrors.ESUCC, err)

	_, err = fsys.Write(h, 1, []byte("EL"))
	require.Equal(t, kerrors.ESUCC, err)

	buf := make([]byte, 5)
	_, _ = fsys.Read(h, 0, buf)
	assert.Equal(t, "hELlo", string(buf))
}

func TestReadAtOrPastEOFReturnsZero(t *testing.T) {
	fsys := New(0)
	h, err := fsys.Open("/e", abi.O_CREATE|abi.O_RDWR, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	_, err = fsys.Write(h, 0, []byte("ab"))
	require.Equal(t, kerrors.ESUCC, err)

	buf := make([]byte, 4)
	n, err := fsys.Read(h, 10, buf)

	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 0, n)
}

func TestMkdirDuplicateNameIsEEXIST(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mkdir("/dir", 0755))

	k := fsys.Mkdir("/dir", 0755)

	assert.Equal(t, kerrors.EEXIST, k)
}

func TestMkdirOpendirRemoveLeavesChildCountUnchanged(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mkdir("/p", 0755))
	before, _ := fsys.resolve("/")
	beforeCount := len(before.Children)

	require.Equal(t, kerrors.ESUCC, fsys.Mkdir("/p/q", 0755))
	dh, err := fsys.Opendir("/p/q")
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, kerrors.ESUCC, fsys.Closedir(dh))
	require.Equal(t, kerrors.ESUCC, fsys.Remove("/p/q"))

	after, _ := fsys.resolve("/")
	assert.Equal(t, beforeCount, len(after.Children))
}

func TestRemoveNonEmptyDirectoryFails(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mkdir("/d", 0755))
	require.Equal(t, kerrors.ESUCC, fsys.Mkdir("/d/child", 0755))

	k := fsys.Remove("/d")

	assert.Equal(t, kerrors.ENOTDIR, k)
}

func TestRenameAcrossDirectoriesFailsWithEPERM(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mkdir("/x", 0755))
	require.Equal(t, kerrors.ESUCC, fsys.Mkdir("/y", 0755))
	h, err := fsys.Open("/x/f", abi.O_CREATE, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, kerrors.ESUCC, fsys.Close(h))

	k := fsys.Rename("/x/f", "/y/f")

	assert.Equal(t, kerrors.EPERM, k)
}

func TestRenameWithinSameParent(t *testing.T) {
	fsys := New(0)
	h, err := fsys.Open("/f1", abi.O_CREATE, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, kerrors.ESUCC, fsys.Close(h))

	require.Equal(t, kerrors.ESUCC, fsys.Rename("/f1", "/f2"))

	_, err = fsys.Stat("/f1")
	assert.Equal(t, kerrors.ENOENT, err)
	_, err = fsys.Stat("/f2")
	assert.Equal(t, kerrors.ESUCC, err)
}

func TestChmodChownRoundTrip(t *testing.T) {
	fsys := New(0)
	h, err := fsys.Open("/m", abi.O_CREATE, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, kerrors.ESUCC, fsys.Close(h))

	require.Equal(t, kerrors.ESUCC, fsys.Chmod("/m", 0600))
	require.Equal(t, kerrors.ESUCC, fsys.Chown("/m", 42, 7))

	st, err := fsys.Stat("/m")
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, uint32(0600), st.Mode)
	assert.Equal(t, uint32(42), st.Uid)
	assert.Equal(t, uint32(7), st.Gid)
}

func TestWriteOfZeroBytesSucceedsAndDoesNotModify(t *testing.T) {
	fsys := New(0)
	h, err := fsys.Open("/z", abi.O_CREATE, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	_, err = fsys.Write(h, 0, []byte("abc"))
	require.Equal(t, kerrors.ESUCC, err)

	n, err := fsys.Write(h, 0, []byte{})
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 0, n)

	st, _ := fsys.Fstat(h)
	assert.Equal(t, uint64(3), st.Size)
}

func TestReaddirSequentialTraversal(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mkdir("/root1", 0755))
	h, err := fsys.Open("/root1/a", abi.O_CREATE, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, kerrors.ESUCC, fsys.Close(h))
	require.Equal(t, kerrors.ESUCC, fsys.Mkfifo("/root1/p", 0644))

	dh, err := fsys.Opendir("/root1")
	require.Equal(t, kerrors.ESUCC, err)

	name, _, err := fsys.Readdir(dh, 1)
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, "a", name)

	name, _, err = fsys.Readdir(dh, 2)
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, "p", name)

	_, _, err = fsys.Readdir(dh, 3)
	assert.Equal(t, kerrors.ENOENT, err)
}

func TestMknodBindsDriverAndStatQueriesLater(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mknod("/dev0", 0644, "fake-driver"))

	st, err := fsys.Stat("/dev0")

	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, abi.NodeDevice, st.Type)
}

func TestFifoWriteThenRead(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mkfifo("/pipe", 0644))
	h, err := fsys.Open("/pipe", abi.O_RDWR, 0)
	require.Equal(t, kerrors.ESUCC, err)

	n, err := fsys.Write(h, 0, []byte("hi"))
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 2, n)

	buf := make([]byte, 2)
	n, err = fsys.Read(h, 0, buf)
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "hi", string(buf))
}

func TestWriteBeyondCapacityIsENOSPC(t *testing.T) {
	fsys := New(4)
	h, err := fsys.Open("/a", abi.O_CREATE|abi.O_RDWR, 0644)
	require.Equal(t, kerrors.ESUCC, err)

	n, err := fsys.Write(h, 0, []byte("hello"))

	assert.Equal(t, kerrors.ENOSPC, err)
	assert.Equal(t, 0, n)
}

func TestWriteWithinCapacitySucceedsThenGrowthFails(t *testing.T) {
	fsys := New(4)
	h, err := fsys.Open("/a", abi.O_CREATE|abi.O_RDWR, 0644)
	require.Equal(t, kerrors.ESUCC, err)

	n, err := fsys.Write(h, 0, []byte("ab"))
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, 2, n)

	n, err = fsys.Write(h, 2, []byte("cd"))
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, 2, n)

	n, err = fsys.Write(h, 4, []byte("e"))
	assert.Equal(t, kerrors.ENOSPC, err)
	assert.Equal(t, 0, n)
}

func TestRemoveReclaimsCapacityForFutureWrites(t *testing.T) {
	fsys := New(4)
	h, err := fsys.Open("/a", abi.O_CREATE|abi.O_RDWR, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	_, err = fsys.Write(h, 0, []byte("abcd"))
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, kerrors.ESUCC, fsys.Close(h))
	require.Equal(t, kerrors.ESUCC, fsys.Remove("/a"))

	h2, err := fsys.Open("/b", abi.O_CREATE|abi.O_RDWR, 0644)
	require.Equal(t, kerrors.ESUCC, err)
	n, err := fsys.Write(h2, 0, []byte("abcd"))

	assert.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 4, n)
}
