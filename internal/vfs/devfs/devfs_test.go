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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
)

type fakeDriver struct {
	size uint64
	data []byte
}

func (d *fakeDriver) Open(flags abi.OpenFlag, mode uint32) (any, kerrors.Kind) { return nil, kerrors.ESUCC }
func (d *fakeDriver) Close(h any) kerrors.Kind                                 { return kerrors.ESUCC }
func (d *fakeDriver) Read(h any, buf []byte) (int, kerrors.Kind) {
	n := copy(buf, d.data)
	return n, kerrors.ESUCC
}
func (d *fakeDriver) Write(h any, buf []byte) (int, kerrors.Kind) {
	d.data = append(d.data, buf...)
	return len(buf), kerrors.ESUCC
}
func (d *fakeDriver) Ioctl(h any, request uint32, arg []byte) (int, kerrors.Kind) {
	return 0, kerrors.ESUCC
}
func (d *fakeDriver) Flush(h any) kerrors.Kind { return kerrors.ESUCC }
func (d *fakeDriver) Size() uint64             { return d.size }

func TestMknodAndStatQueriesDriverSize(t *testing.T) {
	fsys := New(0)
	drv := &fakeDriver{size: 128}
	require.Equal(t, kerrors.ESUCC, fsys.Mknod("/uart0", 0644, drv))

	st, err := fsys.Stat("/uart0")

	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, abi.NodeDevice, st.Type)
	assert.Equal(t, uint64(128), st.Size)
}

func TestMknodDuplicatePathIsEEXIST(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mknod("/u", 0644, &fakeDriver{}))

	k := fsys.Mknod("/u", 0644, &fakeDriver{})

	assert.Equal(t, kerrors.EEXIST, k)
}

func TestMkdirIsRejected(t *testing.T) {
	fsys := New(0)

	k := fsys.Mkdir("/anything", 0755)

	assert.Equal(t, kerrors.EPERM, k)
}

func TestDeviceOpenReadWriteDelegatesToDriver(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mknod("/serial", 0644, &fakeDriver{}))

	h, err := fsys.Open("/serial", abi.O_RDWR, 0)
	require.Equal(t, kerrors.ESUCC, err)

	n, err := fsys.Write(h, 0, []byte("AT\r\n"))
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 4)
	n, err = fsys.Read(h, 0, buf)
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "AT\r\n", string(buf))

	require.Equal(t, kerrors.ESUCC, fsys.Close(h))
}

func TestRenameChangesPathInPlace(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mknod("/a", 0644, &fakeDriver{}))

	require.Equal(t, kerrors.ESUCC, fsys.Rename("/a", "/b"))

	_, err := fsys.Stat("/a")
	assert.Equal(t, kerrors.ENOENT, err)
	_, err = fsys.Stat("/b")
	assert.Equal(t, kerrors.ESUCC, err)
}

func TestChmodChownBookkeeping(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mknod("/a", 0644, &fakeDriver{}))

	require.Equal(t, kerrors.ESUCC, fsys.Chmod("/a", 0600))
	require.Equal(t, kerrors.ESUCC, fsys.Chown("/a", 9, 9))

	st, err := fsys.Stat("/a")
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, uint32(0600), st.Mode)
	assert.Equal(t, uint32(9), st.Uid)
}

func TestBucketChainGrowsPastInitialCapacityWithoutFreeingSlots(t *testing.T) {
	fsys := New(0)
	total := bucketSlots + 5
	for i := 0; i < total; i++ {
		require.Equal(t, kerrors.ESUCC, fsys.Mknod(fmt.Sprintf("/dev%d", i), 0644, &fakeDriver{}))
	}

	bucketCount := 0
	for b := fsys.head; b != nil; b = b.next {
		bucketCount++
	}
	assert.GreaterOrEqual(t, bucketCount, 2, "appending past one bucket's capacity must grow the chain")

	for i := 0; i < total; i++ {
		_, err := fsys.Stat(fmt.Sprintf("/dev%d", i))
		assert.Equal(t, kerrors.ESUCC, err)
	}
}

func TestPipeBlocksReaderUntilDataAvailable(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mkfifo("/pipe0", 0644))
	h, err := fsys.Open("/pipe0", abi.O_RDWR, 0)
	require.Equal(t, kerrors.ESUCC, err)

	buf := make([]byte, 3)
	done := make(chan int, 1)
	go func() {
		n, _ := fsys.Read(h, 0, buf)
		done <- n
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("read should still be blocked with no data written")
	default:
	}

	_, err = fsys.Write(h, 0, []byte("go"))
	require.Equal(t, kerrors.ESUCC, err)

	select {
	case n := <-done:
		assert.Equal(t, 2, n)
	case <-time.After(time.Second):
		t.Fatal("read did not unblock after write")
	}
}

func TestPipeStatReportsQueueDepth(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mkfifo("/pipe1", 0644))
	h, err := fsys.Open("/pipe1", abi.O_RDWR, 0)
	require.Equal(t, kerrors.ESUCC, err)

	_, err = fsys.Write(h, 0, []byte("abc"))
	require.Equal(t, kerrors.ESUCC, err)

	st, err := fsys.Stat("/pipe1")
	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, uint64(3), st.Size)
}

func TestMknodBeyondBucketSizeIsEMFILE(t *testing.T) {
	fsys := New(1)
	require.Equal(t, kerrors.ESUCC, fsys.Mknod("/u0", 0644, &fakeDriver{}))

	k := fsys.Mknod("/u1", 0644, &fakeDriver{})

	assert.Equal(t, kerrors.EMFILE, k)
}

func TestMkfifoBeyondBucketSizeIsEMFILE(t *testing.T) {
	fsys := New(1)
	require.Equal(t, kerrors.ESUCC, fsys.Mkfifo("/p0", 0644))

	k := fsys.Mkfifo("/p1", 0644)

	assert.Equal(t, kerrors.EMFILE, k)
}

func TestRemoveReclaimsBucketSlotForFutureMknod(t *testing.T) {
	fsys := New(1)
	require.Equal(t, kerrors.ESUCC, fsys.Mknod("/u0", 0644, &fakeDriver{}))
	require.Equal(t, kerrors.EMFILE, fsys.Mknod("/u1", 0644, &fakeDriver{}))

	require.Equal(t, kerrors.ESUCC, fsys.Remove("/u0"))

	assert.Equal(t, kerrors.ESUCC, fsys.Mknod("/u1", 0644, &fakeDriver{}))
}

func TestRemoveUnblocksPendingPipeReaderWithPartialCount(t *testing.T) {
	fsys := New(0)
	require.Equal(t, kerrors.ESUCC, fsys.Mkfifo("/pipe2", 0644))
	h, err := fsys.Open("/pipe2", abi.O_RDWR, 0)
	require.Equal(t, kerrors.ESUCC, err)

	buf := make([]byte, 3)
	done := make(chan int, 1)
	go func() {
		n, _ := fsys.Read(h, 0, buf)
		done <- n
	}()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, kerrors.ESUCC, fsys.Remove("/pipe2"))

	select {
	case n := <-done:
		assert.Equal(t, 0, n, "closure with no data delivered unblocks with a zero partial count")
	case <-time.After(time.Second):
		t.Fatal("remove did not unblock the pending reader")
	}
}
