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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suyog44/dnx-go/cfg"
	"github.com/suyog44/dnx-go/internal/clock"
	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
	"github.com/suyog44/dnx-go/internal/kernel/dispatch"
	"github.com/suyog44/dnx-go/internal/kernel/metrics"
	"github.com/suyog44/dnx-go/internal/kernel/process"
	"github.com/suyog44/dnx-go/internal/vfs"
	"github.com/suyog44/dnx-go/internal/vfs/lfs"
)

func mustLFS(t *testing.T) vfs.Backend {
	t.Helper()
	return lfs.New(0)
}

type nullStream struct{}

func (nullStream) Read([]byte) (int, error)    { return 0, nil }
func (nullStream) Write(p []byte) (int, error) { return len(p), nil }

func newTestKernel(t *testing.T) (*dispatch.Dispatcher, *process.Table, int) {
	t.Helper()
	procs := process.NewTable()
	vfst := vfs.NewTable()
	require.Equal(t, kerrors.ESUCC, vfst.Mount("root", "/", mustLFS(t)))

	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	catalog := map[string]*process.Program{
		"idle": {Name: "idle", Main: func(ctx *process.Context, argv []string) int {
			<-make(chan struct{})
			return 0
		}},
	}

	d := dispatch.New(procs, metrics.NewRegistry(prometheus.NewRegistry()), 4, 8, true)
	h := New(procs, vfst, clk, catalog, cfg.GetDefaultConfig().FileSystem)
	h.RegisterAll(d)
	d.Start()
	t.Cleanup(d.Stop)

	pid, err := procs.Create("idle", process.Attrs{HasParent: true, Stdout: nullStream{}, Stderr: nullStream{}}, catalog)
	require.Equal(t, kerrors.ESUCC, err)
	return d, procs, pid
}

func TestGetTimeReflectsSetTime(t *testing.T) {
	d, _, pid := newTestKernel(t)

	want := time.Date(2030, time.March, 4, 5, 6, 7, 0, time.UTC)
	_, err := d.Syscall(pid, abi.SETTIME, want)
	require.Equal(t, kerrors.ESUCC, err)

	got, err := d.Syscall(pid, abi.GETTIME)
	require.Equal(t, kerrors.ESUCC, err)
	assert.True(t, want.Equal(got.(time.Time)))
}

func TestProcessGetPidReturnsCaller(t *testing.T) {
	d, _, pid := newTestKernel(t)

	got, err := d.Syscall(pid, abi.PROCESSGETPID)

	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, pid, got)
}

func TestFileRoundTripWriteSeekRead(t *testing.T) {
	d, _, pid := newTestKernel(t)

	fdAny, err := d.Syscall(pid, abi.FOPEN, "/a", abi.O_RDWR|abi.O_CREATE, uint32(0o644))
	require.Equal(t, kerrors.ESUCC, err)

	n, err := d.Syscall(pid, abi.FWRITE, fdAny, []byte("hello"))
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, 5, n)

	_, err = d.Syscall(pid, abi.FSEEK, fdAny, int64(0), 0) // io.SeekStart
	require.Equal(t, kerrors.ESUCC, err)

	buf := make([]byte, 5)
	n, err = d.Syscall(pid, abi.FREAD, fdAny, buf)
	require.Equal(t, kerrors.ESUCC, err)
	require.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	_, err = d.Syscall(pid, abi.FCLOSE, fdAny)
	require.Equal(t, kerrors.ESUCC, err)

	_, err = d.Syscall(pid, abi.REMOVE, "/a")
	require.Equal(t, kerrors.ESUCC, err)

	_, err = d.Syscall(pid, abi.FOPEN, "/a", abi.O_RDONLY, uint32(0))
	assert.Equal(t, kerrors.ENOENT, err)
}

func TestFcloseOnWrongHandleTypeAbortsCaller(t *testing.T) {
	d, procs, _ := newTestKernel(t)
	catalog := map[string]*process.Program{
		"idle": {Name: "idle", Main: func(ctx *process.Context, argv []string) int {
			<-make(chan struct{})
			return 0
		}},
	}
	orphanPid, err := procs.Create("idle", process.Attrs{HasParent: false, Stdout: nullStream{}, Stderr: nullStream{}}, catalog)
	require.Equal(t, kerrors.ESUCC, err)

	semAny, err := d.Syscall(orphanPid, abi.SEMAPHORECREATE, int64(0))
	require.Equal(t, kerrors.ESUCC, err)

	_, err = d.Syscall(orphanPid, abi.FCLOSE, semAny)

	assert.Equal(t, kerrors.EFAULT, err)
	_, lookupErr := procs.Lookup(orphanPid)
	assert.Equal(t, kerrors.ESRCH, lookupErr, "a resource type mismatch must abort the offending process, removing it (has_parent=false) from the table")
}

func TestNetworkSyscallsReportENETDOWN(t *testing.T) {
	d, _, pid := newTestKernel(t)

	_, err := d.Syscall(pid, abi.NETIFUP)

	assert.Equal(t, kerrors.ENETDOWN, err)
}

func TestSystemIsNotSupported(t *testing.T) {
	d, _, pid := newTestKernel(t)

	_, err := d.Syscall(pid, abi.SYSTEM, "ls")

	assert.Equal(t, kerrors.ENOTSUP, err)
}
