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

package dispatch

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
	"github.com/suyog44/dnx-go/internal/kernel/metrics"
	"github.com/suyog44/dnx-go/internal/kernel/process"
)

func newTestDispatcher(t *testing.T, maxWorkers int) (*Dispatcher, *process.Table) {
	t.Helper()
	return newTestDispatcherReap(t, maxWorkers, true)
}

func newTestDispatcherReap(t *testing.T, maxWorkers int, reapOnOOM bool) (*Dispatcher, *process.Table) {
	t.Helper()
	procs := process.NewTable()
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	d := New(procs, reg, maxWorkers, inboundQueueLen, reapOnOOM)
	return d, procs
}

func spawnClient(t *testing.T, procs *process.Table) int {
	t.Helper()
	catalog := map[string]*process.Program{
		"idle": {Name: "idle", Main: func(ctx *process.Context, argv []string) int {
			<-make(chan struct{})
			return 0
		}},
	}
	pid, err := procs.Create("idle", process.Attrs{HasParent: true, Stdout: nullStream{}, Stderr: nullStream{}}, catalog)
	require.Equal(t, kerrors.ESUCC, err)
	return pid
}

type nullStream struct{}

func (nullStream) Read([]byte) (int, error)    { return 0, nil }
func (nullStream) Write(p []byte) (int, error) { return len(p), nil }

func TestUnregisteredSyscallIsENOSYS(t *testing.T) {
	d, procs := newTestDispatcher(t, 2)
	d.Start()
	defer d.Stop()
	pid := spawnClient(t, procs)

	_, err := d.Syscall(pid, abi.GETTIME)

	assert.Equal(t, kerrors.ENOSYS, err)
}

func TestGroup0HandlerRunsInline(t *testing.T) {
	d, procs := newTestDispatcher(t, 2)
	d.Register(abi.GETTIME, func(ctx context.Context, d *Dispatcher, call Call) (any, kerrors.Kind) {
		return int64(42), kerrors.ESUCC
	})
	d.Start()
	defer d.Stop()
	pid := spawnClient(t, procs)

	ret, err := d.Syscall(pid, abi.GETTIME)

	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, int64(42), ret)
}

func TestGroup1HandlerSeesSnapshottedCwd(t *testing.T) {
	d, procs := newTestDispatcher(t, 2)
	d.Register(abi.FOPEN, func(ctx context.Context, d *Dispatcher, call Call) (any, kerrors.Kind) {
		return call.Cwd, kerrors.ESUCC
	})
	d.Start()
	defer d.Stop()
	pid := spawnClient(t, procs)
	p, err := procs.Lookup(pid)
	require.Equal(t, kerrors.ESUCC, err)
	p.SetCwd("/home/app")

	ret, err := d.Syscall(pid, abi.FOPEN, "/home/app/file")

	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, "/home/app", ret)
}

func TestBlockingHandlerPropagatesArgsAndResult(t *testing.T) {
	d, procs := newTestDispatcher(t, 2)
	d.Register(abi.FREAD, func(ctx context.Context, d *Dispatcher, call Call) (any, kerrors.Kind) {
		require.Len(t, call.Args, 1)
		return call.Args[0].(string) + "-read", kerrors.ESUCC
	})
	d.Start()
	defer d.Stop()
	pid := spawnClient(t, procs)

	ret, err := d.Syscall(pid, abi.FREAD, "fd3")

	require.Equal(t, kerrors.ESUCC, err)
	assert.Equal(t, "fd3-read", ret)
}

func TestCancellationOnProcessDestroyStopsBlockingHandler(t *testing.T) {
	d, procs := newTestDispatcher(t, 2)
	started := make(chan struct{})
	cancelled := make(chan struct{})
	d.Register(abi.FREAD, func(ctx context.Context, d *Dispatcher, call Call) (any, kerrors.Kind) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return nil, kerrors.ETIME
	})
	d.Start()
	defer d.Stop()
	pid := spawnClient(t, procs)

	go func() { _, _ = d.Syscall(pid, abi.FREAD, "fdX") }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("handler never started")
	}

	_, err := procs.Destroy(pid)
	require.Equal(t, kerrors.ESUCC, err)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("process destruction did not cancel the in-flight worker")
	}
}

func TestWorkerSlotExhaustionTriggersReapOfNonEssentialVictim(t *testing.T) {
	d, procs := newTestDispatcher(t, 1)
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	d.Register(abi.FREAD, func(ctx context.Context, d *Dispatcher, call Call) (any, kerrors.Kind) {
		entered <- struct{}{}
		<-release
		return nil, kerrors.ESUCC
	})
	d.Start()
	defer d.Stop()

	// holderPid occupies the single worker slot first.
	holderPid := spawnClient(t, procs)
	go func() { _, _ = d.Syscall(holderPid, abi.FREAD, "held") }()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first blocking call never occupied the only worker slot")
	}

	// victimPid is created after the slot is already held, so it is the
	// highest-pid non-essential process in the table when the next
	// blocking call finds no free slot.
	var stderrBuf bytes.Buffer
	catalog := map[string]*process.Program{
		"idle": {Name: "idle", Main: func(ctx *process.Context, argv []string) int {
			<-make(chan struct{})
			return 0
		}},
	}
	victimPid, err := procs.Create("idle", process.Attrs{HasParent: true, Stdout: nullStream{}, Stderr: &stderrBuf}, catalog)
	require.Equal(t, kerrors.ESUCC, err)

	go func() { _, _ = d.Syscall(holderPid, abi.FREAD, "second call, same client, exhausts the slot") }()

	require.Eventually(t, func() bool {
		_, err := procs.Lookup(victimPid)
		return err != kerrors.ESUCC
	}, 2*time.Second, 5*time.Millisecond, "worker-slot exhaustion should reap the non-essential victim process")

	assert.Contains(t, stderrBuf.String(), "out of memory")
	close(release)
}

func TestWorkerSlotExhaustionDoesNotReapWhenReapOnOOMDisabled(t *testing.T) {
	d, procs := newTestDispatcherReap(t, 1, false)
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	d.Register(abi.FREAD, func(ctx context.Context, d *Dispatcher, call Call) (any, kerrors.Kind) {
		entered <- struct{}{}
		<-release
		return nil, kerrors.ESUCC
	})
	d.Start()
	defer d.Stop()

	holderPid := spawnClient(t, procs)
	go func() { _, _ = d.Syscall(holderPid, abi.FREAD, "held") }()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first blocking call never occupied the only worker slot")
	}

	victimPid := spawnClient(t, procs)
	go func() { _, _ = d.Syscall(holderPid, abi.FREAD, "second call, same client, exhausts the slot") }()

	// With reaping disabled, victimPid must survive even while the slot
	// stays exhausted; the requeued request just waits.
	time.Sleep(100 * time.Millisecond)
	_, err := procs.Lookup(victimPid)
	assert.Equal(t, kerrors.ESUCC, err, "victim must not be reaped when reapOnOOM is false")
	close(release)
}

func TestEssentialProcessIsNeverChosenAsVictim(t *testing.T) {
	d, procs := newTestDispatcher(t, 1)
	release := make(chan struct{})
	d.Register(abi.FREAD, func(ctx context.Context, d *Dispatcher, call Call) (any, kerrors.Kind) {
		<-release
		return nil, kerrors.ESUCC
	})
	d.Start()
	defer d.Stop()

	holderPid := spawnClient(t, procs)
	go func() { _, _ = d.Syscall(holderPid, abi.FREAD, "held") }()
	time.Sleep(20 * time.Millisecond)

	// essentialPid is created last, so it has the highest pid in the
	// table — the one reapTopProcess would normally pick — but is marked
	// essential, so holderPid must be the one reaped instead.
	essentialPid := spawnClient(t, procs)
	d.MarkEssential(essentialPid)

	go func() { _, _ = d.Syscall(essentialPid, abi.FREAD, "would deadlock if reaped") }()
	time.Sleep(50 * time.Millisecond)

	_, err := procs.Lookup(essentialPid)
	assert.Equal(t, kerrors.ESUCC, err, "an essential process must never be the reap victim")
	close(release)
}
