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

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/suyog44/dnx-go/cfg"
	"github.com/suyog44/dnx-go/internal/clock"
	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/catalog"
	"github.com/suyog44/dnx-go/internal/kernel/dispatch"
	"github.com/suyog44/dnx-go/internal/kernel/klog"
	"github.com/suyog44/dnx-go/internal/kernel/metrics"
	"github.com/suyog44/dnx-go/internal/kernel/process"
	"github.com/suyog44/dnx-go/internal/kernel/syscalls"
	"github.com/suyog44/dnx-go/internal/vfs"
	"github.com/suyog44/dnx-go/internal/vfs/lfs"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Bring up the process table, VFS, and syscall dispatcher, then block until shutdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.Rationalize(&KernelConfig); err != nil {
			return err
		}
		if err := cfg.ValidateConfig(&KernelConfig); err != nil {
			return err
		}
		return boot(&KernelConfig)
	},
}

func severityFor(s cfg.LogSeverity) klog.Severity {
	switch s {
	case cfg.TraceLogSeverity:
		return klog.TRACE
	case cfg.DebugLogSeverity:
		return klog.DEBUG
	case cfg.WarningLogSeverity:
		return klog.WARNING
	case cfg.ErrorLogSeverity:
		return klog.ERROR
	default:
		return klog.INFO
	}
}

// boot wires the process table, mount table, and dispatcher the way a
// target board's kworker would at power-on, mounts an in-RAM root, starts
// the dispatcher, and blocks until SIGINT/SIGTERM.
func boot(c *cfg.Config) error {
	klog.SetOutput(os.Stderr, severityFor(c.Logging.Severity))
	if c.Logging.Severity == cfg.OffLogSeverity {
		klog.SetEnabled(false)
	}
	klog.Info("booting: %s", c)

	procs := process.NewTable()
	vfst := vfs.NewTable()
	if err := vfst.Mount("root", "/", lfs.New(c.FileSystem.LfsCapacityBytes)); err != kerrors.ESUCC {
		return fmt.Errorf("mounting root lfs: %s", err)
	}

	reg := metrics.NewRegistry(prometheus.NewRegistry())
	d := dispatch.New(procs, reg, c.Dispatcher.WorkerSlots, c.Dispatcher.QueueDepth, cfg.IsOOMReapingEnabled(c))

	cat := catalog.Default()
	h := syscalls.New(procs, vfst, clock.NewSimulatedClock(time.Now()), cat.Programs(), c.FileSystem)
	h.RegisterAll(d)

	d.Start()
	klog.Info("dispatcher started: queue-depth=%d worker-slots=%d", c.Dispatcher.QueueDepth, c.Dispatcher.WorkerSlots)

	if _, ok := cat.Programs()["initd"]; ok {
		pid, err := procs.Create("initd", process.Attrs{HasParent: false}, cat.Programs())
		if err != kerrors.ESUCC {
			klog.Error("failed to launch initd: %s", err)
		} else {
			d.MarkEssential(pid)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	klog.Info("shutting down")
	d.Stop()
	d.Wait()
	return nil
}
