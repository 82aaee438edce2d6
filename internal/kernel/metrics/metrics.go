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

// Package metrics exposes Prometheus instrumentation for the kernel
// mediation layer: dispatcher queue depth, process/zombie counts, and VFS
// open-file counts. It is observability only — nothing in the kernel reads
// these values back to make decisions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the kernel's metric handles behind a small
// handle-interface-over-real-counters pattern.
type Registry struct {
	QueueDepth      prometheus.Gauge
	QueueRejected   prometheus.Counter
	ProcessesLive   prometheus.Gauge
	ProcessesZombie prometheus.Gauge
	ReapEvents      prometheus.Counter
	VFSOpenFiles    prometheus.Gauge
	SyscallsTotal   *prometheus.CounterVec
}

// NewRegistry builds and registers a fresh Registry against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dnx",
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Number of syscall requests currently queued for the kworker.",
		}),
		QueueRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dnx",
			Subsystem: "dispatch",
			Name:      "queue_rejected_total",
			Help:      "Syscall requests dropped because their originating client was reaped before dispatch.",
		}),
		ProcessesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dnx",
			Subsystem: "process",
			Name:      "live",
			Help:      "Number of process-table entries not yet reaped.",
		}),
		ProcessesZombie: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dnx",
			Subsystem: "process",
			Name:      "zombie",
			Help:      "Number of zombie process-table entries awaiting collection.",
		}),
		ReapEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dnx",
			Subsystem: "dispatch",
			Name:      "oom_reap_total",
			Help:      "Number of times the dispatcher destroyed a top process to recover from ENOMEM.",
		}),
		VFSOpenFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dnx",
			Subsystem: "vfs",
			Name:      "open_files",
			Help:      "Number of file handles currently open across all mounts.",
		}),
		SyscallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dnx",
			Subsystem: "dispatch",
			Name:      "syscalls_total",
			Help:      "Syscalls processed, labeled by group and outcome.",
		}, []string{"group", "outcome"}),
	}

	reg.MustRegister(r.QueueDepth, r.QueueRejected, r.ProcessesLive,
		r.ProcessesZombie, r.ReapEvents, r.VFSOpenFiles, r.SyscallsTotal)

	return r
}
