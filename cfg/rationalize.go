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

package cfg

// Rationalize updates config fields based on the values of other fields,
// after flags/config-file/defaults have been merged but before
// ValidateConfig runs.
func Rationalize(c *Config) error {
	if c.Debug.LogMutex {
		c.Logging.Severity = TraceLogSeverity
	}

	applyBoardProfile(c)

	if c.Memory.CeilingBytes < 0 {
		c.Memory.CeilingBytes = 0
	}

	return nil
}

// applyBoardProfile layers a board's flag overrides onto fields the caller
// left at their generic default — a named profile mapping to a small set
// of flag overrides, keyed on board capability rather than a per-flag file.
func applyBoardProfile(c *Config) {
	switch c.Board {
	case BoardProfileConstrained:
		if c.Dispatcher.QueueDepth == DefaultQueueDepth {
			c.Dispatcher.QueueDepth = 4
		}
		if c.Dispatcher.WorkerSlots == DefaultWorkerSlots() {
			c.Dispatcher.WorkerSlots = 1
		}
		if c.Process.MaxProcesses == DefaultMaxProcesses {
			c.Process.MaxProcesses = 8
		}
	case BoardProfileNetworked:
		if c.Dispatcher.WorkerSlots == DefaultWorkerSlots() {
			c.Dispatcher.WorkerSlots = DefaultWorkerSlots() * 2
		}
	}
}
