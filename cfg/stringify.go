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

import "fmt"

// String renders the config the way it's logged at boot. Nothing in Config
// is sensitive today, so this is a plain field dump — kept as its own
// function so a future field that does need redacting has a home.
func (c Config) String() string {
	return fmt.Sprintf(
		"board=%s dispatcher={queue-depth=%d worker-slots=%d} process={max=%d priority=%d} "+
			"memory={ceiling-bytes=%d reap-on-oom=%t} "+
			"file-system={file-mode=%s dir-mode=%s uid=%d devfs-bucket-size=%d lfs-capacity-bytes=%d} "+
			"logging={severity=%s}",
		c.Board,
		c.Dispatcher.QueueDepth, c.Dispatcher.WorkerSlots,
		c.Process.MaxProcesses, c.Process.DefaultPriority,
		c.Memory.CeilingBytes, c.Memory.ReapOnOOM,
		c.FileSystem.FileMode, c.FileSystem.DirMode, c.FileSystem.Uid,
		c.FileSystem.DevfsBucketSize, c.FileSystem.LfsCapacityBytes,
		c.Logging.Severity,
	)
}
