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

const (
	// DefaultQueueDepth matches the inbound-queue depth the dispatcher is
	// specified against.
	DefaultQueueDepth = 8

	DefaultMaxProcesses = 64

	DefaultPriority = 0

	// DefaultMemoryCeilingBytes of 0 disables OOM reaping by default; a
	// board profile or flag must opt in.
	DefaultMemoryCeilingBytes int64 = 0

	DefaultFileMode Octal = 0o644
	DefaultDirMode  Octal = 0o755

	DefaultDevfsBucketSize = 32

	DefaultLfsCapacityBytes int64 = 4 << 20 // 4 MiB

	DefaultMaxPathLength = 255
	DefaultMaxNameLength = 64

	DefaultLogRotateMaxFileSizeMb   = 8
	DefaultLogRotateBackupFileCount = 4
)
