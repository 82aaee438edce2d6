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

// GetDefaultConfig returns the default values as a Config. Boot does not
// call it: its defaults come from the flag defaults set in BindFlags.
func GetDefaultConfig() Config {
	return Config{
		Board: BoardProfileGeneric,
		Dispatcher: DispatcherConfig{
			QueueDepth:  DefaultQueueDepth,
			WorkerSlots: DefaultWorkerSlots(),
		},
		Process: ProcessConfig{
			MaxProcesses:    DefaultMaxProcesses,
			DefaultPriority: DefaultPriority,
		},
		Memory: MemoryConfig{
			CeilingBytes: DefaultMemoryCeilingBytes,
			ReapOnOOM:    true,
		},
		FileSystem: FileSystemConfig{
			FileMode:         DefaultFileMode,
			DirMode:          DefaultDirMode,
			DevfsBucketSize:  DefaultDevfsBucketSize,
			LfsCapacityBytes: DefaultLfsCapacityBytes,
			MaxPathLength:    DefaultMaxPathLength,
			MaxNameLength:    DefaultMaxNameLength,
		},
		Logging: GetDefaultLoggingConfig(),
	}
}

// GetDefaultLoggingConfig returns the default configuration used during
// application startup, before the provided configuration has been parsed.
func GetDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Severity: InfoLogSeverity,
		LogRotate: LogRotateLoggingConfig{
			BackupFileCount: DefaultLogRotateBackupFileCount,
			Compress:        true,
			MaxFileSizeMb:   DefaultLogRotateMaxFileSizeMb,
		},
	}
}
