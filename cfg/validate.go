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

const (
	QueueDepthInvalidValueError  = "dispatcher.queue-depth must be at least 1"
	WorkerSlotsInvalidValueError = "dispatcher.worker-slots must be at least 1"
	MaxProcessesInvalidValueError = "process.max-processes must be at least 1"
)

func isValidDispatcherConfig(c *DispatcherConfig) error {
	if c.QueueDepth < 1 {
		return fmt.Errorf(QueueDepthInvalidValueError)
	}
	if c.WorkerSlots < 1 {
		return fmt.Errorf(WorkerSlotsInvalidValueError)
	}
	return nil
}

func isValidProcessConfig(c *ProcessConfig) error {
	if c.MaxProcesses < 1 {
		return fmt.Errorf(MaxProcessesInvalidValueError)
	}
	return nil
}

func isValidFileSystemConfig(c *FileSystemConfig) error {
	if c.MaxPathLength < 1 {
		return fmt.Errorf("file-system.max-path-length must be at least 1")
	}
	if c.MaxNameLength < 1 {
		return fmt.Errorf("file-system.max-name-length must be at least 1")
	}
	if c.DevfsBucketSize < 1 {
		return fmt.Errorf("file-system.devfs-bucket-size must be at least 1")
	}
	if c.LfsCapacityBytes < 1 {
		return fmt.Errorf("file-system.lfs-capacity-bytes must be at least 1")
	}
	return nil
}

func isValidLogRotateConfig(c *LogRotateLoggingConfig) error {
	if c.MaxFileSizeMb <= 0 {
		return fmt.Errorf("logging.log-rotate.max-file-size-mb should be at least 1")
	}
	if c.BackupFileCount < 0 {
		return fmt.Errorf("logging.log-rotate.backup-file-count should be 0 (retain all) or positive")
	}
	return nil
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if !config.Board.IsValid() {
		return fmt.Errorf("invalid board profile: %q", config.Board)
	}

	if err := isValidDispatcherConfig(&config.Dispatcher); err != nil {
		return fmt.Errorf("error parsing dispatcher config: %w", err)
	}

	if err := isValidProcessConfig(&config.Process); err != nil {
		return fmt.Errorf("error parsing process config: %w", err)
	}

	if err := isValidFileSystemConfig(&config.FileSystem); err != nil {
		return fmt.Errorf("error parsing file-system config: %w", err)
	}

	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}

	return nil
}
