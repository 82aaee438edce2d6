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

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration struct, populated by viper from flags,
// an optional config file, and the flag defaults set in BindFlags, in that
// precedence order.
type Config struct {
	Board BoardProfile `yaml:"board"`

	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Process    ProcessConfig    `yaml:"process"`
	Memory     MemoryConfig     `yaml:"memory"`
	FileSystem FileSystemConfig `yaml:"file-system"`
	Logging    LoggingConfig    `yaml:"logging"`
	Debug      DebugConfig      `yaml:"debug"`
}

// DispatcherConfig controls the syscall dispatcher's inbound queue and
// kworker worker-slot accounting.
type DispatcherConfig struct {
	// QueueDepth bounds the dispatcher's inbound request queue.
	QueueDepth int `yaml:"queue-depth"`

	// WorkerSlots bounds the number of concurrently outstanding group-1/
	// group-2 blocking requests.
	WorkerSlots int `yaml:"worker-slots"`
}

// ProcessConfig bounds the process/thread tables.
type ProcessConfig struct {
	MaxProcesses int `yaml:"max-processes"`

	DefaultPriority int `yaml:"default-priority"`
}

// MemoryConfig governs malloc/zalloc accounting and OOM reaping.
type MemoryConfig struct {
	// CeilingBytes gates OOM reaping: when it is positive and ReapOnOOM is
	// set, the dispatcher reaps the most recently started non-essential
	// process once every worker slot is busy. Allocations are not counted
	// against it. Zero disables reaping.
	CeilingBytes int64 `yaml:"ceiling-bytes"`

	ReapOnOOM bool `yaml:"reap-on-oom"`
}

// FileSystemConfig configures the VFS mount table and its LFS/devfs
// back-ends.
type FileSystemConfig struct {
	FileMode Octal `yaml:"file-mode"`

	DirMode Octal `yaml:"dir-mode"`

	Uid int `yaml:"uid"`

	// DevfsBucketSize bounds the number of device and pipe nodes a devfs
	// instance holds at once; past it Mknod and Mkfifo fail with EMFILE.
	DevfsBucketSize int `yaml:"devfs-bucket-size"`

	// LfsCapacityBytes bounds the total bytes lfs will hold across all
	// files; a write that would grow past it fails with ENOSPC.
	LfsCapacityBytes int64 `yaml:"lfs-capacity-bytes"`

	MaxPathLength int `yaml:"max-path-length"`

	MaxNameLength int `yaml:"max-name-length"`
}

// LoggingConfig mirrors klog's severity/rotation knobs.
type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity"`

	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

type LogRotateLoggingConfig struct {
	MaxFileSizeMb int `yaml:"max-file-size-mb"`

	BackupFileCount int `yaml:"backup-file-count"`

	Compress bool `yaml:"compress"`
}

// DebugConfig carries assertion/diagnostic toggles that should never be on
// in a shipped build.
type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	LogMutex bool `yaml:"log-mutex"`
}

func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("board", "", string(BoardProfileGeneric), "Target board profile: '', constrained, or networked.")

	err = viper.BindPFlag("board", flagSet.Lookup("board"))
	if err != nil {
		return err
	}

	flagSet.IntP("dispatcher.queue-depth", "", DefaultQueueDepth, "Bound on the dispatcher's inbound request queue.")

	err = viper.BindPFlag("dispatcher.queue-depth", flagSet.Lookup("dispatcher.queue-depth"))
	if err != nil {
		return err
	}

	flagSet.IntP("dispatcher.worker-slots", "", DefaultWorkerSlots(), "Max concurrently outstanding blocking syscalls.")

	err = viper.BindPFlag("dispatcher.worker-slots", flagSet.Lookup("dispatcher.worker-slots"))
	if err != nil {
		return err
	}

	flagSet.IntP("process.max-processes", "", DefaultMaxProcesses, "Bound on the process table.")

	err = viper.BindPFlag("process.max-processes", flagSet.Lookup("process.max-processes"))
	if err != nil {
		return err
	}

	flagSet.IntP("process.default-priority", "", DefaultPriority, "Priority assigned to a process that doesn't request one.")

	err = viper.BindPFlag("process.default-priority", flagSet.Lookup("process.default-priority"))
	if err != nil {
		return err
	}

	flagSet.Int64P("memory.ceiling-bytes", "", DefaultMemoryCeilingBytes, "Positive value (with memory.reap-on-oom) enables reaping of the top process on worker-slot exhaustion; 0 disables.")

	err = viper.BindPFlag("memory.ceiling-bytes", flagSet.Lookup("memory.ceiling-bytes"))
	if err != nil {
		return err
	}

	flagSet.BoolP("memory.reap-on-oom", "", true, "Reap the most recently started non-essential process when every worker slot is busy.")

	err = viper.BindPFlag("memory.reap-on-oom", flagSet.Lookup("memory.reap-on-oom"))
	if err != nil {
		return err
	}

	flagSet.IntP("file-mode", "", int(DefaultFileMode), "Permission bits for files created without an explicit mode, in octal.")

	err = viper.BindPFlag("file-system.file-mode", flagSet.Lookup("file-mode"))
	if err != nil {
		return err
	}

	flagSet.IntP("dir-mode", "", int(DefaultDirMode), "Permission bits for directories created without an explicit mode, in octal.")

	err = viper.BindPFlag("file-system.dir-mode", flagSet.Lookup("dir-mode"))
	if err != nil {
		return err
	}

	flagSet.IntP("uid", "", 0, "Uid recorded on files created by this kernel.")

	err = viper.BindPFlag("file-system.uid", flagSet.Lookup("uid"))
	if err != nil {
		return err
	}

	flagSet.IntP("file-system.devfs-bucket-size", "", DefaultDevfsBucketSize, "Max device and pipe nodes a devfs instance holds at once.")

	err = viper.BindPFlag("file-system.devfs-bucket-size", flagSet.Lookup("file-system.devfs-bucket-size"))
	if err != nil {
		return err
	}

	flagSet.Int64P("file-system.lfs-capacity-bytes", "", DefaultLfsCapacityBytes, "Total bytes lfs will hold before returning ENOSPC.")

	err = viper.BindPFlag("file-system.lfs-capacity-bytes", flagSet.Lookup("file-system.lfs-capacity-bytes"))
	if err != nil {
		return err
	}

	flagSet.IntP("file-system.max-path-length", "", DefaultMaxPathLength, "Max total path length accepted by the VFS.")

	err = viper.BindPFlag("file-system.max-path-length", flagSet.Lookup("file-system.max-path-length"))
	if err != nil {
		return err
	}

	flagSet.IntP("file-system.max-name-length", "", DefaultMaxNameLength, "Max single path-segment length accepted by the VFS.")

	err = viper.BindPFlag("file-system.max-name-length", flagSet.Lookup("file-system.max-name-length"))
	if err != nil {
		return err
	}

	flagSet.StringP("logging.severity", "", string(InfoLogSeverity), "Log severity: TRACE, DEBUG, INFO, WARNING, ERROR, or OFF.")

	err = viper.BindPFlag("logging.severity", flagSet.Lookup("logging.severity"))
	if err != nil {
		return err
	}

	flagSet.IntP("logging.log-rotate.max-file-size-mb", "", DefaultLogRotateMaxFileSizeMb, "Size in MiB at which the log file is rotated.")

	err = viper.BindPFlag("logging.log-rotate.max-file-size-mb", flagSet.Lookup("logging.log-rotate.max-file-size-mb"))
	if err != nil {
		return err
	}

	flagSet.IntP("logging.log-rotate.backup-file-count", "", DefaultLogRotateBackupFileCount, "Number of rotated log files retained; 0 retains all.")

	err = viper.BindPFlag("logging.log-rotate.backup-file-count", flagSet.Lookup("logging.log-rotate.backup-file-count"))
	if err != nil {
		return err
	}

	flagSet.BoolP("logging.log-rotate.compress", "", true, "Gzip rotated log files.")

	err = viper.BindPFlag("logging.log-rotate.compress", flagSet.Lookup("logging.log-rotate.compress"))
	if err != nil {
		return err
	}

	flagSet.BoolP("debug_invariants", "", false, "Recorded as debug.exit-on-invariant-violation; no kernel code reads it.")

	err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug_invariants"))
	if err != nil {
		return err
	}

	flagSet.BoolP("debug_mutex", "", false, "Raise logging.severity to TRACE.")

	err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug_mutex"))
	if err != nil {
		return err
	}

	return nil
}
