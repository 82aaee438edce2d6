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

// Package klog is the kernel's structured logger: a severity ladder built
// on top of log/slog, swappable at runtime for tests, with text and JSON
// handlers.
package klog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity is the kernel's TRACE..ERROR severity ladder.
type Severity int

const (
	TRACE Severity = iota
	DEBUG
	INFO
	WARNING
	ERROR
)

func (s Severity) slogLevel() slog.Level {
	// Leave two slots of headroom below slog.LevelDebug for TRACE.
	return slog.Level((int(s) - int(INFO)) * 4)
}

func (s Severity) String() string {
	switch s {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var (
	mu            sync.RWMutex
	defaultLogger = slog.New(newTextHandler(os.Stderr, levelVarFor(INFO)))
	panicFlag     bool
	enabled       = true
)

func levelVarFor(s Severity) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(s.slogLevel())
	return lv
}

// newTextHandler builds a handler in the "time=... severity=... message=..."
// shape asserted against in this package's own tests.
func newTextHandler(w io.Writer, level *slog.LevelVar) slog.Handler {
	return &textHandler{w: w, level: level}
}

type textHandler struct {
	w     io.Writer
	level *slog.LevelVar
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	sev := severityForLevel(r.Level)
	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n",
		r.Time.Format("2006/01/02 15:04:05.000000"), sev, r.Message)
	return err
}

func (h *textHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *textHandler) WithGroup(_ string) slog.Handler       { return h }

func severityForLevel(l slog.Level) Severity {
	switch {
	case l <= TRACE.slogLevel():
		return TRACE
	case l <= DEBUG.slogLevel():
		return DEBUG
	case l <= INFO.slogLevel():
		return INFO
	case l <= WARNING.slogLevel():
		return WARNING
	default:
		return ERROR
	}
}

// SetOutput redirects the default logger, for tests that capture output.
func SetOutput(w io.Writer, min Severity) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = slog.New(newTextHandler(w, levelVarFor(min)))
}

// RotateConfig configures the rotating JSON sink used when the kernel boots
// with file-backed logging (cfg.LoggingConfig.LogRotate).
type RotateConfig struct {
	Filename        string
	MaxFileSizeMb   int
	BackupFileCount int
	Compress        bool
}

// UseRotatingFile points the default logger at a lumberjack-managed log
// file, JSON-encoded one record per line, using
// gopkg.in/natefinch/lumberjack.v2 for rotation.
func UseRotatingFile(rc RotateConfig, min Severity) {
	sink := &lumberjack.Logger{
		Filename:   rc.Filename,
		MaxSize:    rc.MaxFileSizeMb,
		MaxBackups: rc.BackupFileCount,
		Compress:   rc.Compress,
	}
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = slog.New(slog.NewJSONHandler(sink, &slog.HandlerOptions{
		Level: levelVarFor(min),
	}))
}

func logf(sev Severity, format string, args ...any) {
	mu.RLock()
	l, on := defaultLogger, enabled
	mu.RUnlock()
	if !on {
		return
	}
	l.Log(context.Background(), sev.slogLevel(), fmt.Sprintf(format, args...))
}

// SetEnabled gates every log call, backing SYSLOGENABLE/SYSLOGDISABLE
// (spec §6). Panic's persistent flag is unaffected either way.
func SetEnabled(on bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
}

// Enabled reports the current syslog gate state.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func Trace(format string, args ...any)   { logf(TRACE, format, args...) }
func Debug(format string, args ...any)   { logf(DEBUG, format, args...) }
func Info(format string, args ...any)    { logf(INFO, format, args...) }
func Warning(format string, args ...any) { logf(WARNING, format, args...) }

// Error logs at ERROR severity. Kernel-invariant-violation callers should use
// Panic instead, which additionally flips the persistent panic flag read by
// the KERNELPANICDETECT syscall (§7).
func Error(format string, args ...any) { logf(ERROR, format, args...) }

// Panic records an internal invariant violation: it logs at ERROR and sets
// the persistent flag KERNELPANICDETECT reports, per spec §7 ("Kernel panics
// set a persistent flag detectable by KERNELPANICDETECT after reboot"). It
// does not itself terminate the process — callers decide that.
func Panic(format string, args ...any) {
	mu.Lock()
	panicFlag = true
	mu.Unlock()
	logf(ERROR, "KERNEL PANIC: "+format, args...)
}

// PanicDetected reports whether Panic has been called since the last
// ClearPanicFlag, backing the KERNELPANICDETECT syscall.
func PanicDetected() bool {
	mu.RLock()
	defer mu.RUnlock()
	return panicFlag
}

// ClearPanicFlag resets the persistent panic flag, standing in for the
// flag's storage surviving exactly one reboot cycle.
func ClearPanicFlag() {
	mu.Lock()
	defer mu.Unlock()
	panicFlag = false
}
