// Package log is the ambient logging layer: leveled, timestamped lines to
// stderr, color-profile-aware via termenv, plus an optional debug trace file
// in the style of the teacher's internal/utils.Debug.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

var (
	output     = termenv.NewOutput(os.Stderr)
	debugFile  *os.File
	debugOnce  sync.Once
	debugMu    sync.Mutex
	debugOn    bool
	levelMu    sync.Mutex
	infoStyle  = termenv.Style{}.Foreground(output.Color("4"))  // blue
	warnStyle  = termenv.Style{}.Foreground(output.Color("3"))  // yellow
	errorStyle = termenv.Style{}.Foreground(output.Color("1")). // red
			Bold()
)

// EnableDebugFile turns on trace-level writes to debug.log, mirroring the
// teacher's utils.Debug behavior, gated behind an explicit opt-in (--verbose)
// instead of being always-on.
func EnableDebugFile() {
	levelMu.Lock()
	debugOn = true
	levelMu.Unlock()
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func writeLine(w io.Writer, style termenv.Style, level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] %s", timestamp(), level, msg)
	fmt.Fprintln(w, style.Styled(line))
}

// Info logs an informational line to stderr.
func Info(format string, args ...any) {
	writeLine(os.Stderr, infoStyle, "INFO", format, args...)
}

// Warn logs a warning line to stderr.
func Warn(format string, args ...any) {
	writeLine(os.Stderr, warnStyle, "WARN", format, args...)
}

// Error logs an error line to stderr.
func Error(format string, args ...any) {
	writeLine(os.Stderr, errorStyle, "ERROR", format, args...)
}

// Debug writes a trace message to debug.log when EnableDebugFile has been
// called; otherwise it is a no-op, so normal runs pay no I/O cost for it.
func Debug(format string, args ...any) {
	levelMu.Lock()
	on := debugOn
	levelMu.Unlock()
	if !on {
		return
	}

	debugOnce.Do(func() {
		debugFile, _ = os.Create("debug.log")
	})
	if debugFile == nil {
		return
	}

	debugMu.Lock()
	defer debugMu.Unlock()
	fmt.Fprintf(debugFile, "[%s] %s\n", timestamp(), fmt.Sprintf(format, args...))
	debugFile.Sync()
}
