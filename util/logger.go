// Package util holds the small pieces every trickvs layer leans on:
// stderr diagnostics, address handling and reply buffer sizing.
package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel is how much of a session gets narrated on stderr. It is the
// number of -v flags given; stdout only ever carries server replies.
type LogLevel int

const (
	LogQuiet   LogLevel = iota // errors only
	LogNormal                  // connects, disconnects, warnings
	LogVerbose                 // setup steps, tunnel events, end-of-session metrics
	LogDebug                   // every command and reply line
)

// Logger is the CLI's stderr diagnostics channel. Safe for concurrent use:
// the shell's reply drain and its input loop log from different goroutines.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level LogLevel

	// start is the zero point of elapsed-time stamps. Zero means unstamped.
	start time.Time
}

// NewLogger returns a Logger for the given -v count. Debug level stamps
// each line with the time since the logger was created, which lines up
// with the server's own cycle timing better than wall-clock time.
func NewLogger(verbosity int) *Logger {
	l := &Logger{level: LogLevel(verbosity), out: os.Stderr}
	l.SetTimestamps(l.level >= LogDebug)
	return l
}

// SetTimestamps turns elapsed-time stamps on or off. Turning them on
// restarts the clock.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if on {
		l.start = time.Now()
	} else {
		l.start = time.Time{}
	}
}

// SetOutput redirects the log, mainly for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

func (l *Logger) Level() LogLevel { return l.level }

func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(LogNormal, "INF", format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(LogNormal, "WRN", format, args...)
}

func (l *Logger) Verbose(format string, args ...interface{}) {
	l.logf(LogVerbose, "VRB", format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(LogDebug, "DBG", format, args...)
}

// Error is printed even with verbosity 0.
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(LogQuiet, "ERR", format, args...)
}

// Wire traces one protocol line at debug level, dir marking its
// direction (">>" for a sent command). Tabs and newlines are escaped so
// every line, terminator included, stays on one log line.
func (l *Logger) Wire(dir, line string) {
	l.logf(LogDebug, "DBG", "%s %s", dir, wireEscaper.Replace(line))
}

func (l *Logger) logf(at LogLevel, tag, format string, args ...interface{}) {
	if l.level < at {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.start.IsZero() {
		fmt.Fprintf(l.out, "[%s] %s\n", tag, msg)
		return
	}
	fmt.Fprintf(l.out, "+%9.3fs [%s] %s\n", time.Since(l.start).Seconds(), tag, msg)
}

var wireEscaper = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)
