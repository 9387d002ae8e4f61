// Package logging provides the leveled, per-component logger used across
// the module, backed by zerolog's structured writer the way cloudflared's
// h2mux backs its own connection/stream lifecycle logging.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Log levels, kept for compatibility with callers that still pass a raw
// level (pkg/http1) instead of calling Debug/Info/etc.
// directly.
const (
	LevelFatal   = 0
	LevelError   = 1
	LevelWarning = 2
	LevelInfo    = 3
	LevelDebug   = 4
)

var (
	globalMutex sync.Mutex
	verboseMode bool

	out        io.Writer = os.Stderr
	baseLogger           = newBaseLogger(out)
)

func newBaseLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: true}).With().Timestamp().Logger()
}

// SetOutput redirects every subsequently created Logger's writer — tests
// use this (via ResetOutput) to capture output in a buffer instead of
// writing to stderr.
func SetOutput(w io.Writer) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	out = w
	baseLogger = newBaseLogger(w)
}

var testBuf bytes.Buffer

// ResetOutput points logging at an internal buffer and clears it, for
// test assertions against GetOutput — a direct analog of the teacher's
// global-buffer test harness, adapted to zerolog's io.Writer seam.
func ResetOutput() {
	globalMutex.Lock()
	testBuf.Reset()
	globalMutex.Unlock()
	SetOutput(&testBuf)
}

// GetOutput returns everything written since the last ResetOutput.
func GetOutput() string {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	return testBuf.String()
}

// SetVerbose sets the global verbose mode; debug-level messages are
// suppressed unless it is on, matching the teacher's behavior.
func SetVerbose(verbose bool) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	verboseMode = verbose
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// IsVerbose returns the current verbose mode.
func IsVerbose() bool {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	return verboseMode
}

// Logger is a named handle onto the shared zerolog writer — one per
// connection or component, the way the teacher minted one Logger per test
// actor. Call shape (Log/Debug/Info/Warning/Error/Fatal) is preserved so
// existing callers (pkg/h2script, pkg/barrier, pkg/http1) are unaffected.
type Logger struct {
	mu sync.Mutex
	id string
	lg zerolog.Logger
}

// NewLogger creates a logger tagged with id, attached as a zerolog field
// so multiple components' interleaved output stays attributable.
func NewLogger(id string) *Logger {
	return &Logger{id: id, lg: baseLogger.With().Str("component", id).Logger()}
}

// Log writes a formatted message at the given level (see the Level*
// constants).
func (l *Logger) Log(level int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelFatal:
		l.lg.Error().Str("severity", "fatal").Msg(msg)
		panic("FATAL: " + msg)
	case LevelError:
		l.lg.Error().Msg(msg)
	case LevelWarning:
		l.lg.Warn().Msg(msg)
	case LevelInfo:
		l.lg.Info().Msg(msg)
	case LevelDebug:
		l.lg.Debug().Msg(msg)
	default:
		l.lg.Info().Msg(msg)
	}
}

// Logf is a Log alias kept for the teacher's call sites that still spell
// it this way.
func (l *Logger) Logf(level int, format string, args ...interface{}) { l.Log(level, format, args...) }

func (l *Logger) Fatal(format string, args ...interface{})   { l.Log(LevelFatal, format, args...) }
func (l *Logger) Error(format string, args ...interface{})   { l.Log(LevelError, format, args...) }
func (l *Logger) Warning(format string, args ...interface{}) { l.Log(LevelWarning, format, args...) }
func (l *Logger) Info(format string, args ...interface{})    { l.Log(LevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...interface{})   { l.Log(LevelDebug, format, args...) }

// WithStreamID returns a child logger with a stream_id field attached, the
// way h2mux's muxreader.go tags each log line with its stream.
func (l *Logger) WithStreamID(id uint32) *Logger {
	return &Logger{id: l.id, lg: l.lg.With().Uint32("stream_id", id).Logger()}
}

// Dump logs a short, safely-quoted excerpt of a string payload at the
// given level.
func (l *Logger) Dump(level int, prefix string, data string, length int) {
	if length < 0 || length > len(data) {
		length = len(data)
	}
	l.Log(level, "%s|%s", prefix, quoteString(data[:length]))
}

// Hexdump logs up to 512 bytes of binary data as hex, at the given level.
func (l *Logger) Hexdump(level int, prefix string, data []byte) {
	n := len(data)
	if n > 512 {
		n = 512
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, " %02x", data[i])
	}
	if len(data) > 512 {
		b.WriteString(" ...")
	}
	l.Log(level, "%s|%s", prefix, b.String())
}

// ID returns the logger's component tag.
func (l *Logger) ID() string { return l.id }

// SetID retags the logger, attaching a fresh zerolog field.
func (l *Logger) SetID(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.id = strings.TrimSpace(id)
	l.lg = baseLogger.With().Str("component", l.id).Logger()
}

func quoteString(s string) string {
	var buf strings.Builder
	for _, c := range s {
		switch {
		case c == '\n':
			buf.WriteString("\\n")
		case c == '\r':
			buf.WriteString("\\r")
		case c == '\t':
			buf.WriteString("\\t")
		case c == '\\':
			buf.WriteString("\\\\")
		case c == '"':
			buf.WriteString("\\\"")
		case c >= 32 && c < 127:
			buf.WriteRune(c)
		default:
			fmt.Fprintf(&buf, "\\x%02x", c)
		}
	}
	return buf.String()
}
