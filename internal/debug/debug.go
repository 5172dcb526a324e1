package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (connection, sequence results)
	LevelLive    = 2 // Live info (events, property changes)
	LevelVerbose = 3 // Verbose (sequence steps, decoded values)
	LevelTrace   = 4 // Trace (transport calls, GPIO)
)

// slog levels used for the intermediate debug levels.
const (
	slogLive    = slog.LevelInfo - 2
	slogVerbose = slog.LevelDebug
	slogTrace   = slog.LevelDebug - 4
	slogOff     = slog.LevelError + 100
)

// Logger is a leveled logger built on log/slog.
// A nil *Logger is valid and discards everything.
type Logger struct {
	level int
	out   *switchWriter
	log   *slog.Logger
}

// New creates a logger writing to w at the given level (0-4).
// 0 = no output
// 1 = important info (connection, sequence results)
// 2 = live info (events, property changes)
// 3 = verbose (sequence steps, decoded values)
// 4 = trace (transport calls, GPIO)
func New(level int, w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	out := &switchWriter{w: w}
	h := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:       toSlog(level),
		ReplaceAttr: replaceLevel,
	})
	return &Logger{
		level: level,
		out:   out,
		log:   slog.New(h).With("app", "remocam"),
	}
}

// Discard returns a logger with output disabled.
func Discard() *Logger {
	return New(LevelOff, io.Discard)
}

func toSlog(level int) slog.Level {
	switch {
	case level <= LevelOff:
		return slogOff
	case level == LevelInfo:
		return slog.LevelInfo
	case level == LevelLive:
		return slogLive
	case level == LevelVerbose:
		return slogVerbose
	default:
		return slogTrace
	}
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	lvl, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch lvl {
	case slogLive:
		a.Value = slog.StringValue("LIVE")
	case slogVerbose:
		a.Value = slog.StringValue("VERBOSE")
	case slogTrace:
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// Level returns the configured debug level.
func (l *Logger) Level() int {
	if l == nil {
		return LevelOff
	}
	return l.level
}

// IsEnabled returns true if debug level is >= the requested level.
func (l *Logger) IsEnabled(minLevel int) bool {
	return l.Level() >= minLevel
}

// SetOutput redirects all subsequent output to w.
func (l *Logger) SetOutput(w io.Writer) {
	if l == nil {
		return
	}
	l.out.set(w)
}

// Slog exposes the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l.log
}

// With returns a logger that adds attrs to every record.
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{level: l.level, out: l.out, log: l.log.With(args...)}
}

func (l *Logger) emit(min int, lvl slog.Level, format string, args ...any) {
	if l == nil || l.level < min {
		return
	}
	l.log.Log(context.Background(), lvl, fmt.Sprintf(format, args...))
}

// Info prints a level 1 message (important info).
func (l *Logger) Info(format string, args ...any) {
	l.emit(LevelInfo, slog.LevelInfo, format, args...)
}

// Warn prints a level 1 warning.
func (l *Logger) Warn(format string, args ...any) {
	l.emit(LevelInfo, slog.LevelWarn, format, args...)
}

// Live prints a level 2 message (live info).
func (l *Logger) Live(format string, args ...any) {
	l.emit(LevelLive, slogLive, format, args...)
}

// Verbose prints a level 3 message.
func (l *Logger) Verbose(format string, args ...any) {
	l.emit(LevelVerbose, slogVerbose, format, args...)
}

// Trace prints a level 4 message.
func (l *Logger) Trace(format string, args ...any) {
	l.emit(LevelTrace, slogTrace, format, args...)
}

// Section prints a section header (level 3).
func (l *Logger) Section(name string) {
	if l == nil || l.level < LevelVerbose {
		return
	}
	l.log.Log(context.Background(), slogVerbose, "section", "name", name)
}

// Step prints a numbered step (level 3).
func (l *Logger) Step(num int, description string) {
	if l == nil || l.level < LevelVerbose {
		return
	}
	l.log.Log(context.Background(), slogVerbose, description, "step", num)
}

// Value prints a named value (level 1).
func (l *Logger) Value(name string, value any) {
	if l == nil || l.level < LevelInfo {
		return
	}
	l.log.Info("value", "name", name, "value", value)
}

// GPIO prints a GPIO operation (level 4).
func (l *Logger) GPIO(operation string, pin int, value any) {
	if l == nil || l.level < LevelTrace {
		return
	}
	l.log.Log(context.Background(), slogTrace, "gpio", "op", operation, "pin", pin, "value", value)
}

// Error prints an error (level 1+).
func (l *Logger) Error(err error) {
	if l == nil || l.level < LevelInfo || err == nil {
		return
	}
	l.log.Error(err.Error())
}

// switchWriter lets SetOutput swap the destination of an existing handler.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
