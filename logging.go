package corert

import (
	"fmt"
	"io"
	"time"

	"github.com/joeycumines/logiface"
)

// LogLevel is corert's coarse logging severity, independent of whatever
// backend Logger adapts to.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String implements fmt.Stringer.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

// LogEntry is one structured record emitted by an Executor: scheduling
// transitions (spawn, wake, steal), I/O worker completions, and panics
// recovered from thread-pool jobs.
type LogEntry struct {
	Level      LogLevel
	Category   string // "schedule", "io", "threadpool", "sleep"
	ExecutorID uint64
	TaskID     uint64
	Message    string
	Err        error
	Timestamp  time.Time
}

// Logger is the structured logging interface an Executor reports through.
//
// Grounded on eventloop's own Logger interface (logging.go), kept narrow
// (two methods) rather than adopting that file's much larger
// global-logger/functional-option surface, which belongs to a package that
// exposes logging as a top-level feature; here it is purely an
// Executor-internal concern threaded in through WithLogger.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards every entry, the default
// when no WithLogger option is supplied.
func NewNoopLogger() Logger { return noopLogger{} }

func (noopLogger) Log(LogEntry) {}

func (noopLogger) IsEnabled(LogLevel) bool { return false }

// logEvent is corert's logiface.Event implementation: a flat field map
// plus message/error/level, good enough for the text writer below and for
// any of logiface's other backend modules (zerolog, logrus, stumpy, slog)
// a caller might swap in instead via a custom Option.
type logEvent struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	fields map[string]any
	msg    string
	err    error
}

func (e *logEvent) Level() logiface.Level { return e.level }

func (e *logEvent) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = make(map[string]any, 4)
	}
	e.fields[key] = val
}

func (e *logEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

func (e *logEvent) AddError(err error) bool {
	e.err = err
	return true
}

type logEventFactory struct{}

func (logEventFactory) NewEvent(level logiface.Level) *logEvent {
	return &logEvent{level: level}
}

func toLogifaceLevel(l LogLevel) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// logifaceLogger adapts corert's Logger interface onto a
// logiface.Logger[*logEvent], letting WithLogger(NewLogifaceLogger(...))
// hand entries to any of the logiface ecosystem's writer backends.
type logifaceLogger struct {
	l *logiface.Logger[*logEvent]
}

// NewLogifaceLogger builds a Logger that writes newline-delimited
// key=value records to out via logiface, the package this codebase itself
// depends on for structured logging.
func NewLogifaceLogger(out io.Writer) Logger {
	writer := logiface.NewWriterFunc[*logEvent](func(event *logEvent) error {
		if _, err := fmt.Fprintf(out, "level=%s", event.Level()); err != nil {
			return err
		}
		if event.msg != "" {
			if _, err := fmt.Fprintf(out, " msg=%q", event.msg); err != nil {
				return err
			}
		}
		for k, v := range event.fields {
			if _, err := fmt.Fprintf(out, " %s=%v", k, v); err != nil {
				return err
			}
		}
		if event.err != nil {
			if _, err := fmt.Fprintf(out, " err=%q", event.err.Error()); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(out)
		return err
	})
	l := logiface.New[*logEvent](
		logiface.WithEventFactory[*logEvent](logEventFactory{}),
		logiface.WithWriter[*logEvent](writer),
	)
	return &logifaceLogger{l: l}
}

func (a *logifaceLogger) IsEnabled(level LogLevel) bool {
	return a.l.Level().Enabled() && toLogifaceLevel(level) <= a.l.Level()
}

func (a *logifaceLogger) Log(entry LogEntry) {
	b := a.l.Build(toLogifaceLevel(entry.Level))
	if b == nil {
		return
	}
	b = b.
		Uint64("executor_id", entry.ExecutorID).
		Uint64("task_id", entry.TaskID).
		Str("category", entry.Category)
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
