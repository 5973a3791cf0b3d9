// Package eventlog carries the run's operator-facing log stream: structured
// events with a level and timestamp, plus a distinct alert category that the
// consuming surface treats as a run-terminating error.
package eventlog

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one timestamped log line. Alert marks the terminal-error category;
// it is never set on ordinary error lines.
type Event struct {
	Time    time.Time
	Level   Level
	Message string
	Alert   bool
	RunID   string
}

// Sink consumes events. Emit must be safe for concurrent use: the session
// keeper and the orchestrator log from separate goroutines.
type Sink interface {
	Emit(Event)
}

// Logger stamps events with the run identifier and fans them out to a sink.
type Logger struct {
	sink  Sink
	runID string
	now   func() time.Time
}

func New(sink Sink) *Logger {
	return &Logger{sink: sink, runID: uuid.NewString(), now: time.Now}
}

func (l *Logger) RunID() string { return l.runID }

func (l *Logger) emit(level Level, alert bool, format string, args ...any) {
	if l == nil || l.sink == nil {
		return
	}
	l.sink.Emit(Event{
		Time:    l.now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		Alert:   alert,
		RunID:   l.runID,
	})
}

func (l *Logger) Infof(format string, args ...any)  { l.emit(LevelInfo, false, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.emit(LevelWarn, false, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.emit(LevelError, false, format, args...) }

// Alertf emits the terminal-error event the operator surface must render
// distinctly and treat as end of run.
func (l *Logger) Alertf(format string, args ...any) { l.emit(LevelError, true, format, args...) }

// Buffer is a thread-safe ring buffer of events, retained so the operator
// surface can replay the run log after the fact.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Event
	capacity int
	head     int
	count    int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Buffer{entries: make([]Event, capacity), capacity: capacity}
}

func (b *Buffer) Emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.head] = e
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
}

// All returns the buffered events in chronological order.
func (b *Buffer) All() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, b.count)
	start := 0
	if b.count == b.capacity {
		start = b.head
	}
	for i := 0; i < b.count; i++ {
		out[i] = b.entries[(start+i)%b.capacity]
	}
	return out
}

// ZerologSink renders events through zerolog for console or JSON output.
type ZerologSink struct {
	log zerolog.Logger
}

func NewZerologSink(w io.Writer) *ZerologSink {
	return &ZerologSink{log: zerolog.New(w).With().Timestamp().Logger()}
}

func (s *ZerologSink) Emit(e Event) {
	var ev *zerolog.Event
	switch e.Level {
	case LevelWarn:
		ev = s.log.Warn()
	case LevelError:
		ev = s.log.Error()
	default:
		ev = s.log.Info()
	}
	if e.Alert {
		ev = ev.Bool("alert", true)
	}
	ev.Str("run_id", e.RunID).Msg(e.Message)
}

// Tee duplicates events to every sink in order.
func Tee(sinks ...Sink) Sink { return teeSink(sinks) }

type teeSink []Sink

func (t teeSink) Emit(e Event) {
	for _, s := range t {
		s.Emit(e)
	}
}
