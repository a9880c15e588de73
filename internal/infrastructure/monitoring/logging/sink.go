package logging

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultSinkCapacity is the number of entries retained by NewMemorySink when
// a non-positive capacity is requested.
const DefaultSinkCapacity = 500

// Entry is one captured log record.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Stack     string                 `json:"stack,omitempty"`
}

// MemorySink keeps the most recent log entries in a bounded ring.  It backs the
// /api/v1/logs endpoint and the CLI's --show-log output.
type MemorySink struct {
	mu      sync.Mutex
	buf     []Entry
	start   int
	size    int
	dropped int64
}

// NewMemorySink creates a sink holding up to capacity entries.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = DefaultSinkCapacity
	}
	return &MemorySink{buf: make([]Entry, capacity)}
}

// Capacity returns the ring size.
func (s *MemorySink) Capacity() int { return len(s.buf) }

func (s *MemorySink) append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size < len(s.buf) {
		s.buf[(s.start+s.size)%len(s.buf)] = e
		s.size++
		return
	}
	s.buf[s.start] = e
	s.start = (s.start + 1) % len(s.buf)
	s.dropped++
}

// Entries returns a copy of the retained entries, oldest first.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.buf[(s.start+i)%len(s.buf)]
	}
	return out
}

// Len returns the number of retained entries.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Dropped returns how many entries were evicted by overflow since the last
// Clear.
func (s *MemorySink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Clear discards all retained entries.
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.buf {
		s.buf[i] = Entry{}
	}
	s.start, s.size, s.dropped = 0, 0, 0
}

func (s *MemorySink) core(level zapcore.LevelEnabler) zapcore.Core {
	return &sinkCore{LevelEnabler: level, sink: s}
}

// levelName maps zap levels onto the names shown by the debug log.
func levelName(l zapcore.Level) string {
	switch l {
	case zapcore.DebugLevel:
		return "DEBUG"
	case zapcore.InfoLevel:
		return "INFO"
	case zapcore.WarnLevel:
		return "WARNING"
	case zapcore.ErrorLevel:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// sinkCore is a zapcore.Core that records into a MemorySink.
type sinkCore struct {
	zapcore.LevelEnabler
	sink   *MemorySink
	fields []zapcore.Field
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &sinkCore{LevelEnabler: c.LevelEnabler, sink: c.sink, fields: merged}
}

func (c *sinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sinkCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	e := Entry{
		Timestamp: ent.Time,
		Level:     levelName(ent.Level),
		Logger:    ent.LoggerName,
		Message:   ent.Message,
		Stack:     ent.Stack,
	}
	if len(enc.Fields) > 0 {
		e.Fields = enc.Fields
	}
	c.sink.append(e)
	return nil
}

func (c *sinkCore) Sync() error { return nil }
