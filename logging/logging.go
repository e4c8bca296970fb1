package logging

import (
	"context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"time"
)

// publishBuffer is the amount of log entries to buffer before dropping new
// ones.
const publishBuffer = 256

// OmitPublishKey is a field key that, when set on a log entry, prevents the
// entry from being published. This avoids loops when logging failures of the
// publishing itself.
const OmitPublishKey = "omit_publish"

// OmitPublish returns the field that marks an entry as not to be published.
func OmitPublish() zap.Field {
	return zap.Bool(OmitPublishKey, true)
}

// LogEntry is a log entry that is forwarded for publishing.
type LogEntry struct {
	// Time is the timestamp of the entry.
	Time time.Time
	// Level is the log level.
	Level zapcore.Level
	// LoggerName is the name of the logger that created the entry.
	LoggerName string
	// Message of the entry.
	Message string
	// Fields holds all fields of the entry.
	Fields map[string]interface{}
}

// publishCore is a zapcore.Core that forwards entries to a channel.
type publishCore struct {
	zapcore.LevelEnabler
	ctx    context.Context
	fields []zapcore.Field
	out    chan<- LogEntry
}

// NewPublishCore creates a zapcore.Core that forwards entries with at least
// the given level to the returned channel until the context.Context is done.
// Entries are dropped if the channel is full, so that logging never blocks an
// arena.
func NewPublishCore(ctx context.Context, level zapcore.LevelEnabler) (zapcore.Core, <-chan LogEntry) {
	out := make(chan LogEntry, publishBuffer)
	return &publishCore{
		LevelEnabler: level,
		ctx:          ctx,
		out:          out,
	}, out
}

func (c *publishCore) With(fields []zapcore.Field) zapcore.Core {
	combined := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	combined = append(combined, c.fields...)
	combined = append(combined, fields...)
	return &publishCore{
		LevelEnabler: c.LevelEnabler,
		ctx:          c.ctx,
		fields:       combined,
		out:          c.out,
	}
}

func (c *publishCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *publishCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	if omit, ok := enc.Fields[OmitPublishKey].(bool); ok && omit {
		return nil
	}
	select {
	case <-c.ctx.Done():
	case c.out <- LogEntry{
		Time:       entry.Time,
		Level:      entry.Level,
		LoggerName: entry.LoggerName,
		Message:    entry.Message,
		Fields:     enc.Fields,
	}:
	default:
		// Full.
	}
	return nil
}

func (c *publishCore) Sync() error {
	return nil
}
