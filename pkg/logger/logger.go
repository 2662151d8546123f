// Package logger is the structured logging seam used by the payment interceptor.
package logger

// Logger receives structured events. Field values must be safe to render.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NoopLogger discards everything
type NoopLogger struct{}

// Debug discards the event
func (NoopLogger) Debug(string, map[string]any) {}

// Info discards the event
func (NoopLogger) Info(string, map[string]any) {}

// Warn discards the event
func (NoopLogger) Warn(string, map[string]any) {}

// Error discards the event
func (NoopLogger) Error(string, map[string]any) {}

// With returns a Logger that adds fields to every event
func With(log Logger, fields map[string]any) Logger {
	if log == nil {
		return NoopLogger{}
	}
	return &fieldLogger{next: log, fields: fields}
}

type fieldLogger struct {
	next   Logger
	fields map[string]any
}

func (l *fieldLogger) merge(fields map[string]any) map[string]any {
	out := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (l *fieldLogger) Debug(msg string, fields map[string]any) { l.next.Debug(msg, l.merge(fields)) }
func (l *fieldLogger) Info(msg string, fields map[string]any)  { l.next.Info(msg, l.merge(fields)) }
func (l *fieldLogger) Warn(msg string, fields map[string]any)  { l.next.Warn(msg, l.merge(fields)) }
func (l *fieldLogger) Error(msg string, fields map[string]any) { l.next.Error(msg, l.merge(fields)) }
