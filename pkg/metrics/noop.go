package metrics

import "time"

// NoopRecorder discards everything
type NoopRecorder struct{}

// IncCounter discards the event
func (NoopRecorder) IncCounter(string, map[string]string) {}

// ObserveLatency discards the sample
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
