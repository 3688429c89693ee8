package metrics

import "time"

// Recorder reports domain events to Prometheus. It satisfies the workflow and cache recorder
// interfaces.
type Recorder struct{}

// NewRecorder returns the Prometheus recorder.
func NewRecorder() Recorder { return Recorder{} }

// StepFinished records a workflow step outcome.
func (Recorder) StepFinished(capability, outcome string, duration time.Duration) {
	CapabilityRunsTotal.WithLabelValues(capability, outcome).Inc()
	if outcome != "skipped" {
		CapabilityDuration.WithLabelValues(capability).Observe(duration.Seconds())
	}
}

// CacheLookup records a response cache hit or miss.
func (Recorder) CacheLookup(capability string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(capability, result).Inc()
}

// CacheError records a swallowed cache error.
func (Recorder) CacheError(op string) {
	CacheErrorsTotal.WithLabelValues(op).Inc()
}
