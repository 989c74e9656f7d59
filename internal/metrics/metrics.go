// Package metrics provides a minimal instrumentation interface with a no-op
// default and a Prometheus-backed implementation.
package metrics

import (
	"sync"
	"time"
)

// Query outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	IncQueryTotal(kind, outcome string)
	ObserveQuerySeconds(kind, outcome string, seconds float64)
	IncHazardTotal(action string)
	SetActiveHazards(n int)
	IncToolTotal(tool string, success bool)
	ObserveToolSeconds(tool string, success bool, seconds float64)
}

// noopRecorder implements Recorder with no-ops.
type noopRecorder struct{}

func (n *noopRecorder) IncQueryTotal(string, string)                {}
func (n *noopRecorder) ObserveQuerySeconds(string, string, float64) {}
func (n *noopRecorder) IncHazardTotal(string)                       {}
func (n *noopRecorder) SetActiveHazards(int)                        {}
func (n *noopRecorder) IncToolTotal(string, bool)                   {}
func (n *noopRecorder) ObserveToolSeconds(string, bool, float64)    {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	recorder = r
}

// TimeQuery times a route or evacuation query. The returned func records
// the outcome.
func TimeQuery(kind string) func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		dur := time.Since(start).Seconds()
		Default().IncQueryTotal(kind, outcome)
		Default().ObserveQuerySeconds(kind, outcome, dur)
	}
}

// TimeTool is a helper to time MCP tool handlers.
func TimeTool(tool string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncToolTotal(tool, success)
		Default().ObserveToolSeconds(tool, success, dur)
	}
}
