package alert

import (
	"context"
	"time"
)

// Event types emitted by the wayfinder.
const (
	EventHazardDeclared = "hazard_declared"
	EventHazardCleared  = "hazard_cleared"
	EventNoSafeTarget   = "no_safe_target"
)

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Event represents an alert event sent to alerting backends.
type Event struct {
	Source    string    `json:"source"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"`
	Place     Place     `json:"place"`
	Hazard    *Hazard   `json:"hazard,omitempty"`
	Impact    *Impact   `json:"impact,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Place is the node or connection an event is about. Connections use
// their edge key as ID.
type Place struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Type  string `json:"type"`
}

// Hazard carries the blocked connection for hazard events.
type Hazard struct {
	ID        int64  `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Impact describes which places lost every route to safety.
type Impact struct {
	CutOffCount int      `json:"cut_off_count"`
	CutOff      []string `json:"cut_off"`
}

// Alerter defines the interface for sending alert events.
type Alerter interface {
	// Name returns the alerter identifier.
	Name() string

	// Send dispatches an event to the alerting backend.
	Send(ctx context.Context, event Event) error
}

// Multi sends events to multiple alerters.
type Multi struct {
	alerters []Alerter
}

// NewMulti creates a multi-alerter that dispatches to all backends.
func NewMulti(alerters ...Alerter) *Multi {
	return &Multi{alerters: alerters}
}

// Name returns "multi".
func (m *Multi) Name() string {
	return "multi"
}

// Len returns the number of configured backends.
func (m *Multi) Len() int {
	return len(m.alerters)
}

// Send dispatches the event to all configured alerters.
func (m *Multi) Send(ctx context.Context, event Event) error {
	var lastErr error
	for _, a := range m.alerters {
		if err := a.Send(ctx, event); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
