package alert

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// StdoutAlerter prints events to stdout.
type StdoutAlerter struct {
	out io.Writer
}

// NewStdoutAlerter creates a new stdout alerter.
func NewStdoutAlerter() *StdoutAlerter {
	return &StdoutAlerter{out: os.Stdout}
}

// Name returns "stdout".
func (s *StdoutAlerter) Name() string {
	return "stdout"
}

// Send prints the event to stdout.
func (s *StdoutAlerter) Send(_ context.Context, event Event) error {
	icon := severityIcon(event.Severity)
	ts := event.Timestamp.Format(time.RFC3339)

	fmt.Fprintf(s.out, "%s [%s] %s %s: %s\n", icon, ts, event.EventType, event.Place.ID, event.Message)

	if event.Impact != nil && event.Impact.CutOffCount > 0 {
		fmt.Fprintf(s.out, "   Impact: %d places cut off from every exit\n", event.Impact.CutOffCount)
	}

	return nil
}

func severityIcon(severity string) string {
	switch severity {
	case SeverityCritical:
		return "[CRIT]"
	case SeverityWarning:
		return "[WARN]"
	case SeverityInfo:
		return "[INFO]"
	default:
		return "[----]"
	}
}
