// Package notify publishes broken links found by a run as JSON events on NATS,
// for downstream consumers such as issue trackers or chat bots.
package notify

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/checklinks/internal/report"
)

// BrokenLinkEvent describes one broken link occurrence.
type BrokenLinkEvent struct {
	RunID      string    `json:"run_id"`
	SourceFile string    `json:"source_file"`
	Line       int       `json:"line"`
	Column     int       `json:"column"`
	Raw        string    `json:"raw"`              // Link as written
	Target     string    `json:"target"`           // Resolved target
	Result     string    `json:"result"`           // e.g. "broken(http-status 404)"
	Error      string    `json:"error"`            // Error kind
	Status     int       `json:"status,omitempty"` // HTTP status code, 0 without a response
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ID identifies the event within its run; JetStream uses it to drop
// duplicate publishes.
func (e *BrokenLinkEvent) ID() string {
	return fmt.Sprintf("%s:%s:%d:%d", e.RunID, e.SourceFile, e.Line, e.Column)
}

// EventsFromReport builds one event per broken occurrence of rep.
func EventsFromReport(rep *report.Report, now time.Time) []*BrokenLinkEvent {
	broken := rep.Broken()
	events := make([]*BrokenLinkEvent, 0, len(broken))
	for _, e := range broken {
		events = append(events, &BrokenLinkEvent{
			RunID:      rep.Summary.RunID,
			SourceFile: e.File,
			Line:       e.Line,
			Column:     e.Column,
			Raw:        e.Raw,
			Target:     e.Target.String(),
			Result:     e.Outcome.Label(),
			Error:      e.Outcome.Error.String(),
			Status:     e.Outcome.StatusCode,
			Detail:     e.Outcome.Detail,
			Timestamp:  now,
		})
	}
	return events
}
