package domain

import "time"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type EventType string

const (
	EventScanSummary     EventType = "scan_summary"
	EventFlaggedRecord   EventType = "flagged_record"
	EventDataQuality     EventType = "data_quality_warning"
	EventEnumShortfall   EventType = "enumeration_shortfall"
	EventScanFailure     EventType = "scan_failure"
	EventRunSummary      EventType = "run_summary"
)

// LogEntry is one append-only audit record. RunID is the correlation
// identifier shared by every entry of a run, so downstream tooling can
// reconstruct the full run from the log stream alone. Entries are immutable
// once written.
type LogEntry struct {
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Severity  Severity       `json:"severity"`
	Event     EventType      `json:"event"`
	Resource  ResourceType   `json:"resource,omitempty"`
	Site      string         `json:"site,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}
