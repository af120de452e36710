package domain

import "time"

// ScanItem pairs one scanned record with its verdict.
type ScanItem struct {
	Record  ResourceRecord `json:"record"`
	Verdict Verdict        `json:"verdict"`
}

// ScanResult is the finalized outcome of one (site, resource type) pass.
// Built incrementally by the scanner, finalized exactly once.
type ScanResult struct {
	Site        SiteDescriptor `json:"site"`
	Resource    ResourceType   `json:"resource"`
	Items       []ScanItem     `json:"items"`
	Duration    time.Duration  `json:"duration"`
	RecordCount int            `json:"record_count"`
	ErrorCount  int            `json:"error_count"`
	// Failed is set when the pass gave up after exhausting retries. Other
	// pairs of the run are unaffected.
	Failed bool `json:"failed,omitempty"`
}

// StaleCount returns the number of flagged records, excluding data-quality
// warnings.
func (r ScanResult) StaleCount() int {
	n := 0
	for _, it := range r.Items {
		if it.Verdict.Stale {
			n++
		}
	}
	return n
}

// WarningCount returns the number of data-quality warnings in the pass.
func (r ScanResult) WarningCount() int {
	n := 0
	for _, it := range r.Items {
		if it.Verdict.Warning() {
			n++
		}
	}
	return n
}

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// RunSummary aggregates one whole run across all sites and resource types.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	SitesScanned  int       `json:"sites_scanned"`
	PairsScanned  int       `json:"pairs_scanned"`
	PairsFailed   int       `json:"pairs_failed"`
	RecordCount   int       `json:"record_count"`
	StaleCount    int       `json:"stale_count"`
	WarningCount  int       `json:"warning_count"`
	ErrorCount    int       `json:"error_count"`
	LogOnly       bool      `json:"log_only"`
	Status        RunStatus `json:"status"`
}
