package api

import "time"

type RunSummary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	SitesScanned int       `json:"sites_scanned"`
	PairsScanned int       `json:"pairs_scanned"`
	PairsFailed  int       `json:"pairs_failed"`
	RecordCount  int       `json:"record_count"`
	StaleCount   int       `json:"stale_count"`
	WarningCount int       `json:"warning_count"`
	ErrorCount   int       `json:"error_count"`
	LogOnly      bool      `json:"log_only"`
	Status       string    `json:"status"`
}

type ResourceDigest struct {
	Resource      string         `json:"resource"`
	RecordCount   int            `json:"record_count"`
	FlaggedCount  int            `json:"flagged_count"`
	WarningCount  int            `json:"warning_count"`
	FailedPasses  int            `json:"failed_passes"`
	FlaggedBySite map[string]int `json:"flagged_by_site,omitempty"`
}

type RunDigest struct {
	RunID        string           `json:"run_id"`
	Status       string           `json:"status"`
	LogOnly      bool             `json:"log_only"`
	SitesScanned int              `json:"sites_scanned"`
	RecordCount  int              `json:"record_count"`
	FlaggedCount int              `json:"flagged_count"`
	WarningCount int              `json:"warning_count"`
	ErrorCount   int              `json:"error_count"`
	Shortfall    bool             `json:"shortfall,omitempty"`
	Resources    []ResourceDigest `json:"resources"`
}
