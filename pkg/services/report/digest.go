// Package report folds an audit log stream back into a per-run digest. It
// is a pure consumer: the run is reconstructed from log entries alone, the
// same way downstream notification tooling consumes the files.
package report

import (
	"sort"
	"time"

	"github.com/de-tools/site-warden/pkg/models/domain"
)

// ResourceDigest aggregates one resource type across all sites of a run.
type ResourceDigest struct {
	Resource      domain.ResourceType
	RecordCount   int
	FlaggedCount  int
	WarningCount  int
	FailedPasses  int
	FlaggedBySite map[string]int
}

// Digest is the reconstructed view of one run.
type Digest struct {
	RunID        string
	FirstEntry   time.Time
	LastEntry    time.Time
	Status       domain.RunStatus
	LogOnly      bool
	SitesScanned int
	RecordCount  int
	FlaggedCount int
	WarningCount int
	ErrorCount   int
	Shortfall    bool
	Resources    []ResourceDigest
}

// Build folds the entries of one run into a digest. Entries may arrive in
// any order; only the run summary entry, when present, contributes the
// authoritative totals.
func Build(entries []domain.LogEntry) Digest {
	var digest Digest
	byResource := make(map[domain.ResourceType]*ResourceDigest)

	resource := func(rt domain.ResourceType) *ResourceDigest {
		rd, ok := byResource[rt]
		if !ok {
			rd = &ResourceDigest{Resource: rt, FlaggedBySite: make(map[string]int)}
			byResource[rt] = rd
		}
		return rd
	}

	for _, entry := range entries {
		if digest.RunID == "" {
			digest.RunID = entry.RunID
		}
		if digest.FirstEntry.IsZero() || entry.Timestamp.Before(digest.FirstEntry) {
			digest.FirstEntry = entry.Timestamp
		}
		if entry.Timestamp.After(digest.LastEntry) {
			digest.LastEntry = entry.Timestamp
		}

		switch entry.Event {
		case domain.EventFlaggedRecord:
			rd := resource(entry.Resource)
			rd.FlaggedCount++
			rd.FlaggedBySite[entry.Site]++
		case domain.EventDataQuality:
			resource(entry.Resource).WarningCount++
		case domain.EventScanFailure:
			resource(entry.Resource).FailedPasses++
		case domain.EventEnumShortfall:
			digest.Shortfall = true
		case domain.EventScanSummary:
			rd := resource(entry.Resource)
			rd.RecordCount += payloadInt(entry.Payload, "record_count")
		case domain.EventRunSummary:
			digest.Status = domain.RunStatus(payloadString(entry.Payload, "status"))
			digest.LogOnly = payloadBool(entry.Payload, "log_only")
			digest.SitesScanned = payloadInt(entry.Payload, "sites_scanned")
			digest.RecordCount = payloadInt(entry.Payload, "record_count")
			digest.FlaggedCount = payloadInt(entry.Payload, "stale_count")
			digest.WarningCount = payloadInt(entry.Payload, "warning_count")
			digest.ErrorCount = payloadInt(entry.Payload, "error_count")
		}
	}

	for _, rd := range byResource {
		digest.Resources = append(digest.Resources, *rd)
	}
	sort.Slice(digest.Resources, func(i, j int) bool {
		return digest.Resources[i].Resource < digest.Resources[j].Resource
	})

	// A truncated stream (no run summary entry) still yields usable counts.
	if digest.Status == "" {
		for _, rd := range digest.Resources {
			digest.FlaggedCount += rd.FlaggedCount
			digest.WarningCount += rd.WarningCount
			digest.RecordCount += rd.RecordCount
		}
	}
	return digest
}

// JSON payloads decode numbers as float64; tolerate both.
func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func payloadBool(payload map[string]any, key string) bool {
	v, _ := payload[key].(bool)
	return v
}
