package domain

type ReasonCode string

const (
	// ReasonAged marks an age-based record whose age met or exceeded the
	// threshold.
	ReasonAged ReasonCode = "aged"
	// ReasonWithinWindow marks a schedule-based record whose run time falls
	// inside the configured peak-hours window.
	ReasonWithinWindow ReasonCode = "within-window"
	// ReasonMissingData marks a record with no activity timestamp. Such
	// records are never flagged stale; they carry a data-quality warning and
	// are excluded from stale counts.
	ReasonMissingData ReasonCode = "missing-data"
)

// Verdict is the outcome of evaluating one record against policy. For
// schedule-based types Stale means "runs inside the peak window" and AgeDays
// is always zero.
type Verdict struct {
	Stale   bool       `json:"stale"`
	AgeDays int        `json:"age_days"`
	Reason  ReasonCode `json:"reason,omitempty"`
}

// Warning reports whether the verdict is a data-quality warning rather than
// a policy outcome.
func (v Verdict) Warning() bool {
	return v.Reason == ReasonMissingData
}
