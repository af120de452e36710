package domain

import "fmt"

type EnforcementMode string

const (
	ModeLogOnly EnforcementMode = "log_only"
	ModeCleanup EnforcementMode = "cleanup"
)

// TimeOfDay is a wall-clock position within a day, server-local.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// PeakWindow is an inclusive time-of-day interval during which refresh jobs
// should not run. Windows do not wrap midnight.
type PeakWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

func (w PeakWindow) Contains(t TimeOfDay) bool {
	m := t.Minutes()
	return m >= w.Start.Minutes() && m <= w.End.Minutes()
}

// Threshold is the policy applied to one resource type: an age threshold in
// days for age-based types, or a peak-hours window for schedule-based ones.
type Threshold struct {
	Resource ResourceType    `json:"resource"`
	Days     int             `json:"days"`
	Window   PeakWindow      `json:"window"`
	Mode     EnforcementMode `json:"mode"`
}
