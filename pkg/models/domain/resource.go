package domain

import "time"

type ResourceType string

const (
	ResourceUsers       ResourceType = "users"
	ResourceWorkbooks   ResourceType = "workbooks"
	ResourceDatasources ResourceType = "datasources"
	ResourceSites       ResourceType = "sites"
	ResourceExtracts    ResourceType = "extracts"
)

// AllResourceTypes returns the scannable types in their canonical scan order.
func AllResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceUsers,
		ResourceWorkbooks,
		ResourceDatasources,
		ResourceSites,
		ResourceExtracts,
	}
}

func (rt ResourceType) Valid() bool {
	switch rt {
	case ResourceUsers, ResourceWorkbooks, ResourceDatasources, ResourceSites, ResourceExtracts:
		return true
	}
	return false
}

// IsScheduleBased reports whether the type is evaluated against a
// time-of-day window rather than an age threshold.
func (rt ResourceType) IsScheduleBased() bool {
	return rt == ResourceExtracts
}

// SiteDescriptor identifies one site of the deployment. Immutable once
// enumerated.
type SiteDescriptor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ContentURL string `json:"content_url"`
}

// ResourceRecord is one scanned item. LastActivityAt is nil when the server
// never reported activity for the resource (fresh user that never signed in,
// workbook with no update timestamp); evaluation treats that as a
// data-quality case, never as staleness. ScheduledAt is only set for
// schedule-based types.
type ResourceRecord struct {
	Type           ResourceType      `json:"type"`
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Owner          string            `json:"owner,omitempty"`
	LastActivityAt *time.Time        `json:"last_activity_at,omitempty"`
	ScheduledAt    *TimeOfDay        `json:"scheduled_at,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}
