package scan

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/de-tools/site-warden/pkg/models/domain"
	"github.com/de-tools/site-warden/pkg/store/rest"
)

// Capability abstracts one resource type's scanning concerns: fetching a
// page of raw records for a cursor, and mapping them — including activity
// timestamp extraction — into domain records. The scanner drives any
// capability the same way, which is what keeps pagination and retry logic
// in one place.
type Capability interface {
	Resource() domain.ResourceType
	// FetchPage returns the records for the cursor and the cursor of the
	// next page ("" when the listing is complete). Cursors are durable:
	// reissuing one yields the same page.
	FetchPage(ctx context.Context, site domain.SiteDescriptor, cursor string, pageSize int) ([]domain.ResourceRecord, string, error)
}

// Capabilities returns the capability set for the requested resource types,
// bound to the given client.
func Capabilities(client *rest.Client, types []domain.ResourceType) ([]Capability, error) {
	caps := make([]Capability, 0, len(types))
	for _, rt := range types {
		switch rt {
		case domain.ResourceUsers:
			caps = append(caps, &userCapability{client: client})
		case domain.ResourceWorkbooks:
			caps = append(caps, &workbookCapability{client: client})
		case domain.ResourceDatasources:
			caps = append(caps, &datasourceCapability{client: client})
		case domain.ResourceSites:
			caps = append(caps, &siteCapability{client: client})
		case domain.ResourceExtracts:
			caps = append(caps, &extractCapability{client: client})
		default:
			return nil, fmt.Errorf("unknown resource type %q", rt)
		}
	}
	return caps, nil
}

type userCapability struct {
	client *rest.Client
}

func (c *userCapability) Resource() domain.ResourceType { return domain.ResourceUsers }

func (c *userCapability) FetchPage(ctx context.Context, site domain.SiteDescriptor, cursor string, pageSize int) ([]domain.ResourceRecord, string, error) {
	users, next, err := c.client.ListUsers(ctx, site.ID, cursor, pageSize)
	if err != nil {
		return nil, "", err
	}
	records := make([]domain.ResourceRecord, 0, len(users))
	for _, u := range users {
		records = append(records, domain.ResourceRecord{
			Type:           domain.ResourceUsers,
			ID:             u.ID,
			Name:           u.Name,
			LastActivityAt: u.LastLogin,
			Metadata: nonEmpty(map[string]string{
				"full_name": u.FullName,
				"email":     u.Email,
				"domain":    u.Domain,
			}),
		})
	}
	return records, next, nil
}

type workbookCapability struct {
	client *rest.Client
}

func (c *workbookCapability) Resource() domain.ResourceType { return domain.ResourceWorkbooks }

func (c *workbookCapability) FetchPage(ctx context.Context, site domain.SiteDescriptor, cursor string, pageSize int) ([]domain.ResourceRecord, string, error) {
	workbooks, next, err := c.client.ListWorkbooks(ctx, site.ID, cursor, pageSize)
	if err != nil {
		return nil, "", err
	}
	records := make([]domain.ResourceRecord, 0, len(workbooks))
	for _, wb := range workbooks {
		records = append(records, domain.ResourceRecord{
			Type:           domain.ResourceWorkbooks,
			ID:             wb.ID,
			Name:           wb.Name,
			Owner:          wb.OwnerID,
			LastActivityAt: wb.UpdatedAt,
			Metadata: nonEmpty(map[string]string{
				"project":    wb.Project,
				"size_bytes": formatSize(wb.SizeBytes),
			}),
		})
	}
	return records, next, nil
}

type datasourceCapability struct {
	client *rest.Client
}

func (c *datasourceCapability) Resource() domain.ResourceType { return domain.ResourceDatasources }

func (c *datasourceCapability) FetchPage(ctx context.Context, site domain.SiteDescriptor, cursor string, pageSize int) ([]domain.ResourceRecord, string, error) {
	datasources, next, err := c.client.ListDatasources(ctx, site.ID, cursor, pageSize)
	if err != nil {
		return nil, "", err
	}
	records := make([]domain.ResourceRecord, 0, len(datasources))
	for _, ds := range datasources {
		records = append(records, domain.ResourceRecord{
			Type:           domain.ResourceDatasources,
			ID:             ds.ID,
			Name:           ds.Name,
			Owner:          ds.OwnerID,
			LastActivityAt: ds.UpdatedAt,
			Metadata: nonEmpty(map[string]string{
				"project":    ds.Project,
				"size_bytes": formatSize(ds.SizeBytes),
			}),
		})
	}
	return records, next, nil
}

// siteCapability is server-level: it lists the deployment's sites as
// records, so site staleness flows through the same scanner/evaluator path
// as every other type. The site argument is ignored.
type siteCapability struct {
	client *rest.Client
}

func (c *siteCapability) Resource() domain.ResourceType { return domain.ResourceSites }

func (c *siteCapability) FetchPage(ctx context.Context, _ domain.SiteDescriptor, cursor string, pageSize int) ([]domain.ResourceRecord, string, error) {
	sites, next, err := c.client.ListSites(ctx, cursor, pageSize)
	if err != nil {
		return nil, "", err
	}
	records := make([]domain.ResourceRecord, 0, len(sites))
	for _, s := range sites {
		// The freshest of updated/created counts as activity.
		activity := s.UpdatedAt
		if activity == nil {
			activity = s.CreatedAt
		}
		records = append(records, domain.ResourceRecord{
			Type:           domain.ResourceSites,
			ID:             s.ID,
			Name:           s.Name,
			LastActivityAt: activity,
			Metadata: nonEmpty(map[string]string{
				"content_url": s.ContentURL,
				"state":       s.State,
			}),
		})
	}
	return records, next, nil
}

type extractCapability struct {
	client *rest.Client
}

func (c *extractCapability) Resource() domain.ResourceType { return domain.ResourceExtracts }

func (c *extractCapability) FetchPage(ctx context.Context, site domain.SiteDescriptor, cursor string, pageSize int) ([]domain.ResourceRecord, string, error) {
	tasks, next, err := c.client.ListTasks(ctx, site.ID, cursor, pageSize)
	if err != nil {
		return nil, "", err
	}
	records := make([]domain.ResourceRecord, 0, len(tasks))
	for _, task := range tasks {
		records = append(records, domain.ResourceRecord{
			Type:        domain.ResourceExtracts,
			ID:          task.ID,
			Name:        task.ScheduleName,
			ScheduledAt: parseRunAt(task.RunAt),
			Metadata: nonEmpty(map[string]string{
				"schedule_state": task.ScheduleState,
				"target_type":    task.TargetType,
				"target_name":    task.TargetName,
			}),
		})
	}
	return records, next, nil
}

// parseRunAt parses "HH:MM"; nil when the schedule time was not readable,
// which the evaluator reports as a data-quality warning.
func parseRunAt(v string) *domain.TimeOfDay {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return nil
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil
	}
	return &domain.TimeOfDay{Hour: hour, Minute: minute}
}

func formatSize(n int64) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

func nonEmpty(m map[string]string) map[string]string {
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
