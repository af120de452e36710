package rest

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// Wire types as the server reports them. Mapping into domain records —
// including which timestamp counts as "activity" — belongs to the
// per-resource capabilities in services/scan.

type SiteInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ContentURL string     `json:"content_url"`
	State      string     `json:"state"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type UserInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	FullName  string     `json:"full_name,omitempty"`
	Email     string     `json:"email,omitempty"`
	Domain    string     `json:"domain,omitempty"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type WorkbookInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Project   string     `json:"project,omitempty"`
	OwnerID   string     `json:"owner_id,omitempty"`
	SizeBytes int64      `json:"size_bytes,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type DatasourceInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Project   string     `json:"project,omitempty"`
	OwnerID   string     `json:"owner_id,omitempty"`
	SizeBytes int64      `json:"size_bytes,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type TaskInfo struct {
	ID            string     `json:"id"`
	ScheduleName  string     `json:"schedule_name,omitempty"`
	ScheduleState string     `json:"schedule_state,omitempty"`
	TargetType    string     `json:"target_type,omitempty"`
	TargetName    string     `json:"target_name,omitempty"`
	// RunAt is the configured start time in "HH:MM", server-local. Empty
	// when the schedule details were not readable.
	RunAt     string     `json:"run_at,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type sitesPage struct {
	Items []SiteInfo `json:"items"`
	Next  string     `json:"next,omitempty"`
}

type usersPage struct {
	Items []UserInfo `json:"items"`
	Next  string     `json:"next,omitempty"`
}

type workbooksPage struct {
	Items []WorkbookInfo `json:"items"`
	Next  string         `json:"next,omitempty"`
}

type datasourcesPage struct {
	Items []DatasourceInfo `json:"items"`
	Next  string           `json:"next,omitempty"`
}

type tasksPage struct {
	Items []TaskInfo `json:"items"`
	Next  string     `json:"next,omitempty"`
}

func pageQuery(cursor string, pageSize int) url.Values {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return q
}

// ListSites fetches one page of site descriptors. The returned cursor is
// opaque and durable: reissuing it yields the same next page, which is what
// lets a scan resume after a transient failure. An empty cursor starts from
// the beginning; an empty returned cursor means the listing is complete.
func (c *Client) ListSites(ctx context.Context, cursor string, pageSize int) ([]SiteInfo, string, error) {
	var page sitesPage
	if err := c.get(ctx, "/api/v1/sites", pageQuery(cursor, pageSize), &page); err != nil {
		return nil, "", err
	}
	return page.Items, page.Next, nil
}

func (c *Client) ListUsers(ctx context.Context, siteID, cursor string, pageSize int) ([]UserInfo, string, error) {
	var page usersPage
	if err := c.get(ctx, "/api/v1/sites/"+url.PathEscape(siteID)+"/users", pageQuery(cursor, pageSize), &page); err != nil {
		return nil, "", err
	}
	return page.Items, page.Next, nil
}

func (c *Client) ListWorkbooks(ctx context.Context, siteID, cursor string, pageSize int) ([]WorkbookInfo, string, error) {
	var page workbooksPage
	if err := c.get(ctx, "/api/v1/sites/"+url.PathEscape(siteID)+"/workbooks", pageQuery(cursor, pageSize), &page); err != nil {
		return nil, "", err
	}
	return page.Items, page.Next, nil
}

func (c *Client) ListDatasources(ctx context.Context, siteID, cursor string, pageSize int) ([]DatasourceInfo, string, error) {
	var page datasourcesPage
	if err := c.get(ctx, "/api/v1/sites/"+url.PathEscape(siteID)+"/datasources", pageQuery(cursor, pageSize), &page); err != nil {
		return nil, "", err
	}
	return page.Items, page.Next, nil
}

func (c *Client) ListTasks(ctx context.Context, siteID, cursor string, pageSize int) ([]TaskInfo, string, error) {
	var page tasksPage
	if err := c.get(ctx, "/api/v1/sites/"+url.PathEscape(siteID)+"/tasks", pageQuery(cursor, pageSize), &page); err != nil {
		return nil, "", err
	}
	return page.Items, page.Next, nil
}
