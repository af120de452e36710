// Package scan is the shared scanning substrate: site enumeration, the
// generic paginated resource scanner, and the run orchestration that ties
// session, policy evaluation and the audit log together.
package scan

import (
	"context"

	"github.com/de-tools/site-warden/pkg/models/domain"
	"github.com/de-tools/site-warden/pkg/services/retry"
)

// Scanner streams one resource type's records for one site, page by page,
// with every page fetch routed through the retry executor.
type Scanner struct {
	pageSize int
	policy   retry.Policy
}

func NewScanner(pageSize int, policy retry.Policy) *Scanner {
	return &Scanner{pageSize: pageSize, policy: policy}
}

// State is the durable position of one scan. After a failure it holds the
// cursor of the last page fetched successfully, so the next invocation
// resumes there instead of restarting the resource type from scratch.
type State struct {
	Cursor string
	Done   bool
}

type pageResult struct {
	records []domain.ResourceRecord
	next    string
}

// Scan drives the capability from state.Cursor until the listing is
// exhausted, the context ends, or a page fetch fails after retries. Each
// record is handed to fn in order. The returned state is valid in all
// cases; on error it points at the page that failed.
func (s *Scanner) Scan(
	ctx context.Context,
	capability Capability,
	site domain.SiteDescriptor,
	state State,
	fn func(domain.ResourceRecord),
) (State, error) {
	if state.Done {
		return state, nil
	}

	cursor := state.Cursor
	for {
		if err := ctx.Err(); err != nil {
			return State{Cursor: cursor}, err
		}

		page, err := retry.DoValue(ctx, s.policy, "fetch_page", func(ctx context.Context) (pageResult, error) {
			records, next, err := capability.FetchPage(ctx, site, cursor, s.pageSize)
			return pageResult{records: records, next: next}, err
		})
		if err != nil {
			return State{Cursor: cursor}, err
		}

		for _, record := range page.records {
			fn(record)
		}

		if page.next == "" {
			return State{Done: true}, nil
		}
		cursor = page.next
	}
}
