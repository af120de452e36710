package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/site-warden/pkg/models/domain"
	"github.com/de-tools/site-warden/pkg/services/retry"
	"github.com/de-tools/site-warden/pkg/store/rest"
	"github.com/rs/zerolog"
)

// PartialEnumerationError marks a site listing that stopped early after a
// page fetch exhausted its retries. The sites gathered before the failure
// are still returned and scanned; the run records the shortfall instead of
// aborting.
type PartialEnumerationError struct {
	Gathered int
	Err      error
}

func (e *PartialEnumerationError) Error() string {
	return fmt.Sprintf("site enumeration stopped after %d sites: %v", e.Gathered, e.Err)
}

func (e *PartialEnumerationError) Unwrap() error { return e.Err }

// Enumerator lists every site of the deployment in fixed-size pages.
type Enumerator struct {
	client   *rest.Client
	pageSize int
	policy   retry.Policy
}

func NewEnumerator(client *rest.Client, pageSize int, policy retry.Policy) *Enumerator {
	return &Enumerator{client: client, pageSize: pageSize, policy: policy}
}

type sitesResult struct {
	sites []rest.SiteInfo
	next  string
}

// EnumerateSites gathers all site descriptors. On a permanently failed page
// it returns the sites obtained so far together with a
// *PartialEnumerationError; callers proceed with what they got.
func (e *Enumerator) EnumerateSites(ctx context.Context) ([]domain.SiteDescriptor, error) {
	var sites []domain.SiteDescriptor
	cursor := ""
	for {
		page, err := retry.DoValue(ctx, e.policy, "list_sites", func(ctx context.Context) (sitesResult, error) {
			items, next, err := e.client.ListSites(ctx, cursor, e.pageSize)
			return sitesResult{sites: items, next: next}, err
		})
		if err != nil {
			var exhausted *retry.ExhaustedError
			if errors.As(err, &exhausted) {
				zerolog.Ctx(ctx).Warn().
					Int("gathered", len(sites)).
					Err(err).
					Msg("site enumeration incomplete")
				return sites, &PartialEnumerationError{Gathered: len(sites), Err: err}
			}
			return sites, err
		}

		for _, s := range page.sites {
			sites = append(sites, domain.SiteDescriptor{
				ID:         s.ID,
				Name:       s.Name,
				ContentURL: s.ContentURL,
			})
		}
		if page.next == "" {
			return sites, nil
		}
		cursor = page.next
	}
}
