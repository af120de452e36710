package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/site-warden/pkg/models/domain"
	"github.com/de-tools/site-warden/pkg/services/policy"
	"github.com/de-tools/site-warden/pkg/services/retry"
	"github.com/de-tools/site-warden/pkg/store/rest"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Sink receives audit log entries. The auditlog writer implements it.
type Sink interface {
	Emit(entry domain.LogEntry) error
}

// Mutator is the external collaborator invoked for flagged records in
// cleanup mode. It is never called in log-only mode; its calls are routed
// through the retry executor like every other remote call.
type Mutator interface {
	Cleanup(ctx context.Context, site domain.SiteDescriptor, item domain.ScanItem) error
}

type Options struct {
	Resources []domain.ResourceType
	// SiteScope limits the run to sites whose name or content URL matches;
	// empty scans all sites.
	SiteScope string
	Workers   int
	PageSize  int
	Retry     retry.Policy
	LogOnly   bool
	// Deadline bounds the whole run; zero means no overall deadline.
	Deadline time.Duration
	Now      func() time.Time
}

func (o *Options) normalize() {
	if len(o.Resources) == 0 {
		o.Resources = domain.AllResourceTypes()
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.PageSize <= 0 {
		o.PageSize = 100
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = retry.DefaultPolicy()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Runner drives one full audit run: sign in, enumerate sites, scan every
// (site, resource type) pair through the evaluator, and emit one audit
// record per finding plus one summary per pair.
type Runner struct {
	client    *rest.Client
	evaluator *policy.Evaluator
	sink      Sink
	mutator   Mutator
	opts      Options
}

func NewRunner(client *rest.Client, evaluator *policy.Evaluator, sink Sink, mutator Mutator, opts Options) *Runner {
	opts.normalize()
	return &Runner{
		client:    client,
		evaluator: evaluator,
		sink:      sink,
		mutator:   mutator,
		opts:      opts,
	}
}

type pair struct {
	capability Capability
	site       domain.SiteDescriptor
}

// serverSite is the synthetic scope for server-level passes (the sites
// resource itself is not owned by any one site).
var serverSite = domain.SiteDescriptor{ID: "", Name: "server"}

// Run executes the audit. The returned summary is valid even when err is
// non-nil; err is only set for fatal conditions (authentication failure or
// an empty site list), matching the process exit contract.
func (r *Runner) Run(ctx context.Context) (domain.RunSummary, error) {
	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	if r.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Deadline)
		defer cancel()
	}

	summary := domain.RunSummary{
		RunID:     runID,
		StartedAt: r.opts.Now(),
		LogOnly:   r.opts.LogOnly,
		Status:    domain.RunFailed,
	}

	if _, err := r.client.SignIn(ctx); err != nil {
		summary.FinishedAt = r.opts.Now()
		return summary, err
	}
	defer func() {
		// Sign-out is best-effort and must not be cut short by the run
		// deadline.
		signOutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := r.client.SignOut(signOutCtx); err != nil {
			logger.Warn().Err(err).Msg("sign-out failed")
		}
	}()

	enumerator := NewEnumerator(r.client, r.opts.PageSize, r.opts.Retry)
	sites, enumErr := enumerator.EnumerateSites(ctx)

	var partial *PartialEnumerationError
	if enumErr != nil && !errors.As(enumErr, &partial) {
		summary.FinishedAt = r.opts.Now()
		return summary, fmt.Errorf("enumerating sites: %w", enumErr)
	}
	if partial != nil {
		summary.ErrorCount++
		r.emit(ctx, domain.LogEntry{
			RunID:     runID,
			Timestamp: r.opts.Now(),
			Severity:  domain.SeverityWarning,
			Event:     domain.EventEnumShortfall,
			Payload: map[string]any{
				"sites_gathered": partial.Gathered,
				"error":          partial.Err.Error(),
			},
		})
	}

	sites = filterSites(sites, r.opts.SiteScope)
	if len(sites) == 0 {
		summary.FinishedAt = r.opts.Now()
		if enumErr != nil {
			return summary, fmt.Errorf("no sites enumerated: %w", enumErr)
		}
		return summary, fmt.Errorf("no sites matched scope %q", r.opts.SiteScope)
	}
	summary.SitesScanned = len(sites)

	caps, err := Capabilities(r.client, r.opts.Resources)
	if err != nil {
		summary.FinishedAt = r.opts.Now()
		return summary, err
	}

	pairs := buildPairs(caps, sites)
	results := make([]domain.ScanResult, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, p := range pairs {
		g.Go(func() error {
			results[i] = r.scanPair(gctx, runID, p)
			return nil
		})
	}
	// Workers never return errors; failures are isolated into their pair's
	// result.
	_ = g.Wait()

	for _, result := range results {
		summary.PairsScanned++
		summary.RecordCount += result.RecordCount
		summary.StaleCount += result.StaleCount()
		summary.WarningCount += result.WarningCount()
		summary.ErrorCount += result.ErrorCount
		if result.Failed {
			summary.PairsFailed++
		}
	}

	switch {
	case summary.PairsFailed == 0 && summary.ErrorCount == 0:
		summary.Status = domain.RunSucceeded
	default:
		summary.Status = domain.RunPartial
	}
	summary.FinishedAt = r.opts.Now()

	r.emit(ctx, domain.LogEntry{
		RunID:     runID,
		Timestamp: summary.FinishedAt,
		Severity:  domain.SeverityInfo,
		Event:     domain.EventRunSummary,
		Payload: map[string]any{
			"sites_scanned": summary.SitesScanned,
			"pairs_scanned": summary.PairsScanned,
			"pairs_failed":  summary.PairsFailed,
			"record_count":  summary.RecordCount,
			"stale_count":   summary.StaleCount,
			"warning_count": summary.WarningCount,
			"error_count":   summary.ErrorCount,
			"log_only":      summary.LogOnly,
			"status":        string(summary.Status),
		},
	})

	return summary, nil
}

func buildPairs(caps []Capability, sites []domain.SiteDescriptor) []pair {
	var pairs []pair
	for _, capability := range caps {
		if capability.Resource() == domain.ResourceSites {
			pairs = append(pairs, pair{capability: capability, site: serverSite})
			continue
		}
		for _, site := range sites {
			pairs = append(pairs, pair{capability: capability, site: site})
		}
	}
	return pairs
}

func filterSites(sites []domain.SiteDescriptor, scope string) []domain.SiteDescriptor {
	if scope == "" {
		return sites
	}
	var out []domain.SiteDescriptor
	for _, s := range sites {
		if s.Name == scope || s.ContentURL == scope {
			out = append(out, s)
		}
	}
	return out
}

// scanPair runs one (site, resource type) pass. A page failure after
// retries gets one resume from the last good cursor; if that also fails the
// pair is marked failed and the rest of the run is unaffected.
func (r *Runner) scanPair(ctx context.Context, runID string, p pair) domain.ScanResult {
	logger := zerolog.Ctx(ctx).With().
		Str("site", p.site.Name).
		Str("resource", string(p.capability.Resource())).
		Logger()
	start := r.opts.Now()

	result := domain.ScanResult{
		Site:     p.site,
		Resource: p.capability.Resource(),
	}

	scanner := NewScanner(r.opts.PageSize, r.opts.Retry)
	handle := func(record domain.ResourceRecord) {
		item := domain.ScanItem{
			Record:  record,
			Verdict: r.evaluator.Evaluate(record, r.opts.Now()),
		}
		result.Items = append(result.Items, item)
		r.handleVerdict(ctx, runID, p.site, item, &result)
	}

	state, err := scanner.Scan(ctx, p.capability, p.site, State{}, handle)
	if err != nil && ctx.Err() == nil {
		logger.Warn().Str("cursor", state.Cursor).Err(err).Msg("scan interrupted, resuming from last cursor")
		state, err = scanner.Scan(ctx, p.capability, p.site, state, handle)
	}
	if err != nil {
		result.Failed = true
		result.ErrorCount++
		logger.Error().Err(err).Msg("scan failed")
		r.emit(ctx, domain.LogEntry{
			RunID:     runID,
			Timestamp: r.opts.Now(),
			Severity:  domain.SeverityError,
			Event:     domain.EventScanFailure,
			Resource:  result.Resource,
			Site:      p.site.Name,
			Payload: map[string]any{
				"error":  err.Error(),
				"cursor": state.Cursor,
			},
		})
	}

	result.RecordCount = len(result.Items)
	result.Duration = r.opts.Now().Sub(start)

	r.emit(ctx, domain.LogEntry{
		RunID:     runID,
		Timestamp: r.opts.Now(),
		Severity:  domain.SeverityInfo,
		Event:     domain.EventScanSummary,
		Resource:  result.Resource,
		Site:      p.site.Name,
		Payload: map[string]any{
			"duration_ms":   result.Duration.Milliseconds(),
			"record_count":  result.RecordCount,
			"stale_count":   result.StaleCount(),
			"warning_count": result.WarningCount(),
			"error_count":   result.ErrorCount,
			"failed":        result.Failed,
		},
	})

	logger.Info().
		Int("records", result.RecordCount).
		Int("stale", result.StaleCount()).
		Dur("duration", result.Duration).
		Msg("scan pass finished")
	return result
}

func (r *Runner) handleVerdict(ctx context.Context, runID string, site domain.SiteDescriptor, item domain.ScanItem, result *domain.ScanResult) {
	switch {
	case item.Verdict.Warning():
		r.emit(ctx, domain.LogEntry{
			RunID:     runID,
			Timestamp: r.opts.Now(),
			Severity:  domain.SeverityWarning,
			Event:     domain.EventDataQuality,
			Resource:  item.Record.Type,
			Site:      site.Name,
			Payload:   map[string]any{"record": item.Record},
		})
	case item.Verdict.Stale:
		r.emit(ctx, domain.LogEntry{
			RunID:     runID,
			Timestamp: r.opts.Now(),
			Severity:  domain.SeverityWarning,
			Event:     domain.EventFlaggedRecord,
			Resource:  item.Record.Type,
			Site:      site.Name,
			Payload: map[string]any{
				"record":  item.Record,
				"verdict": item.Verdict,
			},
		})
		r.cleanup(ctx, site, item, result)
	}
}

// cleanup hands a flagged record to the mutator, cleanup mode only. In
// log-only mode the verdict is terminal and no mutating call is ever
// issued.
func (r *Runner) cleanup(ctx context.Context, site domain.SiteDescriptor, item domain.ScanItem, result *domain.ScanResult) {
	if r.opts.LogOnly || r.mutator == nil {
		return
	}
	err := retry.Do(ctx, r.opts.Retry, "cleanup", func(ctx context.Context) error {
		return r.mutator.Cleanup(ctx, site, item)
	})
	if err != nil {
		result.ErrorCount++
		zerolog.Ctx(ctx).Error().
			Str("record_id", item.Record.ID).
			Err(err).
			Msg("cleanup failed")
	}
}

func (r *Runner) emit(ctx context.Context, entry domain.LogEntry) {
	if err := r.sink.Emit(entry); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("audit log write failed")
	}
}
