package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/de-tools/site-warden/pkg/models/domain"
	"github.com/de-tools/site-warden/pkg/runtime/terminal/export"
	"github.com/de-tools/site-warden/pkg/services/config"
	"github.com/de-tools/site-warden/pkg/services/policy"
	"github.com/de-tools/site-warden/pkg/services/report"
	"github.com/de-tools/site-warden/pkg/services/scan"
	"github.com/de-tools/site-warden/pkg/store/auditlog"
	"github.com/de-tools/site-warden/pkg/store/history"
	"github.com/de-tools/site-warden/pkg/store/rest"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// ErrPartialRun marks a run that finished but had failed passes or
// recoverable errors. The process maps it to a distinct exit code so
// schedulers can tell "nothing to do" from "look at the log".
var ErrPartialRun = errors.New("run finished with partial results")

type scanFlags struct {
	profilePath string
	profile     string
	policyPath  string
	site        string
	resources   []string
	workers     int
	pageSize    int
	logOnly     bool
	deadline    int
}

func NewScanCmd(reporter *export.Reporter) *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a governance audit over the configured server",
		Long: "Signs in with the profile's access token, enumerates sites, scans the " +
			"selected resource types against the policy thresholds and appends one " +
			"audit record per finding. Mutations only happen when log-only is " +
			"switched off.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, flags, reporter)
		},
	}

	cmd.Flags().StringVar(&flags.profilePath, "profile-path", "~/.sitewardencfg", "path to the profiles file")
	cmd.Flags().StringVar(&flags.profile, "profile", "DEFAULT", "profile to connect with")
	cmd.Flags().StringVar(&flags.policyPath, "policy", "", "path to the policy file (defaults apply when omitted)")
	cmd.Flags().StringVar(&flags.site, "site", "", "limit the run to one site by name or content URL")
	cmd.Flags().StringSliceVar(&flags.resources, "resources", nil, "resource types to scan (default: all)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "concurrent scan passes (overrides policy)")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 0, "records per page (overrides policy)")
	cmd.Flags().BoolVar(&flags.logOnly, "log-only", true, "log findings without mutating anything (overrides policy)")
	cmd.Flags().IntVar(&flags.deadline, "deadline", 0, "overall run deadline in minutes (overrides policy)")

	return cmd
}

func runScan(cmd *cobra.Command, flags *scanFlags, reporter *export.Reporter) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	pol, err := config.LoadPolicy(flags.policyPath)
	if err != nil {
		return err
	}
	applyOverrides(cmd, flags, pol)

	registry, err := config.NewRegistry(expandHome(flags.profilePath))
	if err != nil {
		return fmt.Errorf("loading profiles from %s: %w", flags.profilePath, err)
	}
	profile, err := registry.GetProfile(ctx, flags.profile)
	if err != nil {
		return err
	}

	resources, err := parseResources(flags.resources)
	if err != nil {
		return err
	}

	thresholds, err := pol.DomainThresholds()
	if err != nil {
		return err
	}
	evaluator := policy.NewEvaluator(thresholds)

	writer, err := auditlog.NewWriter(auditlog.Options{
		Dir:          pol.LogDir,
		MaxFileBytes: int64(pol.Rotation.MaxFileMB) * 1024 * 1024,
		MaxBackups:   pol.Rotation.MaxBackups,
	})
	if err != nil {
		return err
	}

	db, err := history.NewDB(history.Settings{DbPath: pol.HistoryPath})
	if err != nil {
		return fmt.Errorf("opening run history at %s: %w", pol.HistoryPath, err)
	}
	defer db.Close()
	store, err := history.NewStore(db)
	if err != nil {
		return err
	}

	siteScope := profile.SiteScope
	if flags.site != "" {
		siteScope = flags.site
	}

	client := rest.NewClient(rest.ClientConfig{
		ServerURL:   profile.ServerURL,
		TokenName:   profile.TokenName,
		TokenSecret: profile.TokenSecret,
		SiteScope:   siteScope,
	})

	if !pol.LogOnly {
		// No mutator is wired in this build, so cleanup mode degrades to
		// logging. Flagged records are still written to the audit stream.
		logger.Warn().Msg("cleanup mode requested but no mutator is configured; run degrades to log-only behavior")
	}

	runner := scan.NewRunner(client, evaluator, writer, nil, scan.Options{
		Resources: resources,
		SiteScope: siteScope,
		Workers:   pol.Workers,
		PageSize:  pol.PageSize,
		Retry:     pol.RetryPolicy(),
		LogOnly:   pol.LogOnly,
		Deadline:  time.Duration(pol.DeadlineMinutes) * time.Minute,
	})

	summary, runErr := runner.Run(ctx)

	if err := store.Add(ctx, summary); err != nil {
		logger.Error().Err(err).Str("run_id", summary.RunID).Msg("failed to record run in history")
	}
	if err := writer.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close audit log")
	}

	if runErr != nil {
		return runErr
	}

	entries, err := auditlog.CollectRun(pol.LogDir, summary.RunID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read back audit log for digest")
	} else if err := reporter.Handle(report.Build(entries)); err != nil {
		return err
	}

	if summary.Status == domain.RunPartial {
		return ErrPartialRun
	}
	return nil
}

// applyOverrides lets explicitly set flags win over the policy file.
func applyOverrides(cmd *cobra.Command, flags *scanFlags, pol *config.Policy) {
	if cmd.Flags().Changed("log-only") {
		pol.LogOnly = flags.logOnly
	}
	if cmd.Flags().Changed("workers") {
		pol.Workers = flags.workers
	}
	if cmd.Flags().Changed("page-size") {
		pol.PageSize = flags.pageSize
	}
	if cmd.Flags().Changed("deadline") {
		pol.DeadlineMinutes = flags.deadline
	}
}

func parseResources(names []string) ([]domain.ResourceType, error) {
	var resources []domain.ResourceType
	for _, name := range names {
		rt := domain.ResourceType(strings.ToLower(strings.TrimSpace(name)))
		if !rt.Valid() {
			return nil, fmt.Errorf("unknown resource type %q", name)
		}
		resources = append(resources, rt)
	}
	return resources, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
