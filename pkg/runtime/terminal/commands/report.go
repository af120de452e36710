package commands

import (
	"fmt"

	"github.com/de-tools/site-warden/pkg/runtime/terminal/export"
	"github.com/de-tools/site-warden/pkg/services/config"
	"github.com/de-tools/site-warden/pkg/services/report"
	"github.com/de-tools/site-warden/pkg/store/auditlog"
	"github.com/spf13/cobra"
)

type reportFlags struct {
	policyPath string
	logDir     string
}

func NewReportCmd(reporter *export.Reporter) *cobra.Command {
	flags := &reportFlags{}

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Render the digest of a finished run from the audit log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(flags, args, reporter)
		},
	}

	cmd.Flags().StringVar(&flags.policyPath, "policy", "", "path to the policy file (defaults apply when omitted)")
	cmd.Flags().StringVar(&flags.logDir, "log-dir", "", "audit log directory (overrides policy)")

	return cmd
}

func runReport(flags *reportFlags, args []string, reporter *export.Reporter) error {
	pol, err := config.LoadPolicy(flags.policyPath)
	if err != nil {
		return err
	}
	logDir := pol.LogDir
	if flags.logDir != "" {
		logDir = flags.logDir
	}

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	} else {
		ids, err := auditlog.ListRunIDs(logDir)
		if err != nil {
			return fmt.Errorf("listing runs in %s: %w", logDir, err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("no runs found in %s", logDir)
		}
		runID = ids[0]
	}

	entries, err := auditlog.CollectRun(logDir, runID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("run %s not found in %s", runID, logDir)
	}

	return reporter.Handle(report.Build(entries))
}
