package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/site-warden/pkg/services/report"
)

type TableConfig struct {
	ResourceWidth int
	CountWidth    int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		ResourceWidth: 16,
		CountWidth:    10,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (c *Reporter) Handle(digest report.Digest) error {
	funcMap := template.FuncMap{
		"formatRow": func(resource string, records, flagged, warnings, failed any) string {
			return fmt.Sprintf("| %-*s | %-*v | %-*v | %-*v | %-*v |",
				c.config.ResourceWidth, resource,
				c.config.CountWidth, records,
				c.config.CountWidth, flagged,
				c.config.CountWidth, warnings,
				c.config.CountWidth, failed)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.ResourceWidth+2),
				strings.Repeat("-", c.config.CountWidth+2),
				strings.Repeat("-", c.config.CountWidth+2),
				strings.Repeat("-", c.config.CountWidth+2),
				strings.Repeat("-", c.config.CountWidth+2))
		},
	}

	tmpl := `
Run {{.RunID}} [{{.Status}}]{{if .LogOnly}} (log-only){{end}}{{if .Shortfall}} (site enumeration incomplete){{end}}

Sites scanned: {{.SitesScanned}}
Records: {{.RecordCount}}  Flagged: {{.FlaggedCount}}  Warnings: {{.WarningCount}}  Errors: {{.ErrorCount}}

{{separator}}
{{formatRow "Resource" "Records" "Flagged" "Warnings" "Failed"}}
{{separator}}
{{range .Resources}}{{formatRow (printf "%s" .Resource) .RecordCount .FlaggedCount .WarningCount .FailedPasses}}
{{end}}{{separator}}
`

	t, err := template.New("digest").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, digest)
}
