package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/amit-mskl/sql-playground/internal/activity"
	"github.com/amit-mskl/sql-playground/internal/cli/config"
	"github.com/amit-mskl/sql-playground/internal/cli/output"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

const doctorProbeTimeout = 5 * time.Second

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, local state and backend connectivity",
		Long: `Run a health check of the local SQL Arena setup.

The doctor command reports:
- Which configuration file is in use
- Whether the local state database opens and is migrated
- Whether a user is signed in
- Whether the backend answers and lists tables
- How many activity records are still waiting for delivery

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  sqlarena doctor

  # Output as JSON
  sqlarena doctor -o json`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks     []HealthCheck `json:"checks" yaml:"checks"`
	ErrorCount int           `json:"error_count" yaml:"error_count"`
	WarnCount  int           `json:"warn_count" yaml:"warn_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name   string `json:"name" yaml:"name"`
	Group  string `json:"group" yaml:"group"`
	Status string `json:"status" yaml:"status"` // "pass", "warn", "error"
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := buildDoctorOutput(cmd.Context(), cmdCtx)

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeYAML:
		return r.YAML(out)
	case output.ModeText:
		renderDoctorText(r, out)
	default:
		renderDoctorMarkdown(r, out)
	}
	return nil
}

func buildDoctorOutput(ctx context.Context, cmdCtx *CommandContext) *DoctorOutput {
	var checks []HealthCheck
	add := func(group, name, status, detail string) {
		checks = append(checks, HealthCheck{Name: name, Group: group, Status: status, Detail: detail})
	}

	// Configuration
	if f := config.GetConfigFileUsed(); f != "" {
		add("configuration", "Config file", checkPass, f)
	} else {
		add("configuration", "Config file", checkPass, "none (defaults and environment)")
	}
	add("configuration", "Backend URL", checkPass, cmdCtx.Client.BaseURL())

	// Local state
	if v, err := cmdCtx.Store.GetMigrationVersion(); err != nil {
		add("local state", "State database", checkError, err.Error())
	} else {
		add("local state", "State database", checkPass, fmt.Sprintf("%s (schema v%d)", cmdCtx.Store.Path(), v))
	}
	if entries, err := cmdCtx.Store.RecentActivity(ctx, "", 0); err != nil {
		add("local state", "Activity journal", checkError, err.Error())
	} else {
		undelivered := 0
		for _, e := range entries {
			switch e.Status {
			case activity.StatusPending, activity.StatusFailed, activity.StatusDropped:
				undelivered++
			}
		}
		status := checkPass
		if undelivered > 0 {
			status = checkWarn
		}
		add("local state", "Activity journal", status, fmt.Sprintf("%d recorded, %d undelivered", len(entries), undelivered))
	}

	// Session
	if u := cmdCtx.Gate.Current(); u != nil {
		add("session", "Signed in", checkPass, u.Identity())
	} else {
		add("session", "Signed in", checkWarn, "run 'sqlarena login'")
	}

	// Backend
	probeCtx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	start := time.Now()
	tables, err := cmdCtx.Client.ListTables(probeCtx)
	if err != nil {
		add("backend", "Reachable", checkError, err.Error())
	} else {
		add("backend", "Reachable", checkPass, fmt.Sprintf("%d tables in %dms", len(tables), time.Since(start).Milliseconds()))
	}

	out := &DoctorOutput{Checks: checks}
	for _, c := range checks {
		switch c.Status {
		case checkError:
			out.ErrorCount++
		case checkWarn:
			out.WarnCount++
		}
	}
	return out
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header.Render("SQL Arena Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println(styles.TableName.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}
		r.StatusLine("  "+check.Name, statusLineKind(check.Status), check.Detail)
	}

	r.Println("")
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println(doctorSummary(out))
	r.Println("")
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println(output.FormatHeader(1, "SQL Arena Health Report"))

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println(output.FormatHeader(2, titleCaser.String(currentGroup)))
		}
		value := strings.ToUpper(check.Status)
		if check.Detail != "" {
			value += " " + check.Detail
		}
		r.Println(output.FormatKeyValue(check.Name, value))
	}

	r.Println("")
	r.Println(doctorSummary(out))
}

func statusLineKind(status string) string {
	switch status {
	case checkPass:
		return "success"
	case checkWarn:
		return "warning"
	default:
		return "error"
	}
}

func doctorSummary(out *DoctorOutput) string {
	if out.ErrorCount == 0 && out.WarnCount == 0 {
		return "All checks passed"
	}
	return fmt.Sprintf("%d errors, %d warnings", out.ErrorCount, out.WarnCount)
}
