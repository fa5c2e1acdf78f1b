package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/reviewaudit/internal/config"
	"github.com/nao1215/reviewaudit/internal/database"
	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/report"
)

// noFindingsMessage is shown for a report without findings.
const noFindingsMessage = "No findings"

// reportsOptions are the parsed flags of the reports command.
type reportsOptions struct {
	site      string
	id        int64
	listSites bool
	pages     bool
	json      bool
	markdown  bool
}

// NewReportsCmd creates the reports command.
// This command browses the audit reports stored in the database.
func NewReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports [site]",
		Short: "List or show stored audit reports",
		Long: `Reports browses the audit reports saved by 'reviewaudit audit'.

Without --id, the stored reports are listed newest first, optionally limited to
one site. With --id, the report is rendered again in the requested format.

Examples:
  # List all stored reports
  reviewaudit reports

  # List the reports of one site
  reviewaudit reports public

  # List every audited site
  reviewaudit reports --sites

  # Show a stored report with its per-page breakdown
  reviewaudit reports --id 3 --pages

  # Render a stored report as Markdown
  reviewaudit reports --id 3 --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReportsCmd,
	}

	cmd.Flags().Int64P("id", "i", 0,
		"Show the report with this ID (use the listing to see available IDs)")
	cmd.Flags().BoolP("sites", "s", false,
		"List all audited sites in the database")
	cmd.Flags().BoolP("pages", "p", false,
		"With --id, list the audited pages of the report")

	cmd.Flags().BoolP("json", "j", false,
		"Output the report in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the report in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the report database")

	return cmd
}

// runReportsCmd executes the reports command.
func runReportsCmd(cmd *cobra.Command, args []string) error {
	var opts reportsOptions
	var err error

	if len(args) == 1 {
		opts.site = args[0]
	}
	if opts.id, err = cmd.Flags().GetInt64("id"); err != nil {
		return err
	}
	if opts.listSites, err = cmd.Flags().GetBool("sites"); err != nil {
		return err
	}
	if opts.pages, err = cmd.Flags().GetBool("pages"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate flags before opening the database
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	if opts.id < 0 {
		return fmt.Errorf("invalid report ID %d", opts.id)
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return runReports(ctx, db, cmd.OutOrStdout(), opts)
}

// runReports dispatches to the listing or rendering mode.
func runReports(ctx context.Context, db *database.AuditDB, w io.Writer, opts reportsOptions) error {
	switch {
	case opts.listSites:
		return listAuditedSites(ctx, db, w)
	case opts.id > 0:
		return showReport(ctx, db, w, opts)
	default:
		return listReportHistory(ctx, db, w, opts.site)
	}
}

// listAuditedSites lists all sites that have reports in the database.
func listAuditedSites(ctx context.Context, db *database.AuditDB, w io.Writer) error {
	sites, err := db.ListAuditedSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(sites) == 0 {
		fmt.Fprintln(w, "No audited sites found in the database.")
		fmt.Fprintln(w, "\nUse 'reviewaudit audit <site-dir>' to audit a site.")
		return nil
	}

	fmt.Fprintf(w, "Audited sites (%d):\n\n", len(sites))
	for _, s := range sites {
		fmt.Fprintf(w, "  • %s\n", s)
	}
	fmt.Fprintln(w, "\nUse 'reviewaudit reports <site>' to see the reports of a site.")

	return nil
}

// listReportHistory lists the stored reports, newest first.
func listReportHistory(ctx context.Context, db *database.AuditDB, w io.Writer, site string) error {
	reports, err := db.ListAuditReports(ctx, site)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(reports) == 0 {
		if site != "" {
			fmt.Fprintf(w, "No reports found for %s\n", site)
		} else {
			fmt.Fprintln(w, "No reports found in the database.")
		}
		fmt.Fprintln(w, "\nUse 'reviewaudit audit' to audit a site.")
		return nil
	}

	if site != "" {
		fmt.Fprintf(w, "Reports for %s (%d):\n\n", site, len(reports))
	} else {
		fmt.Fprintf(w, "Reports (%d):\n\n", len(reports))
	}
	fmt.Fprintf(w, "  %-6s  %-20s  %-20s  %-9s  %s\n", "ID", "Date", "Site", "Threshold", "Findings")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 75))

	for _, meta := range reports {
		fmt.Fprintf(w, "  %-6d  %-20s  %-20s  %-9.2f  %s\n",
			meta.ID,
			meta.AuditedAt.Format("2006-01-02 15:04:05"),
			truncate(meta.Site, 20),
			meta.Threshold,
			formatSeveritySummary(meta.Severity),
		)
	}

	fmt.Fprintln(w, "\nUse 'reviewaudit reports --id <id>' to show a report.")

	return nil
}

// showReport renders one stored report.
func showReport(ctx context.Context, db *database.AuditDB, w io.Writer, opts reportsOptions) error {
	r, err := db.GetAuditReportByID(ctx, opts.id)
	if errors.Is(err, database.ErrReportNotFound) {
		return fmt.Errorf("report with ID %d not found", opts.id)
	}
	if err != nil {
		return err
	}

	var writer report.Writer
	switch {
	case opts.json:
		writer = report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithFindings(getVersion()))
	case opts.markdown:
		writer = report.NewMarkdownWriter(w)
	default:
		writer = report.NewSimpleWriter(w)
	}
	if _, err := writer.Write(r); err != nil {
		return fmt.Errorf("failed to render report %d: %w", opts.id, err)
	}

	if !opts.pages || opts.json {
		return nil
	}

	pages, err := db.ListAuditedPages(ctx, opts.id)
	if err != nil {
		return err
	}
	writePageTable(w, pages)
	return nil
}

// writePageTable prints the per-page rows of a report.
func writePageTable(w io.Writer, pages []database.PageRecord) {
	if len(pages) == 0 {
		return
	}
	fmt.Fprintf(w, "\nAudited pages (%d):\n", len(pages))
	fmt.Fprintf(w, "  %-45s  %-20s  %7s  %4s  %8s\n", "Page", "Category", "Reviews", "Tags", "Findings")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 92))
	for _, p := range pages {
		fmt.Fprintf(w, "  %-45s  %-20s  %7d  %4d  %8d\n",
			truncate(p.Path, 45), p.Category.Label(), p.Reviews, p.ServiceTags, p.Findings)
	}
}

// formatSeveritySummary formats severity counts into a short string such as
// "C:1 H:2".
func formatSeveritySummary(counts model.SeverityCounts) string {
	var parts []string
	for _, sev := range model.Severities {
		if n := counts.Get(sev); n > 0 {
			parts = append(parts, fmt.Sprintf("%c:%d", sev.String()[0], n))
		}
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
