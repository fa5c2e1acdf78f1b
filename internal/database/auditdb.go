package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/reviewaudit/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "reviewaudit.db"

// storedTimeFormat keeps audited_at sortable as text.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrReportNotFound is returned when no report has the requested ID.
var ErrReportNotFound = errors.New("audit report not found")

// AuditDB provides SQLite-based storage for audit reports.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw keeps a missing file from being created.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- Audit reports store complete results as JSON
	CREATE TABLE IF NOT EXISTS audit_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		audited_at TEXT NOT NULL,
		threshold REAL NOT NULL,
		report_json TEXT NOT NULL,
		severity_summary TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_site ON audit_reports(site);
	CREATE INDEX IF NOT EXISTS idx_reports_audited_at ON audit_reports(audited_at);

	-- Audited pages keep per-page counters of each report
	CREATE TABLE IF NOT EXISTS audited_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL REFERENCES audit_reports(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		category TEXT NOT NULL,
		reviews INTEGER NOT NULL,
		service_tags INTEGER NOT NULL,
		findings INTEGER NOT NULL,
		UNIQUE(report_id, path)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_report ON audited_pages(report_id);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAuditReport stores a report and, when corpus is not nil, one
// audited_pages row per corpus page. It returns the new report ID.
func (adb *AuditDB) SaveAuditReport(ctx context.Context, report *model.AuditReport, corpus *model.Corpus) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(report.CountBySeverity())
	if err != nil {
		return 0, fmt.Errorf("failed to serialize severity summary: %w", err)
	}

	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO audit_reports (site, audited_at, threshold, report_json, severity_summary)
	VALUES (?, ?, ?, ?, ?)
	`,
		report.Site,
		report.DateAudited.UTC().Format(storedTimeFormat),
		report.SimilarityThreshold,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save audit report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read report id: %w", err)
	}

	if corpus != nil {
		findings := findingsPerPage(report)
		for _, page := range corpus.Pages() {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO audited_pages (report_id, path, category, reviews, service_tags, findings)
			VALUES (?, ?, ?, ?, ?, ?)
			`,
				id,
				page.Path,
				string(page.Category),
				len(page.Reviews),
				len(page.AllServiceTags),
				findings[page.Path],
			)
			if err != nil {
				return 0, fmt.Errorf("failed to save page %q: %w", page.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit audit report: %w", err)
	}
	return id, nil
}

// findingsPerPage counts how many results involve each page. A similar
// pair within one page counts once.
func findingsPerPage(report *model.AuditReport) map[string]int {
	counts := make(map[string]int)
	for _, d := range report.DuplicateIdentities {
		for _, p := range d.Pages {
			counts[p]++
		}
	}
	for _, s := range report.SimilarTextPairs {
		counts[s.Left.Page]++
		if s.Right.Page != s.Left.Page {
			counts[s.Right.Page]++
		}
	}
	for _, issue := range report.CategorizationIssues {
		counts[issue.Page]++
	}
	return counts
}

// GetAuditReportByID retrieves a report by its database ID.
// It returns ErrReportNotFound when no such report exists.
func (adb *AuditDB) GetAuditReportByID(ctx context.Context, id int64) (*model.AuditReport, error) {
	var reportJSON string
	err := adb.db.QueryRowContext(ctx, `SELECT report_json FROM audit_reports WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrReportNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report %d: %w", id, err)
	}
	return &report, nil
}

// GetLatestAuditReport retrieves the most recent report for a site.
// It returns nil, nil when the site has never been audited.
func (adb *AuditDB) GetLatestAuditReport(ctx context.Context, site string) (*model.AuditReport, error) {
	var id int64
	err := adb.db.QueryRowContext(ctx, `
	SELECT id FROM audit_reports
	WHERE site = ?
	ORDER BY audited_at DESC, id DESC
	LIMIT 1
	`, site).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest audit report: %w", err)
	}
	return adb.GetAuditReportByID(ctx, id)
}

// ReportMetadata contains summary information about a stored report.
// This is used for listing history without loading the full report.
type ReportMetadata struct {
	// ID is the unique identifier of the report in the database.
	ID int64

	// Site is the audited site.
	Site string

	// AuditedAt is when the audit was performed.
	AuditedAt time.Time

	// Threshold is the similarity threshold used.
	Threshold float64

	// Severity contains counts of findings by severity level.
	Severity model.SeverityCounts
}

// ListAuditReports returns report metadata, newest first. An empty site
// lists the reports of every site.
func (adb *AuditDB) ListAuditReports(ctx context.Context, site string) ([]ReportMetadata, error) {
	query := `
	SELECT id, site, audited_at, threshold, severity_summary
	FROM audit_reports
	WHERE 1=1
	`
	args := make([]any, 0, 1)
	if site != "" {
		query += " AND site = ?"
		args = append(args, site)
	}
	query += " ORDER BY audited_at DESC, id DESC"

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit reports: %w", err)
	}
	defer rows.Close()

	results := make([]ReportMetadata, 0)
	for rows.Next() {
		var meta ReportMetadata
		var auditedAt string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Site, &auditedAt, &meta.Threshold, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report metadata: %w", err)
		}

		meta.AuditedAt = parseTimestamp(auditedAt)
		if summaryJSON.Valid && summaryJSON.String != "" {
			// A malformed summary leaves the counts at zero.
			_ = json.Unmarshal([]byte(summaryJSON.String), &meta.Severity)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListAuditedSites returns every site with at least one stored report.
func (adb *AuditDB) ListAuditedSites(ctx context.Context) ([]string, error) {
	rows, err := adb.db.QueryContext(ctx, `SELECT DISTINCT site FROM audit_reports ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := make([]string, 0)
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// PageRecord is a stored per-page row of a report.
type PageRecord struct {
	Path        string
	Category    model.Category
	Reviews     int
	ServiceTags int
	Findings    int
}

// ListAuditedPages returns the page rows of a report sorted by path.
func (adb *AuditDB) ListAuditedPages(ctx context.Context, reportID int64) ([]PageRecord, error) {
	rows, err := adb.db.QueryContext(ctx, `
	SELECT path, category, reviews, service_tags, findings
	FROM audited_pages
	WHERE report_id = ?
	ORDER BY path
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audited pages: %w", err)
	}
	defer rows.Close()

	pages := make([]PageRecord, 0)
	for rows.Next() {
		var p PageRecord
		var category string
		if err := rows.Scan(&p.Path, &category, &p.Reviews, &p.ServiceTags, &p.Findings); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.Category = model.Category(category)
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
