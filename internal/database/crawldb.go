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

	"github.com/nao1215/sitegraph/internal/model"
)

// FileName is the name of the archive file inside the database directory.
const FileName = "sitegraph.db"

// ErrNilReport is returned when SaveCrawl is called without a report.
var ErrNilReport = errors.New("report must not be nil")

// CrawlDB provides SQLite-based storage for completed crawls.
type CrawlDB struct {
	db *sql.DB

	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
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

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the path of the database file.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		seed_url TEXT NOT NULL,
		host TEXT NOT NULL,
		reason TEXT,
		node_count INTEGER NOT NULL DEFAULT 0,
		link_count INTEGER NOT NULL DEFAULT 0,
		fingerprint TEXT,
		request_json TEXT,
		snapshot_json TEXT NOT NULL,
		stats_json TEXT,
		started_at TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_host ON crawls(host);
	CREATE INDEX IF NOT EXISTS idx_crawls_session ON crawls(session_id);
	CREATE INDEX IF NOT EXISTS idx_crawls_timestamp ON crawls(timestamp);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCrawl stores a completed crawl and returns its archive id.
// The snapshot is stored as given, so archive before filtering.
func (cdb *CrawlDB) SaveCrawl(ctx context.Context, report *model.CrawlReport) (int64, error) {
	if report == nil {
		return 0, ErrNilReport
	}

	snapshot := report.Snapshot
	if snapshot == nil {
		snapshot = &model.Snapshot{Nodes: []model.Node{}, Links: []model.Link{}}
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	requestJSON, err := json.Marshal(report.Request)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize request: %w", err)
	}

	var statsJSON sql.NullString
	linkCount := model.ValidLinkCount(snapshot)
	if report.Stats != nil {
		data, err := json.Marshal(report.Stats)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize stats: %w", err)
		}
		statsJSON = sql.NullString{String: string(data), Valid: true}
	}

	fingerprint := report.Fingerprint
	if fingerprint == "" {
		fingerprint = model.Fingerprint(snapshot)
	}

	completed := report.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}

	query := `
	INSERT INTO crawls (session_id, seed_url, host, reason, node_count, link_count,
		fingerprint, request_json, snapshot_json, stats_json, started_at, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := cdb.db.ExecContext(ctx, query,
		report.SessionID,
		report.SeedURL,
		report.Host,
		string(report.Reason),
		snapshot.NodeCount(),
		linkCount,
		fingerprint,
		string(requestJSON),
		string(snapshotJSON),
		statsJSON,
		formatTimestamp(report.StartedAt),
		formatTimestamp(completed),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save crawl: %w", err)
	}

	return result.LastInsertId()
}

const selectCrawl = `
	SELECT id, session_id, seed_url, host, reason, node_count, fingerprint,
		request_json, snapshot_json, stats_json, started_at, timestamp
	FROM crawls
	`

// GetCrawlByID retrieves an archived crawl by its id.
// Returns nil, nil when no crawl has that id.
func (cdb *CrawlDB) GetCrawlByID(ctx context.Context, id int64) (*model.CrawlReport, error) {
	row := cdb.db.QueryRowContext(ctx, selectCrawl+" WHERE id = ?", id)
	report, err := scanCrawl(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl: %w", err)
	}
	return report, nil
}

// GetLatestCrawl retrieves the most recent crawl of host.
// Returns nil, nil when the host has never been archived.
func (cdb *CrawlDB) GetLatestCrawl(ctx context.Context, host string) (*model.CrawlReport, error) {
	reports, err := cdb.GetLatestCrawls(ctx, host, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return reports[0], nil
}

// GetLatestCrawls retrieves up to limit crawls of host, newest first.
func (cdb *CrawlDB) GetLatestCrawls(ctx context.Context, host string, limit int) ([]*model.CrawlReport, error) {
	query := selectCrawl + " WHERE host = ? ORDER BY timestamp DESC, id DESC LIMIT ?"

	rows, err := cdb.db.QueryContext(ctx, query, host, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawls: %w", err)
	}
	defer rows.Close()

	var reports []*model.CrawlReport
	for rows.Next() {
		report, err := scanCrawl(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// ListHosts returns every archived host in alphabetical order.
func (cdb *CrawlDB) ListHosts(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT host FROM crawls
	ORDER BY host
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}

	return hosts, rows.Err()
}

// CrawlMetadata contains summary information about an archived crawl.
// This is used for displaying history without loading the graph.
type CrawlMetadata struct {
	ID          int64
	SessionID   string
	SeedURL     string
	Host        string
	Reason      model.CompletionReason
	NodeCount   int
	LinkCount   int
	Fingerprint string
	Timestamp   time.Time
}

// GetHistoryWithMetadata retrieves crawl metadata for host, newest first.
func (cdb *CrawlDB) GetHistoryWithMetadata(ctx context.Context, host string) ([]CrawlMetadata, error) {
	query := `
	SELECT id, session_id, seed_url, host, reason, node_count, link_count, fingerprint, timestamp
	FROM crawls
	WHERE host = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, host)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	defer rows.Close()

	var results []CrawlMetadata
	for rows.Next() {
		var meta CrawlMetadata
		var reason, fingerprint sql.NullString
		var timestamp string

		if err := rows.Scan(
			&meta.ID,
			&meta.SessionID,
			&meta.SeedURL,
			&meta.Host,
			&reason,
			&meta.NodeCount,
			&meta.LinkCount,
			&fingerprint,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Reason = model.CompletionReason(reason.String)
		meta.Fingerprint = fingerprint.String
		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// DeleteHost removes every archived crawl of host and returns the number of
// deleted crawls.
func (cdb *CrawlDB) DeleteHost(ctx context.Context, host string) (int64, error) {
	result, err := cdb.db.ExecContext(ctx, "DELETE FROM crawls WHERE host = ?", host)
	if err != nil {
		return 0, fmt.Errorf("failed to delete crawls: %w", err)
	}
	return result.RowsAffected()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrawl(row rowScanner) (*model.CrawlReport, error) {
	var (
		report       model.CrawlReport
		reason       sql.NullString
		fingerprint  sql.NullString
		requestJSON  sql.NullString
		snapshotJSON string
		statsJSON    sql.NullString
		startedAt    sql.NullString
		timestamp    string
	)

	if err := row.Scan(
		&report.ID,
		&report.SessionID,
		&report.SeedURL,
		&report.Host,
		&reason,
		&report.TotalNodes,
		&fingerprint,
		&requestJSON,
		&snapshotJSON,
		&statsJSON,
		&startedAt,
		&timestamp,
	); err != nil {
		return nil, err
	}

	report.Reason = model.CompletionReason(reason.String)
	report.Fingerprint = fingerprint.String
	report.StartedAt = parseTimestamp(startedAt.String)
	report.CompletedAt = parseTimestamp(timestamp)

	var snapshot model.Snapshot
	if err := json.Unmarshal([]byte(snapshotJSON), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snapshot.Nodes == nil {
		snapshot.Nodes = []model.Node{}
	}
	if snapshot.Links == nil {
		snapshot.Links = []model.Link{}
	}
	report.Snapshot = &snapshot

	if requestJSON.Valid && requestJSON.String != "" {
		if err := json.Unmarshal([]byte(requestJSON.String), &report.Request); err != nil {
			return nil, fmt.Errorf("failed to parse request: %w", err)
		}
	}
	if statsJSON.Valid && statsJSON.String != "" {
		var stats model.GraphStats
		if err := json.Unmarshal([]byte(statsJSON.String), &stats); err != nil {
			return nil, fmt.Errorf("failed to parse stats: %w", err)
		}
		report.Stats = &stats
	}

	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.999",
}

// formatTimestamp stores times in UTC with a fixed width so that text
// ordering matches time ordering.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
