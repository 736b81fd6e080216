package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/srares76/figmaFeeder/internal/model"
)

// FeedDB provides SQLite-based storage for feed snapshots. Each completed
// feed is stored twice: the full report as JSON for retrieval, and one
// digest row per node for cheap structural comparison between snapshots.
//
// Design decision: One database file for all Figma files rather than a
// file per key. Cross-file listing stays a single query and backup is one
// file copy.
type FeedDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures FeedDB behavior.
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

// Open opens or creates a FeedDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*FeedDB, error) {
	dbPath := filepath.Join(dbDir, "figmafeeder.db")

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

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
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

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	fdb := &FeedDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := fdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return fdb, nil
}

// Close closes the database connection.
func (fdb *FeedDB) Close() error {
	return fdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (fdb *FeedDB) createTables() error {
	schema := `
	-- Feeds store one row per completed feed run
	CREATE TABLE IF NOT EXISTS feeds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_key TEXT NOT NULL,
		file_name TEXT,
		file_version TEXT,
		root_id TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		duration_ms INTEGER,
		node_count INTEGER,
		batches INTEGER,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feeds_key ON feeds(file_key);
	CREATE INDEX IF NOT EXISTS idx_feeds_timestamp ON feeds(timestamp);

	-- Feed nodes store one digest row per crawled node for diffing
	CREATE TABLE IF NOT EXISTS feed_nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feed_id INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
		node_id TEXT NOT NULL,
		name TEXT,
		kind TEXT,
		digest TEXT NOT NULL,
		UNIQUE(feed_id, node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_feed ON feed_nodes(feed_id);
	CREATE INDEX IF NOT EXISTS idx_nodes_digest ON feed_nodes(digest);
	`

	_, err := fdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveFeedReport stores a completed feed: the full report as JSON plus one
// digest row per node. The insert is transactional so a snapshot is either
// fully present or absent.
func (fdb *FeedDB) SaveFeedReport(ctx context.Context, report *model.FeedReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := fdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after Commit

	// The report's own fetch time is authoritative, not the insert time;
	// a snapshot saved late still sorts by when the crawl ran.
	timestamp := report.DateFetched
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := tx.ExecContext(ctx, `
	INSERT INTO feeds (file_key, file_name, file_version, root_id, timestamp, duration_ms, node_count, batches, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.FileKey,
		report.FileName,
		report.FileVersion,
		string(report.RootID),
		timestamp.UTC().Format("2006-01-02 15:04:05.999"),
		report.Duration.Milliseconds(),
		report.NodeCount(),
		report.BatchesDispatched,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert feed: %w", err)
	}

	feedID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get feed id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO feed_nodes (feed_id, node_id, name, kind, digest)
	VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // Read-only cleanup

	for id, node := range report.Nodes {
		if _, err := stmt.ExecContext(ctx, feedID, string(id), node.Name, string(node.Kind), node.Digest()); err != nil {
			return 0, fmt.Errorf("failed to insert node %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return feedID, nil
}

// GetLatestFeed retrieves the most recent feed report for a file key.
// Returns nil without error when no feed exists.
func (fdb *FeedDB) GetLatestFeed(ctx context.Context, fileKey string) (*model.FeedReport, error) {
	query := `
	SELECT report_json FROM feeds
	WHERE file_key = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := fdb.db.QueryRowContext(ctx, query, fileKey).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	var report model.FeedReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetFeedByID retrieves a feed report by its database ID.
// Returns nil without error when the ID does not exist.
func (fdb *FeedDB) GetFeedByID(ctx context.Context, id int64) (*model.FeedReport, error) {
	var reportJSON string
	err := fdb.db.QueryRowContext(ctx, `SELECT report_json FROM feeds WHERE id = ?`, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	var report model.FeedReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListFeedFiles returns the distinct file keys that have stored snapshots.
func (fdb *FeedDB) ListFeedFiles(ctx context.Context) ([]string, error) {
	rows, err := fdb.db.QueryContext(ctx, `
	SELECT DISTINCT file_key FROM feeds
	ORDER BY file_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan file key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// FeedMetadata contains summary information about a stored feed.
// This is used for displaying feed history without loading the full report.
type FeedMetadata struct {
	// ID is the unique identifier of the feed in the database.
	ID int64

	// FileKey is the Figma file key.
	FileKey string

	// FileName is the file's display name at fetch time.
	FileName string

	// FileVersion is the file's version identifier at fetch time.
	FileVersion string

	// Timestamp is when the feed ran.
	Timestamp time.Time

	// NodeCount is the number of nodes the crawl stored.
	NodeCount int

	// Batches is the number of API batches the crawl issued.
	Batches int
}

// GetFeedHistory retrieves metadata for every feed of a file key, most
// recent first.
func (fdb *FeedDB) GetFeedHistory(ctx context.Context, fileKey string) ([]FeedMetadata, error) {
	rows, err := fdb.db.QueryContext(ctx, `
	SELECT id, file_key, file_name, file_version, timestamp, node_count, batches
	FROM feeds
	WHERE file_key = ?
	ORDER BY timestamp DESC, id DESC
	`, fileKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed history: %w", err)
	}
	defer rows.Close()

	var results []FeedMetadata
	for rows.Next() {
		var meta FeedMetadata
		var timestamp string
		var name, version sql.NullString

		if err := rows.Scan(&meta.ID, &meta.FileKey, &name, &version, &timestamp, &meta.NodeCount, &meta.Batches); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.FileName = name.String
		meta.FileVersion = version.String
		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// NodeChange identifies one node in a snapshot diff.
type NodeChange struct {
	// ID is the node identifier.
	ID model.NodeID

	// Name is the node's name in the newer snapshot (or the older one,
	// for removed nodes).
	Name string

	// Kind is the node's kind.
	Kind model.NodeKind
}

// SnapshotDiff is the structural difference between two feed snapshots.
type SnapshotDiff struct {
	// Older is the metadata of the earlier snapshot.
	Older FeedMetadata

	// Newer is the metadata of the later snapshot.
	Newer FeedMetadata

	// Added lists nodes present only in the newer snapshot.
	Added []NodeChange

	// Removed lists nodes present only in the older snapshot.
	Removed []NodeChange

	// Changed lists nodes present in both snapshots whose digests differ.
	Changed []NodeChange
}

// InSync reports whether the two snapshots are structurally identical.
func (d *SnapshotDiff) InSync() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// CompareLatest diffs the two most recent snapshots of a file key using
// the per-node digest rows. Returns an error when fewer than two snapshots
// exist.
func (fdb *FeedDB) CompareLatest(ctx context.Context, fileKey string) (*SnapshotDiff, error) {
	history, err := fdb.GetFeedHistory(ctx, fileKey)
	if err != nil {
		return nil, err
	}
	if len(history) < 2 {
		return nil, fmt.Errorf("need at least two snapshots of %s to compare, have %d", fileKey, len(history))
	}

	return fdb.CompareFeeds(ctx, history[1], history[0])
}

// CompareFeeds diffs two stored snapshots identified by their metadata.
func (fdb *FeedDB) CompareFeeds(ctx context.Context, older, newer FeedMetadata) (*SnapshotDiff, error) {
	oldNodes, err := fdb.feedNodes(ctx, older.ID)
	if err != nil {
		return nil, err
	}
	newNodes, err := fdb.feedNodes(ctx, newer.ID)
	if err != nil {
		return nil, err
	}

	diff := &SnapshotDiff{Older: older, Newer: newer}

	for id, n := range newNodes {
		old, ok := oldNodes[id]
		switch {
		case !ok:
			diff.Added = append(diff.Added, n.change(id))
		case old.digest != n.digest:
			diff.Changed = append(diff.Changed, n.change(id))
		}
	}
	for id, n := range oldNodes {
		if _, ok := newNodes[id]; !ok {
			diff.Removed = append(diff.Removed, n.change(id))
		}
	}

	return diff, nil
}

// nodeRow is one feed_nodes row keyed by node id.
type nodeRow struct {
	name   string
	kind   string
	digest string
}

func (n nodeRow) change(id model.NodeID) NodeChange {
	return NodeChange{ID: id, Name: n.name, Kind: model.NodeKind(n.kind)}
}

// feedNodes loads the digest rows of one snapshot into a map.
func (fdb *FeedDB) feedNodes(ctx context.Context, feedID int64) (map[model.NodeID]nodeRow, error) {
	rows, err := fdb.db.QueryContext(ctx, `
	SELECT node_id, name, kind, digest FROM feed_nodes
	WHERE feed_id = ?
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot nodes: %w", err)
	}
	defer rows.Close()

	nodes := make(map[model.NodeID]nodeRow)
	for rows.Next() {
		var id string
		var row nodeRow
		var name, kind sql.NullString

		if err := rows.Scan(&id, &name, &kind, &row.digest); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot node: %w", err)
		}
		row.name = name.String
		row.kind = kind.String
		nodes[model.NodeID(id)] = row
	}

	return nodes, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999", // what SaveFeedReport writes; fraction optional
	"2006-01-02 15:04:05",     // SQLite default datetime format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
