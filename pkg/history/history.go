// Package history persists the node's activity log to SQLite. The Recorder
// is the write side used by the core loops; the Reader serves the `logs`
// command and other read-only tooling.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Entry represents one recorded activity line.
type Entry struct {
	ID        int64
	Kind      string
	Peer      string
	Detail    string
	CreatedAt time.Time
}

// Activity kinds written by the core loops.
const (
	KindMessage        = "message"
	KindSend           = "send"
	KindBroadcast      = "broadcast"
	KindTrust          = "trust"
	KindSession        = "session"
	KindConnected      = "connected"
	KindConnectFailed  = "connect_failed"
	KindDisconnected   = "disconnected"
	KindSendFailed     = "send_failed"
	KindPeerDiscovered = "peer_discovered"
)

const schema = `
CREATE TABLE IF NOT EXISTS activity (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL,
	peer       TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%S','now'))
);
CREATE INDEX IF NOT EXISTS idx_activity_peer ON activity(peer);
CREATE INDEX IF NOT EXISTS idx_activity_kind ON activity(kind);
`

// Recorder appends activity entries to the node database.
type Recorder struct {
	db *sql.DB
}

// NewRecorder opens (creating if needed) the node database in WAL mode and
// ensures the activity schema exists.
func NewRecorder(dbPath string) (*Recorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Record appends one entry. Kind should be one of the Kind constants; peer
// may be empty for node-level activity.
func (r *Recorder) Record(kind, peer, detail string) error {
	_, err := r.db.Exec(
		"INSERT INTO activity (kind, peer, detail) VALUES (?, ?, ?)",
		kind, peer, detail,
	)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Close releases the database connection.
// Safe to call multiple times.
func (r *Recorder) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// QueryOpts specifies filter criteria for reading activity.
type QueryOpts struct {
	// Peer filters entries to a specific peer fingerprint or alias.
	Peer string

	// Kind filters to a specific activity kind (e.g. "message_in").
	Kind string

	// After filters entries created after this time (inclusive)
	After *time.Time

	// Before filters entries created before this time (inclusive)
	Before *time.Time

	// Limit restricts the number of results (0 = no limit)
	Limit int
}

// Reader provides read-only access to the activity log.
type Reader struct {
	db *sql.DB
}

// NewReader opens the node database in read-only mode with WAL.
// Returns an error if the database doesn't exist or cannot be opened.
func NewReader(dbPath string) (*Reader, error) {
	// Verify database file exists before attempting to open
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}

	// Open in read-only mode with WAL to avoid blocking the running node
	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Reader{db: db}, nil
}

// Close releases the database connection.
// Safe to call multiple times.
func (r *Reader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Query retrieves entries matching the given filter criteria, newest first.
// Returns an empty slice if nothing matches.
func (r *Reader) Query(ctx context.Context, opts QueryOpts) ([]Entry, error) {
	query, args := buildQuery(opts)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAtStr string

		if err := rows.Scan(&e.ID, &e.Kind, &e.Peer, &e.Detail, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		// Parse ISO8601 timestamp from SQLite
		if createdAtStr != "" {
			parsedTime, err := time.Parse("2006-01-02 15:04:05", createdAtStr)
			if err != nil {
				parsedTime, err = time.Parse(time.RFC3339, createdAtStr)
				if err != nil {
					return nil, fmt.Errorf("parse created_at: %w", err)
				}
			}
			e.CreatedAt = parsedTime
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	return entries, nil
}

// buildQuery constructs the SQL query and arguments from QueryOpts.
func buildQuery(opts QueryOpts) (string, []any) {
	var conditions []string
	var args []any

	query := "SELECT id, kind, peer, detail, created_at FROM activity WHERE 1=1"

	if opts.Peer != "" {
		conditions = append(conditions, "peer = ?")
		args = append(args, opts.Peer)
	}

	if opts.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, opts.Kind)
	}

	if opts.After != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.After.Format("2006-01-02 15:04:05"))
	}

	if opts.Before != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, opts.Before.Format("2006-01-02 15:04:05"))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	// Newest first
	query += " ORDER BY id DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	return query, args
}

// DefaultDBPath returns the default path to the node database.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".murmur", "node.db")
}
