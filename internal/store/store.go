// Package store persists metric records to SQLite and owns the batch
// transaction lifecycle. One record exists per (content hash, plugin name,
// plugin version, metric name); reprocessing replaces, never duplicates.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/srcmetrics/srcmetrics/internal/errors"
	"github.com/srcmetrics/srcmetrics/internal/plugin"
)

// Record is one persisted metric fact.
type Record struct {
	ContentHash   string
	PluginName    string
	PluginVersion int
	MetricName    string
	Value         plugin.Value
}

// Stats summarizes store contents for the stats command.
type Stats struct {
	Records        int64
	DistinctHashes int64
	RecordsPerPlug map[string]int64
	SizeBytes      int64
}

// secondaryIndexes are dropped before bulk loads and recreated afterwards.
// Both directions are idempotent so a rerun after a partial failure is safe.
var secondaryIndexes = map[string]string{
	"idx_metrics_hash":   "content_hash",
	"idx_metrics_plugin": "plugin_name",
	"idx_metrics_name":   "metric_name",
	"idx_metrics_value":  "value",
}

const schema = `
CREATE TABLE IF NOT EXISTS metrics (
	content_hash   TEXT NOT NULL,
	plugin_name    TEXT NOT NULL,
	plugin_version INTEGER NOT NULL,
	metric_name    TEXT NOT NULL,
	value          NOT NULL,
	PRIMARY KEY (content_hash, plugin_name, plugin_version, metric_name)
);
`

// Store is the embedded metric-record store. It is the only shared mutable
// resource in the pipeline; all writes go through a Batch.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the metric store at path.
// An empty path opens an in-memory store for testing.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.New(errors.ErrCodeStoreOpen,
				fmt.Sprintf("create store directory: %v", err), err)
		}
		// WAL keeps readers unblocked during the long write transaction;
		// busy_timeout degrades lock contention into waiting.
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreOpen,
			fmt.Sprintf("open store: %v", err), err)
	}

	// Single connection: SQLite allows one writer, and the pipeline is
	// single-threaded anyway. This also keeps :memory: stores coherent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			slog.Debug("pragma not applied", slog.String("pragma", pragma), slog.String("error", err.Error()))
		}
	}

	if path != "" {
		var result string
		if err := db.QueryRow("PRAGMA quick_check").Scan(&result); err == nil && result != "ok" {
			_ = db.Close()
			return nil, errors.New(errors.ErrCodeStoreCorrupt,
				fmt.Sprintf("store corrupted at %s: %s", path, result), nil).
				WithSuggestion("remove the file and reprocess the corpus")
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.New(errors.ErrCodeStoreOpen,
			fmt.Sprintf("create schema: %v", err), err)
	}

	s := &Store{db: db, path: path}
	if err := s.CreateIndexes(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateIndexes creates the secondary indexes if missing. Idempotent.
func (s *Store) CreateIndexes(ctx context.Context) error {
	for name, column := range secondaryIndexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON metrics(%s)", name, column)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.New(errors.ErrCodeIndexRebuild,
				fmt.Sprintf("create index %s: %v", name, err), err)
		}
	}
	return nil
}

// DropIndexes drops the secondary indexes if present. Idempotent.
// Called before large bulk loads; insert throughput beats index
// maintenance plus a one-time rebuild.
func (s *Store) DropIndexes(ctx context.Context) error {
	for name := range secondaryIndexes {
		stmt := fmt.Sprintf("DROP INDEX IF EXISTS %s", name)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.New(errors.ErrCodeIndexRebuild,
				fmt.Sprintf("drop index %s: %v", name, err), err)
		}
	}
	return nil
}

// DistinctHashes returns the content hashes already recorded for a plugin
// at a specific version. This is the study-phase bulk query backing each
// plugin's seen set; a plugin at a new version gets an empty result and
// reprocesses everything.
func (s *Store) DistinctHashes(ctx context.Context, pluginName string, pluginVersion int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT content_hash FROM metrics
		WHERE plugin_name = ? AND plugin_version = ?
	`, pluginName, pluginVersion)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStudyFailed,
			fmt.Sprintf("study %s v%d: %v", pluginName, pluginVersion, err), err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, errors.New(errors.ErrCodeStudyFailed,
				fmt.Sprintf("scan hash: %v", err), err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// MetricsForHash returns every record for a content hash, across plugins
// and versions, ordered deterministically.
func (s *Store) MetricsForHash(ctx context.Context, contentHash string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_hash, plugin_name, plugin_version, metric_name, value
		FROM metrics WHERE content_hash = ?
		ORDER BY plugin_name, plugin_version, metric_name
	`, contentHash)
	if err != nil {
		return nil, fmt.Errorf("query metrics for %s: %w", contentHash, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var raw any
		if err := rows.Scan(&r.ContentHash, &r.PluginName, &r.PluginVersion, &r.MetricName, &raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		value, err := plugin.FromDriver(raw)
		if err != nil {
			return nil, fmt.Errorf("record %s/%s/%s: %w", r.ContentHash, r.PluginName, r.MetricName, err)
		}
		r.Value = value
		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats returns store-level counts for reporting.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{RecordsPerPlug: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM metrics").Scan(&st.Records); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT content_hash) FROM metrics").Scan(&st.DistinctHashes); err != nil {
		return nil, fmt.Errorf("count hashes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT plugin_name, COUNT(*) FROM metrics GROUP BY plugin_name")
	if err != nil {
		return nil, fmt.Errorf("count per plugin: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan plugin count: %w", err)
		}
		st.RecordsPerPlug[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			st.SizeBytes = info.Size()
		}
	}
	return st, nil
}
