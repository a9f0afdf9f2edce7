package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/srcmetrics/srcmetrics/internal/errors"
	"github.com/srcmetrics/srcmetrics/internal/plugin"
)

// DefaultCommitInterval is the number of processed documents per
// transaction commit during bulk runs.
const DefaultCommitInterval = 100

// Batch buffers metric writes into bounded transactions. At most one
// transaction is open at a time; it is committed and reopened every
// interval documents, bounding the work lost on interruption while
// amortizing per-transaction overhead.
//
// A Batch is the sole owner of the active transaction. It must be finished
// with Commit or Rollback on every exit path.
type Batch struct {
	store     *Store
	tx        *sql.Tx
	interval  int
	sinceOpen int // documents since the transaction was (re)opened
	documents int
	commits   int
	finished  bool
}

// Begin opens a batch with its first transaction.
// interval <= 0 uses DefaultCommitInterval.
func (s *Store) Begin(interval int) (*Batch, error) {
	if interval <= 0 {
		interval = DefaultCommitInterval
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.New(errors.ErrCodeTxBegin,
			fmt.Sprintf("begin batch transaction: %v", err), err)
	}
	return &Batch{store: s, tx: tx, interval: interval}, nil
}

// WriteMetrics persists one plugin's metric values for a content hash
// inside the open transaction. Metric names are written in lexicographic
// order for deterministic row ordering.
//
// When hintSafe is false, existing rows for (hash, plugin, version) are
// deleted first, guarding against drift when reprocessing without a prior
// dedup guarantee. Records from other plugin versions are left intact so
// old-version results stay queryable. When hintSafe is true the caller
// guarantees no prior rows exist and the delete is skipped.
func (b *Batch) WriteMetrics(ctx context.Context, contentHash, pluginName string, pluginVersion int, metrics map[string]plugin.Value, hintSafe bool) error {
	if b.finished {
		return errors.New(errors.ErrCodeWriteFailed, "write on finished batch", nil)
	}

	if !hintSafe {
		if _, err := b.tx.ExecContext(ctx, `
			DELETE FROM metrics
			WHERE content_hash = ? AND plugin_name = ? AND plugin_version = ?
		`, contentHash, pluginName, pluginVersion); err != nil {
			return errors.StorageError(
				fmt.Sprintf("clear prior records for %s/%s: %v", contentHash, pluginName, err), err)
		}
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := b.tx.ExecContext(ctx, `
			INSERT INTO metrics (content_hash, plugin_name, plugin_version, metric_name, value)
			VALUES (?, ?, ?, ?, ?)
		`, contentHash, pluginName, pluginVersion, name, metrics[name].Driver()); err != nil {
			return errors.StorageError(
				fmt.Sprintf("insert %s/%s/%s: %v", contentHash, pluginName, name, err), err)
		}
	}
	return nil
}

// DocumentDone records that one document finished processing. Every
// interval documents the open transaction is committed and a fresh one
// opened.
func (b *Batch) DocumentDone(ctx context.Context) error {
	if b.finished {
		return errors.New(errors.ErrCodeWriteFailed, "document done on finished batch", nil)
	}
	b.documents++
	b.sinceOpen++
	if b.sinceOpen < b.interval {
		return nil
	}

	if err := b.tx.Commit(); err != nil {
		b.finished = true
		return errors.New(errors.ErrCodeTxCommit,
			fmt.Sprintf("commit batch chunk: %v", err), err)
	}
	b.commits++
	b.sinceOpen = 0
	slog.Debug("batch chunk committed",
		slog.Int("documents", b.documents),
		slog.Int("commits", b.commits))

	tx, err := b.store.db.Begin()
	if err != nil {
		b.finished = true
		return errors.New(errors.ErrCodeTxBegin,
			fmt.Sprintf("reopen batch transaction: %v", err), err)
	}
	b.tx = tx
	return nil
}

// Commit commits any pending work and finishes the batch.
// A chunk with no documents since the last commit still commits cleanly
// but does not count as a committed chunk.
func (b *Batch) Commit() error {
	if b.finished {
		return nil
	}
	b.finished = true
	if err := b.tx.Commit(); err != nil {
		return errors.New(errors.ErrCodeTxCommit,
			fmt.Sprintf("commit batch: %v", err), err)
	}
	if b.sinceOpen > 0 {
		b.commits++
	}
	return nil
}

// Rollback discards uncommitted work and finishes the batch. Safe to call
// after Commit; it is the deferred cleanup on every abnormal exit path so
// no transaction is left open against the store.
func (b *Batch) Rollback() error {
	if b.finished {
		return nil
	}
	b.finished = true
	return b.tx.Rollback()
}

// Commits returns the number of committed chunks so far.
func (b *Batch) Commits() int {
	return b.commits
}

// Documents returns the number of documents recorded via DocumentDone.
func (b *Batch) Documents() int {
	return b.documents
}
