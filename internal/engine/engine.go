// Package engine orchestrates the metrics pipeline: plugin dispatch with
// mutation-aware document cloning, content-hash deduplication, and batch
// persistence with index-rebuild optimization for bulk loads.
//
// Processing is strictly single-threaded. Plugin seen-sets and the open
// batch transaction are mutated in place with no synchronization, which is
// only safe because documents are handled one at a time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/srcmetrics/srcmetrics/internal/cache"
	"github.com/srcmetrics/srcmetrics/internal/document"
	"github.com/srcmetrics/srcmetrics/internal/errors"
	"github.com/srcmetrics/srcmetrics/internal/plugin"
	"github.com/srcmetrics/srcmetrics/internal/store"
)

// Config contains the engine's injected dependencies.
type Config struct {
	// Store is the metric store (required).
	Store *store.Store

	// Registry holds the plugins in dispatch order (required).
	Registry *plugin.Registry

	// Parser turns raw bytes into documents (required).
	Parser *document.Parser

	// Cache is the parsed-document cache (optional). When set, freshly
	// parsed documents are cached and ProcessCache becomes available.
	Cache *cache.Cache

	// CommitInterval is the documents-per-commit cadence for bulk runs.
	// Zero uses store.DefaultCommitInterval.
	CommitInterval int

	// MaxFileSize skips larger files during directory runs (0 = no limit).
	MaxFileSize int64

	// Progress, when set, receives advisory progress lines during bulk
	// runs. It has no effect on correctness or ordering.
	Progress func(line string)
}

// Engine owns each document exclusively for the duration of one
// processing call and coordinates plugins, dedup, and persistence.
type Engine struct {
	store    *store.Store
	registry *plugin.Registry
	parser   *document.Parser
	cache    *cache.Cache
	interval int
	maxSize  int64
	progress func(string)
	studied  bool
}

// New creates an engine from injected dependencies.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.ConfigError("store is required", nil)
	}
	if cfg.Registry == nil || cfg.Registry.Len() == 0 {
		return nil, errors.ConfigError("at least one plugin is required", nil)
	}
	if cfg.Parser == nil {
		return nil, errors.ConfigError("parser is required", nil)
	}
	interval := cfg.CommitInterval
	if interval <= 0 {
		interval = store.DefaultCommitInterval
	}
	return &Engine{
		store:    cfg.Store,
		registry: cfg.Registry,
		parser:   cfg.Parser,
		cache:    cfg.Cache,
		interval: interval,
		maxSize:  cfg.MaxFileSize,
		progress: cfg.Progress,
	}, nil
}

// StudyPlugins eagerly populates every plugin's seen set from persisted
// records matching its name and current version. A plugin at a new version
// gets an empty set and reprocesses everything, which is how metric
// definition changes propagate.
func (e *Engine) StudyPlugins(ctx context.Context) error {
	for _, p := range e.registry.Ordered() {
		hashes, err := e.store.DistinctHashes(ctx, p.Name(), p.Version())
		if err != nil {
			return err
		}
		p.LoadSeen(hashes)
		slog.Debug("studied plugin",
			slog.String("plugin", p.Name()),
			slog.Int("version", p.Version()),
			slog.Int("seen", len(hashes)))
	}
	e.studied = true
	return nil
}

// Studied reports whether the study phase has run.
func (e *Engine) Studied() bool {
	return e.studied
}

// IsFullySeen reports whether every registered plugin already has records
// for the content hash at its current version. It is a pure fast path for
// skipping document loads; the per-plugin check at dispatch time remains
// authoritative, so a false negative only costs work, never correctness.
func (e *Engine) IsFullySeen(contentHash string) bool {
	for _, p := range e.registry.Ordered() {
		if !p.HasSeen(contentHash) {
			return false
		}
	}
	return true
}

// ProcessDocument runs every registered plugin over one document inside a
// short-lived batch. For bulk runs the engine dispatches into a long-lived
// batch instead; the semantics are identical.
func (e *Engine) ProcessDocument(ctx context.Context, doc *document.Document, hintSafe bool) error {
	batch, err := e.store.Begin(e.interval)
	if err != nil {
		return err
	}
	defer func() { _ = batch.Rollback() }()

	if err := e.dispatch(ctx, batch, doc, hintSafe); err != nil {
		return err
	}
	if err := batch.DocumentDone(ctx); err != nil {
		return err
	}
	return batch.Commit()
}

// dispatch is the per-document plugin loop.
//
// Plugins run in registry order: non-destructive first, destructive last.
// Every plugin except the final one receives a clone when it is
// destructive, protecting the original for the plugins that follow. The
// final plugin always receives the original directly; nothing runs after
// it, so the mutation is safe and the clone would be wasted cost.
func (e *Engine) dispatch(ctx context.Context, batch *store.Batch, doc *document.Document, hintSafe bool) error {
	hash := doc.ContentHash()
	plugins := e.registry.Ordered()
	last := len(plugins) - 1

	for i, p := range plugins {
		// Lazy per-plugin dedup, in case the document was loaded for
		// other plugins' sake or appears twice in one run.
		if p.HasSeen(hash) {
			continue
		}

		target := doc
		if i != last && p.Destructive() {
			target = doc.Clone()
		}

		values := make(map[string]plugin.Value)
		metrics := p.Metrics()
		for _, name := range plugin.MetricNames(p) {
			value, err := metrics[name](target)
			if err != nil {
				// Per-metric failure: omit the metric, keep going.
				slog.Warn("metric computation failed",
					slog.String("plugin", p.Name()),
					slog.String("metric", name),
					slog.String("hash", hash),
					slog.String("path", doc.Path()),
					slog.String("error", err.Error()))
				continue
			}
			values[name] = value
		}

		// Nothing succeeded: leave prior records untouched and do not
		// mark the hash seen, so a later run retries this plugin.
		if len(values) == 0 {
			slog.Warn("plugin produced no metrics",
				slog.String("plugin", p.Name()),
				slog.String("hash", hash))
			continue
		}

		if err := batch.WriteMetrics(ctx, hash, p.Name(), p.Version(), values, hintSafe); err != nil {
			return err
		}
		p.MarkSeen(hash)
	}
	return nil
}

// ProcessFile reads, parses, and processes a single file outside any bulk
// run. hintSafe is false: nothing guarantees the content was never
// recorded before.
func (e *Engine) ProcessFile(ctx context.Context, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return errors.New(errors.ErrCodeFileUnreadable,
			fmt.Sprintf("read %s: %v", path, err), err).WithDetail("path", path)
	}

	doc, err := e.parser.Parse(ctx, path, source)
	if err != nil {
		return err
	}

	if e.cache != nil {
		if err := e.cache.Put(doc); err != nil {
			slog.Warn("failed to cache document",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	return e.ProcessDocument(ctx, doc, false)
}
