package engine

import (
	"context"
	"log/slog"
	"os"

	"github.com/srcmetrics/srcmetrics/internal/document"
	"github.com/srcmetrics/srcmetrics/internal/errors"
	"github.com/srcmetrics/srcmetrics/internal/progress"
	"github.com/srcmetrics/srcmetrics/internal/scanner"
	"github.com/srcmetrics/srcmetrics/internal/store"
)

// progressEvery is how many documents pass between advisory progress lines.
const progressEvery = 25

// BulkResult summarizes one bulk run.
type BulkResult struct {
	// Queued is the number of documents discovered for the run.
	Queued int
	// Processed is the number of documents dispatched to plugins.
	Processed int
	// Skipped is the number dedup-gated or failed per-document.
	Skipped int
	// Commits is the number of committed transaction chunks.
	Commits int
	// Bytes is the cumulative raw size of queued documents.
	Bytes int64
}

// ProcessDirectory scans root and processes every discovered file as one
// batch: smallest first, dedup-gated, committed every CommitInterval
// documents, with secondary indexes dropped for the duration of the load.
func (e *Engine) ProcessDirectory(ctx context.Context, root string, scanOpts scanner.Options) (*BulkResult, error) {
	scanOpts.Root = root
	if scanOpts.MaxFileSize == 0 {
		scanOpts.MaxFileSize = e.maxSize
	}
	files, err := scanner.Scan(ctx, scanOpts)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Queued: len(files), Bytes: scanner.TotalBytes(files)}
	if len(files) == 0 {
		slog.Info("no processable files found", slog.String("root", root))
		return result, nil
	}

	err = e.runBatch(ctx, result, func(ctx context.Context, batch *store.Batch, tracker *progress.Tracker) error {
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return err
			}

			source, err := os.ReadFile(f.AbsPath)
			if err != nil {
				slog.Warn("skipping unreadable file",
					slog.String("path", f.Path), slog.String("error", err.Error()))
				result.Skipped++
				tracker.Add(f.Size)
				continue
			}

			// Content hash is known before parsing, so fully-seen
			// documents never reach the parser at all.
			hash := document.HashBytes(source)
			if e.IsFullySeen(hash) {
				result.Skipped++
				tracker.Add(f.Size)
				continue
			}

			doc, err := e.parser.Parse(ctx, f.Path, source)
			if err != nil {
				slog.Warn("skipping unparsable file",
					slog.String("path", f.Path), slog.String("error", err.Error()))
				result.Skipped++
				tracker.Add(f.Size)
				continue
			}

			// Cache before dispatch: the last plugin mutates the original.
			if e.cache != nil {
				if err := e.cache.Put(doc); err != nil {
					slog.Warn("failed to cache document",
						slog.String("path", f.Path), slog.String("error", err.Error()))
				}
			}

			if err := e.processBatched(ctx, batch, tracker, doc, f.Size); err != nil {
				return err
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ProcessCache processes every document in the parsed-document cache as
// one batch. The cache and a completed study phase are required: batch
// mode relies on seen sets both for skipping retrievals and for the
// hint-safe write path.
func (e *Engine) ProcessCache(ctx context.Context) (*BulkResult, error) {
	if e.cache == nil {
		return nil, errors.New(errors.ErrCodeNoCache,
			"cache-based processing requires a configured document cache", nil)
	}
	if !e.studied {
		return nil, errors.New(errors.ErrCodeNotStudied,
			"cache-based processing requires the study phase to run first", nil).
			WithSuggestion("call StudyPlugins before ProcessCache")
	}

	entries, err := e.cache.Entries()
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Queued: len(entries)}
	for _, entry := range entries {
		result.Bytes += entry.SourceSize
	}
	if len(entries) == 0 {
		slog.Info("document cache is empty")
		return result, nil
	}

	err = e.runBatch(ctx, result, func(ctx context.Context, batch *store.Batch, tracker *progress.Tracker) error {
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}

			// The digest is the entry's name; fully-seen documents are
			// skipped without touching the disk.
			if e.IsFullySeen(entry.Digest) {
				result.Skipped++
				tracker.Add(entry.SourceSize)
				continue
			}

			doc, err := e.cache.Retrieve(entry.Digest)
			if err != nil {
				slog.Warn("skipping cache entry",
					slog.String("digest", entry.Digest), slog.String("error", err.Error()))
				result.Skipped++
				tracker.Add(entry.SourceSize)
				continue
			}

			if err := e.processBatched(ctx, batch, tracker, doc, entry.SourceSize); err != nil {
				return err
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// runBatch brackets a bulk load: indexes dropped up front and rebuilt on
// every exit path, one batch whose transaction is rolled back unless the
// run commits, and a progress tracker over the queued byte total.
func (e *Engine) runBatch(ctx context.Context, result *BulkResult, run func(context.Context, *store.Batch, *progress.Tracker) error) error {
	if err := e.store.DropIndexes(ctx); err != nil {
		return err
	}
	defer func() {
		// Rebuild survives cancellation; leaving the store without its
		// secondary indexes would tax every later query.
		if err := e.store.CreateIndexes(context.WithoutCancel(ctx)); err != nil {
			slog.Error("index rebuild failed", slog.String("error", err.Error()))
		}
	}()

	batch, err := e.store.Begin(e.interval)
	if err != nil {
		return err
	}
	defer func() { _ = batch.Rollback() }()

	tracker := progress.NewTracker(result.Bytes)
	if err := run(ctx, batch, tracker); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	result.Commits = batch.Commits()
	if e.progress != nil {
		e.progress(tracker.Summary())
	}
	slog.Info("bulk run complete",
		slog.Int("queued", result.Queued),
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
		slog.Int("commits", result.Commits))
	return nil
}

// processBatched dispatches one document inside a bulk batch and advances
// bookkeeping. hintSafe is true only when the study phase ran: an unseen
// hash is then guaranteed to have no rows at the plugin's current version.
func (e *Engine) processBatched(ctx context.Context, batch *store.Batch, tracker *progress.Tracker, doc *document.Document, size int64) error {
	if err := e.dispatch(ctx, batch, doc, e.studied); err != nil {
		return err
	}
	if err := batch.DocumentDone(ctx); err != nil {
		return err
	}
	tracker.Add(size)
	if e.progress != nil && tracker.Documents()%progressEvery == 0 {
		e.progress(tracker.Summary())
	}
	return nil
}
