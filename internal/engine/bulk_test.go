package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcmetrics/srcmetrics/internal/cache"
	"github.com/srcmetrics/srcmetrics/internal/document"
	"github.com/srcmetrics/srcmetrics/internal/errors"
	"github.com/srcmetrics/srcmetrics/internal/plugin"
	"github.com/srcmetrics/srcmetrics/internal/progress"
	"github.com/srcmetrics/srcmetrics/internal/scanner"
	"github.com/srcmetrics/srcmetrics/internal/store"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestProcessDirectory_DeduplicatesByContent(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":     goSample,
		"dup/copy.go": goSample,
		"other.go":    "package other\n",
		"notes.txt":   "not source code",
	})

	p := &recordingPlugin{name: "counter", version: 1}
	e := newTestEngine(t, "", p)

	result, err := e.ProcessDirectory(context.Background(), root, scanner.Options{})
	require.NoError(t, err)

	// Three supported files queued; the duplicate content is attributed
	// once, so only two documents reach the plugins.
	assert.Equal(t, 3, result.Queued)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Commits)
	assert.Len(t, p.received, 2)

	records, err := e.store.MetricsForHash(context.Background(), document.HashBytes([]byte(goSample)))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestProcessDirectory_EmptyRoot(t *testing.T) {
	e := newTestEngine(t, "", &recordingPlugin{name: "counter", version: 1})

	result, err := e.ProcessDirectory(context.Background(), t.TempDir(), scanner.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Queued)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, result.Commits)
}

func TestProcessDirectory_RespectsCommitInterval(t *testing.T) {
	// Five distinct files at interval 2: chunks commit at 2 and 4, the
	// final flush covers the fifth.
	files := make(map[string]string, 5)
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("f%d.go", i)] = fmt.Sprintf("package p%d\n", i)
	}
	root := writeTree(t, files)

	p := &recordingPlugin{name: "counter", version: 1}
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	reg, err := plugin.NewRegistry(p)
	require.NoError(t, err)
	parser := document.NewParser()
	t.Cleanup(parser.Close)
	e, err := New(Config{Store: s, Registry: reg, Parser: parser, CommitInterval: 2})
	require.NoError(t, err)

	result, err := e.ProcessDirectory(context.Background(), root, scanner.Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 3, result.Commits)
}

func TestProcessCache_RequiresCache(t *testing.T) {
	e := newTestEngine(t, "", &recordingPlugin{name: "counter", version: 1})

	_, err := e.ProcessCache(context.Background())
	require.Error(t, err)
	var me *errors.Error
	require.True(t, stderrors.As(err, &me))
	assert.Equal(t, errors.ErrCodeNoCache, me.Code)
}

func TestProcessCache_RequiresStudyPhase(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache"), 0)
	require.NoError(t, err)

	e := newTestEngine(t, "", &recordingPlugin{name: "counter", version: 1})
	e.cache = c

	_, err = e.ProcessCache(context.Background())
	require.Error(t, err)
	var me *errors.Error
	require.True(t, stderrors.As(err, &me))
	assert.Equal(t, errors.ErrCodeNotStudied, me.Code)
}

func TestProcessCache_ProcessesEntriesOnce(t *testing.T) {
	ctx := context.Background()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache"), 0)
	require.NoError(t, err)

	p := &recordingPlugin{name: "counter", version: 1}
	e := newTestEngine(t, "", p)
	e.cache = c

	docA := parseSample(t, e, "a.go", goSample)
	docB := parseSample(t, e, "b.go", "package other\n")
	require.NoError(t, c.Put(docA))
	require.NoError(t, c.Put(docB))

	require.NoError(t, e.StudyPlugins(ctx))
	result, err := e.ProcessCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Queued)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Skipped)
	assert.Len(t, p.received, 2)

	// A second pass over the same cache skips everything without
	// touching the plugins again.
	result, err = e.ProcessCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Queued)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, p.received, 2)
}

func TestProcessDirectory_PopulatesCache(t *testing.T) {
	root := writeTree(t, map[string]string{"main.go": goSample})
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache"), 0)
	require.NoError(t, err)

	e := newTestEngine(t, "", &recordingPlugin{name: "counter", version: 1})
	e.cache = c

	_, err = e.ProcessDirectory(context.Background(), root, scanner.Options{})
	require.NoError(t, err)

	entries, err := c.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, document.HashBytes([]byte(goSample)), entries[0].Digest)
	assert.Equal(t, int64(len(goSample)), entries[0].SourceSize)
}

func TestRunBatch_MidRunFailureRollsBackAndRebuildsIndexes(t *testing.T) {
	e := newTestEngine(t, "", &recordingPlugin{name: "counter", version: 1})
	ctx := context.Background()

	failure := stderrors.New("mid-run failure")
	err := e.runBatch(ctx, &BulkResult{}, func(ctx context.Context, batch *store.Batch, _ *progress.Tracker) error {
		require.NoError(t, batch.WriteMetrics(ctx, "h1", "counter", 1,
			map[string]plugin.Value{"nodes": plugin.IntValue(1)}, true))
		return failure
	})
	require.ErrorIs(t, err, failure)

	// The open chunk was rolled back and the store is usable again,
	// indexes included.
	records, err := e.store.MetricsForHash(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, records)
	require.NoError(t, e.store.CreateIndexes(ctx))
}
