// Package cache is the on-disk provider of previously parsed documents.
// Entries are content-addressed by digest, gob-serialized, lz4-compressed,
// and sharded by digest prefix. A small LRU front avoids re-reading
// entries retrieved repeatedly within one run.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pierrec/lz4/v4"

	"github.com/srcmetrics/srcmetrics/internal/document"
	"github.com/srcmetrics/srcmetrics/internal/errors"
)

// entryExt is the on-disk suffix of cache entries.
const entryExt = ".doc.lz4"

// DefaultMemoryEntries is the default LRU capacity.
const DefaultMemoryEntries = 256

// ErrNotFound is returned by Retrieve when no entry exists for a digest.
var ErrNotFound = errors.New(errors.ErrCodeCacheMiss, "document not in cache", nil)

// Entry describes one cached document without loading it. SourceSize is
// the raw source byte length, recorded for rate accounting.
type Entry struct {
	Digest     string
	SourceSize int64
}

// Cache stores serialized parsed documents under a directory.
type Cache struct {
	dir string
	mem *lru.Cache[string, *document.Document]
}

// Open opens (or creates) a document cache at dir.
// memoryEntries <= 0 uses DefaultMemoryEntries.
func Open(dir string, memoryEntries int) (*Cache, error) {
	if memoryEntries <= 0 {
		memoryEntries = DefaultMemoryEntries
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	mem, _ := lru.New[string, *document.Document](memoryEntries)
	return &Cache{dir: dir, mem: mem}, nil
}

// entryPath shards entries by the first two digest characters so one
// directory never accumulates the whole corpus.
func (c *Cache) entryPath(digest string) string {
	shard := "00"
	if len(digest) >= 2 {
		shard = digest[:2]
	}
	return filepath.Join(c.dir, shard, digest+entryExt)
}

// Put serializes the document into the cache, keyed by its content hash.
// The entry starts with a fixed 16-byte decimal header holding the raw
// source length, so Entries can report sizes without decompressing.
// The write goes through a temp file and rename so readers never observe
// a partial entry.
func (c *Cache) Put(doc *document.Document) error {
	path := c.entryPath(doc.ContentHash())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache shard: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := fmt.Fprintf(f, "%016d", doc.Size()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write cache header: %w", err)
	}

	zw := lz4.NewWriter(f)
	if err := doc.Encode(zw); err != nil {
		_ = f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close cache entry: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish cache entry: %w", err)
	}
	// The caller keeps mutating its document instance (destructive
	// plugins prune it), so the memory layer gets its own copy.
	c.mem.Add(doc.ContentHash(), doc.Clone())
	return nil
}

// Retrieve loads a document by digest. Returns ErrNotFound when absent.
// The returned document is the caller's to own; the cached instance is
// never shared, so destructive plugins cannot corrupt later retrievals.
func (c *Cache) Retrieve(digest string) (*document.Document, error) {
	if doc, ok := c.mem.Get(digest); ok {
		return doc.Clone(), nil
	}

	f, err := os.Open(c.entryPath(digest))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open cache entry %s: %w", digest, err)
	}
	defer f.Close()

	header := make([]byte, 16)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, errors.New(errors.ErrCodeCacheCorrupt,
			fmt.Sprintf("cache entry %s: truncated header", digest), err)
	}

	doc, err := document.Decode(lz4.NewReader(f))
	if err != nil {
		return nil, errors.New(errors.ErrCodeCacheCorrupt,
			fmt.Sprintf("cache entry %s: %v", digest, err), err)
	}
	if doc.ContentHash() != digest {
		return nil, errors.New(errors.ErrCodeCacheCorrupt,
			fmt.Sprintf("cache entry %s decoded to hash %s", digest, doc.ContentHash()), nil)
	}

	c.mem.Add(digest, doc)
	return doc.Clone(), nil
}

// Entries enumerates cached documents with their source sizes, without
// loading them. Results are sorted ascending by size, the batch processing
// order.
func (c *Cache) Entries() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), entryExt) {
			return err
		}
		digest := strings.TrimSuffix(d.Name(), entryExt)
		size, err := readSourceSize(path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Digest: digest, SourceSize: size})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate cache: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SourceSize != entries[j].SourceSize {
			return entries[i].SourceSize < entries[j].SourceSize
		}
		return entries[i].Digest < entries[j].Digest
	})
	return entries, nil
}

// readSourceSize reads the fixed-width size header of an entry.
func readSourceSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open cache entry: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, errors.New(errors.ErrCodeCacheCorrupt,
			fmt.Sprintf("cache entry %s: truncated header", filepath.Base(path)), err)
	}
	var size int64
	if _, err := fmt.Sscanf(string(header), "%d", &size); err != nil {
		return 0, errors.New(errors.ErrCodeCacheCorrupt,
			fmt.Sprintf("cache entry %s: bad size header", filepath.Base(path)), err)
	}
	return size, nil
}
