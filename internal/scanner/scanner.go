// Package scanner discovers processable source files under a project
// root, honoring .gitignore rules, configured include/exclude patterns,
// and a maximum file size. Discovery is glue around the pipeline: the
// engine consumes its output and never walks the filesystem itself.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/srcmetrics/srcmetrics/internal/config"
	"github.com/srcmetrics/srcmetrics/internal/document"
	"github.com/srcmetrics/srcmetrics/internal/gitignore"
)

// FileInfo describes one discovered file.
type FileInfo struct {
	// Path is relative to the scan root, slash-separated.
	Path string
	// AbsPath is the absolute path.
	AbsPath string
	// Size is the file size in bytes.
	Size int64
}

// Options configures a scan.
type Options struct {
	// Root is the directory to scan.
	Root string

	// Include restricts results to matching patterns (empty = all).
	Include []string

	// Exclude skips matching patterns in addition to .gitignore rules.
	Exclude []string

	// MaxFileSize skips files larger than this many bytes (0 = no limit).
	MaxFileSize int64

	// Workers bounds the stat worker pool (0 = NumCPU).
	Workers int
}

// Scan walks the root and returns the processable files sorted ascending
// by size, the order the pipeline consumes them in: cheap work first,
// failures surface early.
func Scan(ctx context.Context, opts Options) ([]FileInfo, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root: %w", err)
	}

	ignore := gitignore.New(opts.Exclude...)
	ignore.Add(config.DataDirName + "/")
	ignore.Add(".git/")
	if err := ignore.AddFile(filepath.Join(root, ".gitignore")); err != nil {
		slog.Warn("failed to read .gitignore", slog.String("error", err.Error()))
	}

	var include *gitignore.Matcher
	if len(opts.Include) > 0 {
		include = gitignore.New(opts.Include...)
	}

	var candidates []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("scan error", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if ignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		// Symlinks are skipped; following them risks cycles and
		// double-counting content outside the root.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if ignore.Match(rel, false) {
			return nil
		}
		if include != nil && !include.Match(rel, false) {
			return nil
		}
		if _, ok := document.LanguageForPath(rel); !ok {
			return nil
		}
		candidates = append(candidates, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var mu sync.Mutex
	var files []FileInfo

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, rel := range candidates {
		rel := rel
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			abs := filepath.Join(root, filepath.FromSlash(rel))
			info, err := os.Lstat(abs)
			if err != nil {
				slog.Warn("stat failed, skipping",
					slog.String("path", rel), slog.String("error", err.Error()))
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
				slog.Warn("file exceeds size limit, skipping",
					slog.String("path", rel), slog.Int64("size", info.Size()))
				return nil
			}
			mu.Lock()
			files = append(files, FileInfo{Path: rel, AbsPath: abs, Size: info.Size()})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Size != files[j].Size {
			return files[i].Size < files[j].Size
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// TotalBytes sums the sizes of the given files, for rate accounting.
func TotalBytes(files []FileInfo) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
