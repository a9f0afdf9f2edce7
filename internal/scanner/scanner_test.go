package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestScan_FiltersUnsupportedExtensions(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":      "package main\n",
		"script.py":    "x = 1\n",
		"web/app.tsx":  "export {}\n",
		"README.md":    "# readme\n",
		"data.json":    "{}",
		"bin/Makefile": "all:\n",
	})

	files, err := Scan(context.Background(), Options{Root: root})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "script.py", "web/app.tsx"}, paths(files))
}

func TestScan_SortsBySizeAscending(t *testing.T) {
	root := writeTree(t, map[string]string{
		"big.go":    strings.Repeat("// x\n", 100),
		"small.go":  "package s\n",
		"medium.go": strings.Repeat("// x\n", 10),
	})

	files, err := Scan(context.Background(), Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go", "medium.go", "big.go"}, paths(files))
}

func TestScan_HonorsGitignoreAndDataDir(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":                  "package main\n",
		"vendor/dep.go":            "package dep\n",
		"ignored.go":               "package i\n",
		".srcmetrics/cache/old.go": "package stale\n",
		".gitignore":               "vendor/\nignored.go\n",
	})

	files, err := Scan(context.Background(), Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, paths(files))
}

func TestScan_IncludeAndExcludePatterns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/one.go":  "package a\n",
		"b/two.go":  "package b\n",
		"a/gen.go":  "package a\n",
		"c/util.py": "x = 1\n",
	})

	files, err := Scan(context.Background(), Options{
		Root:    root,
		Include: []string{"a/**"},
		Exclude: []string{"a/gen.go"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.go"}, paths(files))
}

func TestScan_SkipsOversizeFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"small.go": "package s\n",
		"large.go": strings.Repeat("// padding\n", 200),
	})

	files, err := Scan(context.Background(), Options{Root: root, MaxFileSize: 64})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, paths(files))
}

func TestScan_SkipsSymlinks(t *testing.T) {
	root := writeTree(t, map[string]string{"real.go": "package r\n"})
	require.NoError(t, os.Symlink(
		filepath.Join(root, "real.go"), filepath.Join(root, "link.go")))

	files, err := Scan(context.Background(), Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{"real.go"}, paths(files))
}

func TestTotalBytes(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.go": "package a\n",
		"b.go": "package bb\n",
	})
	files, err := Scan(context.Background(), Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, int64(21), TotalBytes(files))
	assert.Zero(t, TotalBytes(nil))
}

func TestScan_CancelledContext(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "package a\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, Options{Root: root})
	require.Error(t, err)
}
