package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_BasicPatterns(t *testing.T) {
	m := New("*.log", "build/", "/rooted.txt", "docs/internal")

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"app.log", false, true},
		{"nested/deep/app.log", false, true},
		{"app.log.bak", false, false},

		{"build", true, true},
		{"build/out.bin", false, true},
		{"build", false, false}, // dir-only pattern, plain file
		{"sub/build", true, true},

		{"rooted.txt", false, true},
		{"sub/rooted.txt", false, false}, // anchored to root

		{"docs/internal", false, true},
		{"docs/internal/page.md", false, true},
		{"other/docs/internal", false, false}, // slash anchors
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir), "%s isDir=%v", tt.path, tt.isDir)
	}
}

func TestMatch_NegationLastRuleWins(t *testing.T) {
	m := New("*.log", "!keep.log")

	assert.True(t, m.Match("app.log", false))
	assert.False(t, m.Match("keep.log", false))
	assert.False(t, m.Match("logs/keep.log", false))

	// Order matters: a later ignore overrides an earlier negation.
	m2 := New("!keep.log", "*.log")
	assert.True(t, m2.Match("keep.log", false))
}

func TestMatch_Wildcards(t *testing.T) {
	m := New("a/**/b", "src/*.go", "file?.txt")

	assert.True(t, m.Match("a/b", false))
	assert.True(t, m.Match("a/x/b", false))
	assert.True(t, m.Match("a/x/y/b", false))
	assert.False(t, m.Match("a", false))

	assert.True(t, m.Match("src/main.go", false))
	assert.False(t, m.Match("src/sub/main.go", false)) // * stops at /

	assert.True(t, m.Match("file1.txt", false))
	assert.False(t, m.Match("file12.txt", false))
}

func TestAdd_SkipsCommentsAndBlanks(t *testing.T) {
	m := New("# a comment", "", "   ", "real.txt")
	assert.False(t, m.Match("# a comment", false))
	assert.True(t, m.Match("real.txt", false))
}

func TestAddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("*.tmp\n# comment\nvendor/\n"), 0o644))

	m := New()
	require.NoError(t, m.AddFile(path))
	assert.True(t, m.Match("x.tmp", false))
	assert.True(t, m.Match("vendor", true))
	assert.False(t, m.Match("main.go", false))

	// Missing file is fine.
	require.NoError(t, m.AddFile(filepath.Join(dir, "absent")))
}
