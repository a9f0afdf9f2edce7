// Package gitignore provides a compact gitignore-style pattern matcher
// covering the subset the scanner needs: anchored and unanchored patterns,
// directory-only patterns, negation, and the *, **, ? wildcards.
package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// rule is one compiled pattern. Later rules override earlier ones.
type rule struct {
	regex    *regexp.Regexp // pattern and anything beneath it
	self     *regexp.Regexp // pattern itself only
	negation bool
	dirOnly  bool
}

// Matcher holds compiled ignore patterns.
type Matcher struct {
	rules []rule
}

// New creates a matcher from the given patterns. Invalid or empty
// patterns are skipped.
func New(patterns ...string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		m.Add(p)
	}
	return m
}

// Add compiles and appends one pattern.
func (m *Matcher) Add(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}

	r := rule{}
	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	// A slash anywhere but the end anchors the pattern to the root;
	// otherwise it matches at any depth.
	anchored := strings.HasPrefix(pattern, "/") || strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")

	expr := translate(pattern)
	if !anchored {
		expr = "(.*/)?" + expr
	}
	compiled, err := regexp.Compile("^" + expr + "(/.*)?$")
	if err != nil {
		return
	}
	self, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return
	}
	r.regex = compiled
	r.self = self
	m.rules = append(m.rules, r)
}

// AddFile reads patterns from a gitignore file. A missing file is not an
// error.
func (m *Matcher) AddFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open ignore file %s: %w", path, err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		m.Add(s.Text())
	}
	return s.Err()
}

// Match reports whether the slash-separated relative path is ignored.
// The last matching rule wins; negation rules re-include.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	relPath = strings.TrimPrefix(relPath, "./")
	ignored := false
	for _, r := range m.rules {
		if !r.regex.MatchString(relPath) {
			continue
		}
		// A directory-only rule matches the directory and everything
		// beneath it, but not a plain file with the directory's name.
		if r.dirOnly && !isDir && r.self.MatchString(relPath) {
			continue
		}
		ignored = !r.negation
	}
	return ignored
}

// translate converts a glob pattern into a regular expression body.
func translate(pattern string) string {
	var sb strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				// ** crosses directory boundaries.
				sb.WriteString(".*")
				i += 2
				// Swallow a following slash so "a/**/b" matches "a/b".
				if i < len(pattern) && pattern[i] == '/' {
					sb.WriteString("/?")
					i++
				}
				continue
			}
			sb.WriteString("[^/]*")
		case '?':
			sb.WriteString("[^/]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
		i++
	}
	return sb.String()
}
