// Package plugin defines the metric plugin contract: a named set of metric
// computations over a parsed document, a destructive capability flag, and
// per-plugin dedup state populated during the study phase.
package plugin

import (
	"github.com/srcmetrics/srcmetrics/internal/document"
)

// Func computes one named metric over a document.
type Func func(doc *document.Document) (Value, error)

// Plugin is one unit of metric computation. Implementations declare their
// metrics statically at construction; there is no runtime discovery.
type Plugin interface {
	// Name is the plugin's stable identity.
	Name() string

	// Version is the monotonically-assigned plugin version. Bumping it
	// invalidates all previously recorded content for this plugin.
	Version() int

	// Destructive reports whether the plugin may mutate the document it
	// receives (e.g. by pruning its node tree). The engine clones
	// documents handed to destructive plugins that are not dispatched last.
	Destructive() bool

	// Metrics returns the metric name to computation mapping. The engine
	// iterates names in lexicographic order; the returned map must be
	// stable for the plugin's lifetime.
	Metrics() map[string]Func

	// HasSeen reports whether the content hash was already fully recorded
	// for this plugin at its current version.
	HasSeen(contentHash string) bool

	// MarkSeen records a content hash as processed for the rest of the run.
	MarkSeen(contentHash string)

	// LoadSeen bulk-populates the seen set during the study phase.
	LoadSeen(contentHashes []string)
}

// Seen is the grow-only seen set shared by plugin implementations via
// embedding. It is private per-process state, safe only under the
// single-threaded processing model.
type Seen struct {
	seen map[string]struct{}
}

// HasSeen reports membership of a content hash.
func (s *Seen) HasSeen(contentHash string) bool {
	_, ok := s.seen[contentHash]
	return ok
}

// MarkSeen adds a content hash. The set only grows during a run.
func (s *Seen) MarkSeen(contentHash string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	s.seen[contentHash] = struct{}{}
}

// LoadSeen adds all given hashes, typically from a single bulk store query.
func (s *Seen) LoadSeen(contentHashes []string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{}, len(contentHashes))
	}
	for _, h := range contentHashes {
		s.seen[h] = struct{}{}
	}
}

// SeenCount returns the number of known hashes.
func (s *Seen) SeenCount() int {
	return len(s.seen)
}
