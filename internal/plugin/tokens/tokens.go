// Package tokens counts the document's token stream after stripping
// comments. Stripping prunes the node tree in place, so the plugin is
// destructive and the engine hands it a clone unless it is dispatched last.
package tokens

import (
	"strings"

	"github.com/srcmetrics/srcmetrics/internal/document"
	"github.com/srcmetrics/srcmetrics/internal/plugin"
)

// Version is bumped whenever a metric definition changes, forcing
// previously-seen content to be reprocessed.
const Version = 1

// Plugin computes token-stream metrics.
type Plugin struct {
	plugin.Seen
}

// New creates the tokens plugin.
func New() *Plugin {
	return &Plugin{}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "tokens" }

// Version implements plugin.Plugin.
func (p *Plugin) Version() int { return Version }

// Destructive implements plugin.Plugin. The comment strip prunes in place.
func (p *Plugin) Destructive() bool { return true }

// Metrics implements plugin.Plugin. Metric names are chosen so that the
// engine's lexicographic evaluation order counts comments before the strip
// removes them: "comments" < "tokens" < "unique_tokens".
func (p *Plugin) Metrics() map[string]plugin.Func {
	return map[string]plugin.Func{
		"comments":      metricComments,
		"tokens":        metricTokens,
		"unique_tokens": metricUniqueTokens,
	}
}

// isComment matches comment nodes across the supported grammars
// ("comment", "line_comment", "block_comment").
func isComment(n *document.Node) bool {
	return n.Type == "comment" || strings.HasSuffix(n.Type, "_comment")
}

func metricComments(doc *document.Document) (plugin.Value, error) {
	var count int64
	doc.Walk(func(n *document.Node) bool {
		if isComment(n) {
			count++
			return false
		}
		return true
	})
	return plugin.IntValue(count), nil
}

// metricTokens strips comments, then counts the surviving leaves.
func metricTokens(doc *document.Document) (plugin.Value, error) {
	doc.Prune(func(n *document.Node) bool {
		return !isComment(n)
	})
	return plugin.IntValue(int64(len(doc.Tokens()))), nil
}

// metricUniqueTokens counts distinct token texts. It runs after
// metricTokens on the same document instance, so comments are already gone.
func metricUniqueTokens(doc *document.Document) (plugin.Value, error) {
	distinct := make(map[string]struct{})
	for _, tok := range doc.Tokens() {
		distinct[doc.NodeText(tok)] = struct{}{}
	}
	return plugin.IntValue(int64(len(distinct))), nil
}
