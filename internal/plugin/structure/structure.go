// Package structure measures the shape of a parsed document: byte size,
// line count, node count, and tree depth. It never mutates the document.
package structure

import (
	"bytes"

	"github.com/srcmetrics/srcmetrics/internal/document"
	"github.com/srcmetrics/srcmetrics/internal/plugin"
)

// Version is bumped whenever a metric definition changes, forcing
// previously-seen content to be reprocessed.
const Version = 1

// Plugin computes structural size metrics.
type Plugin struct {
	plugin.Seen
}

// New creates the structure plugin.
func New() *Plugin {
	return &Plugin{}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "structure" }

// Version implements plugin.Plugin.
func (p *Plugin) Version() int { return Version }

// Destructive implements plugin.Plugin. Structure metrics only read.
func (p *Plugin) Destructive() bool { return false }

// Metrics implements plugin.Plugin.
func (p *Plugin) Metrics() map[string]plugin.Func {
	return map[string]plugin.Func{
		"bytes":    metricBytes,
		"lines":    metricLines,
		"nodes":    metricNodes,
		"depth":    metricDepth,
		"language": metricLanguage,
	}
}

func metricBytes(doc *document.Document) (plugin.Value, error) {
	return plugin.IntValue(doc.Size()), nil
}

func metricLines(doc *document.Document) (plugin.Value, error) {
	src := doc.Source()
	if len(src) == 0 {
		return plugin.IntValue(0), nil
	}
	lines := int64(bytes.Count(src, []byte{'\n'}))
	if src[len(src)-1] != '\n' {
		lines++
	}
	return plugin.IntValue(lines), nil
}

func metricNodes(doc *document.Document) (plugin.Value, error) {
	var count int64
	doc.Walk(func(*document.Node) bool {
		count++
		return true
	})
	return plugin.IntValue(count), nil
}

func metricDepth(doc *document.Document) (plugin.Value, error) {
	return plugin.IntValue(depth(doc.Root())), nil
}

func depth(n *document.Node) int64 {
	if n == nil {
		return 0
	}
	var max int64
	for _, child := range n.Children {
		if d := depth(child); d > max {
			max = d
		}
	}
	return max + 1
}

func metricLanguage(doc *document.Document) (plugin.Value, error) {
	return plugin.StringValue(doc.Language()), nil
}
