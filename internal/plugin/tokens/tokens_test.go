package tokens

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcmetrics/srcmetrics/internal/document"
	"github.com/srcmetrics/srcmetrics/internal/plugin"
)

const goSample = `package sample

// add returns the sum.
// It has two comment lines.
func add(a, b int) int {
	return a + b // inline
}
`

func parseSample(t *testing.T) *document.Document {
	t.Helper()
	p := document.NewParser()
	t.Cleanup(p.Close)
	doc, err := p.Parse(context.Background(), "sample.go", []byte(goSample))
	require.NoError(t, err)
	return doc
}

func TestPlugin_Declaration(t *testing.T) {
	p := New()
	assert.Equal(t, "tokens", p.Name())
	assert.Equal(t, Version, p.Version())
	assert.True(t, p.Destructive())
	// Lexicographic evaluation must count comments before the strip.
	assert.Equal(t,
		[]string{"comments", "tokens", "unique_tokens"},
		plugin.MetricNames(p))
}

// runAll evaluates the metrics in engine order against one document,
// mirroring how the pipeline dispatches a destructive plugin.
func runAll(t *testing.T, doc *document.Document) map[string]plugin.Value {
	t.Helper()
	p := New()
	metrics := p.Metrics()
	values := make(map[string]plugin.Value)
	for _, name := range plugin.MetricNames(p) {
		v, err := metrics[name](doc)
		require.NoError(t, err)
		values[name] = v
	}
	return values
}

func TestMetrics_CommentsCountedBeforeStrip(t *testing.T) {
	doc := parseSample(t)
	values := runAll(t, doc)

	assert.Equal(t, int64(3), values["comments"].Int())
	assert.Greater(t, values["tokens"].Int(), int64(0))
	assert.Greater(t, values["unique_tokens"].Int(), int64(0))
	assert.LessOrEqual(t, values["unique_tokens"].Int(), values["tokens"].Int())

	// The strip mutated the document: no comment survives.
	doc.Walk(func(n *document.Node) bool {
		assert.NotEqual(t, "comment", n.Type)
		return true
	})
}

func TestMetrics_TokenCountExcludesComments(t *testing.T) {
	p := document.NewParser()
	t.Cleanup(p.Close)
	ctx := context.Background()

	bare, err := p.Parse(ctx, "a.go", []byte("package x\n\nfunc f() {}\n"))
	require.NoError(t, err)
	commented, err := p.Parse(ctx, "b.go", []byte("// header\npackage x\n\n// doc\nfunc f() {}\n"))
	require.NoError(t, err)

	bareValues := runAll(t, bare)
	commentedValues := runAll(t, commented)

	assert.Equal(t, int64(0), bareValues["comments"].Int())
	assert.Equal(t, int64(2), commentedValues["comments"].Int())
	assert.Equal(t, bareValues["tokens"].Int(), commentedValues["tokens"].Int())
}
