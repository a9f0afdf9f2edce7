package plugin

import (
	"fmt"
	"sort"
)

// Registry holds the plugins registered for a run and fixes their dispatch
// order: non-destructive plugins first, then destructive ones, names
// breaking ties. The ordering places the most destructive work last so the
// final plugin can safely consume the original document without a clone.
type Registry struct {
	plugins []Plugin
}

// NewRegistry creates a registry from the given plugins.
// Duplicate plugin names are rejected.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	names := make(map[string]struct{}, len(plugins))
	for _, p := range plugins {
		if _, dup := names[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate plugin name %q", p.Name())
		}
		names[p.Name()] = struct{}{}
	}

	ordered := make([]Plugin, len(plugins))
	copy(ordered, plugins)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Destructive() != ordered[j].Destructive() {
			return !ordered[i].Destructive()
		}
		return ordered[i].Name() < ordered[j].Name()
	})

	return &Registry{plugins: ordered}, nil
}

// Ordered returns the plugins in dispatch order. Callers must not modify
// the returned slice.
func (r *Registry) Ordered() []Plugin {
	return r.plugins
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	return len(r.plugins)
}

// MetricNames returns a plugin's metric names in lexicographic order,
// the order metric values are computed and persisted in.
func MetricNames(p Plugin) []string {
	metrics := p.Metrics()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
