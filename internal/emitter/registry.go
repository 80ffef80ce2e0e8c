package emitter

import (
	"fmt"
	"sort"
	"strings"
)

// Registry selects a backend by name. Several backends can coexist; exactly
// one is used per run.
type Registry struct {
	backends map[string]Generator
}

func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{backends: make(map[string]Generator, len(gens))}
	for _, g := range gens {
		r.Register(g)
	}
	return r
}

// Register adds g, replacing any backend with the same name.
func (r *Registry) Register(g Generator) {
	r.backends[g.Name()] = g
}

// Lookup returns the backend registered under name.
func (r *Registry) Lookup(name string) (Generator, error) {
	g, ok := r.backends[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("unknown target %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return g, nil
}

// Names lists registered backends in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
