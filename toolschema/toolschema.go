// Package toolschema holds declarative tool schemas offered to providers on
// a call (NormalizedGenerateChatOptions.tools in spec.md §4.F). Unlike the
// teacher's tools package, a Declaration never executes anything: this
// runtime dispatches chat completions, it does not run tools itself, so the
// registry's only job is handing providers a stable, orderable schema list.
package toolschema

import (
	"fmt"
	"sort"
	"sync"
)

// Declaration is one tool's provider-facing schema.
type Declaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Group bundles related declarations the way spec.md's ToolGroup[] does,
// so a caller can enable/disable a whole group (e.g. "filesystem") at once.
type Group struct {
	Name         string
	Declarations []Declaration
}

// Registry holds groups in registration order and resolves lookups by
// tool name across all registered groups.
type Registry struct {
	mu     sync.RWMutex
	groups []Group
	byName map[string]Declaration
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Declaration)}
}

// RegisterGroup adds group, erroring if any of its declarations collide
// with an already-registered name.
func (r *Registry) RegisterGroup(group Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range group.Declarations {
		if d.Name == "" {
			return fmt.Errorf("toolschema: declaration in group %q has empty name", group.Name)
		}
		if _, exists := r.byName[d.Name]; exists {
			return fmt.Errorf("toolschema: tool %q already registered", d.Name)
		}
	}
	for _, d := range group.Declarations {
		r.byName[d.Name] = d
	}
	r.groups = append(r.groups, group)
	return nil
}

// Get looks up a single declaration by name.
func (r *Registry) Get(name string) (Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// GroupNames returns registered group names in registration order.
func (r *Registry) GroupNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.groups))
	for i, g := range r.groups {
		names[i] = g.Name
	}
	return names
}

// Declarations returns the flattened declaration list for the named
// groups, in the order the groups are given and declarations were
// registered. Passing no names returns every registered declaration.
func (r *Registry) Declarations(groupNames ...string) []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(groupNames) == 0 {
		out := make([]Declaration, 0, len(r.byName))
		for _, g := range r.groups {
			out = append(out, g.Declarations...)
		}
		return out
	}

	want := make(map[string]bool, len(groupNames))
	for _, n := range groupNames {
		want[n] = true
	}
	var out []Declaration
	for _, g := range r.groups {
		if want[g.Name] {
			out = append(out, g.Declarations...)
		}
	}
	return out
}

// SortedNames returns every registered tool name, sorted, for deterministic
// diagnostics and tests.
func (r *Registry) SortedNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
