package tools

import (
	"sort"

	"github.com/pkg/errors"
)

// Registry is an immutable, ordered set of tools with a capability ceiling.
// A read-only registry can never hold a side-effecting tool. Since a Registry
// is never mutated after construction it can be shared between runs without
// locking.
type Registry struct {
	ceiling Mutability
	tools   map[string]*Tool
	order   []string
}

// NewReadOnlyRegistry builds a registry that rejects side-effecting tools.
func NewReadOnlyRegistry(ts ...*Tool) (*Registry, error) {
	return newRegistry(ReadOnly, ts)
}

// NewRegistry builds a registry that accepts tools of both classes.
func NewRegistry(ts ...*Tool) (*Registry, error) {
	return newRegistry(SideEffecting, ts)
}

func newRegistry(ceiling Mutability, ts []*Tool) (*Registry, error) {
	r := &Registry{
		ceiling: ceiling,
		tools:   make(map[string]*Tool, len(ts)),
		order:   make([]string, 0, len(ts)),
	}
	for _, t := range ts {
		if t == nil {
			return nil, errors.New("nil tool")
		}
		if _, exists := r.tools[t.Name]; exists {
			return nil, errors.Errorf("tool %s registered twice", t.Name)
		}
		if !allowed(ceiling, t.Mutability) {
			return nil, &CapabilityViolationError{Tool: t.Name, Mutability: t.Mutability, Ceiling: ceiling}
		}
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

func allowed(ceiling, m Mutability) bool {
	if ceiling == SideEffecting {
		return true
	}
	return m == ReadOnly
}

// Extend returns a new registry with the same ceiling holding r's tools
// followed by ts.
func (r *Registry) Extend(ts ...*Tool) (*Registry, error) {
	return newRegistry(r.ceiling, append(r.List(), ts...))
}

// Ceiling is the most permissive mutability the registry accepts.
func (r *Registry) Ceiling() Mutability {
	return r.ceiling
}

// IsReadOnly reports whether the registry is capped at read-only tools.
func (r *Registry) IsReadOnly() bool {
	return r.ceiling == ReadOnly
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (*Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		available := append([]string(nil), r.order...)
		sort.Strings(available)
		return nil, &UnknownToolError{Name: name, Available: available}
	}
	return t, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// List returns the tools in registration order.
func (r *Registry) List() []*Tool {
	ret := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		ret = append(ret, r.tools[name])
	}
	return ret
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	return len(r.order)
}

// WithMutability returns the tools of the given class in registration order.
func (r *Registry) WithMutability(m Mutability) []*Tool {
	var ret []*Tool
	for _, t := range r.List() {
		if t.Mutability == m {
			ret = append(ret, t)
		}
	}
	return ret
}
