package pattern

import "fmt"

// Registration errors. The registry fails fast at build time; a bad pattern
// set is a configuration defect, not something to tolerate at runtime.
var (
	ErrEmptyID   = fmt.Errorf("pattern: empty pattern id")
	ErrDuplicate = fmt.Errorf("pattern: duplicate pattern id")
	ErrNoPattern = fmt.Errorf("pattern: empty registry")
)

// Registry is an indexed, immutable collection of patterns. Build it once at
// startup; afterwards it is safe to share across parallel workers without
// locking.
type Registry struct {
	patterns []Pattern
	byID     map[string]Pattern
}

// NewRegistry builds a registry out of the given patterns.
func NewRegistry(patterns ...Pattern) (*Registry, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPattern
	}
	r := &Registry{
		patterns: make([]Pattern, len(patterns)),
		byID:     make(map[string]Pattern, len(patterns)),
	}
	copy(r.patterns, patterns)
	for _, p := range patterns {
		id := p.ID()
		if id == "" {
			return nil, fmt.Errorf("%w (%T)", ErrEmptyID, p)
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, id)
		}
		r.byID[id] = p
	}
	return r, nil
}

// All returns every registered pattern in registration order.
func (r *Registry) All() []Pattern {
	out := make([]Pattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Active returns the patterns enabled at the given optimization level.
func (r *Registry) Active(level Level) []Pattern {
	var out []Pattern
	for _, p := range r.patterns {
		if p.MinLevel() <= level && level > LevelNone {
			out = append(out, p)
		}
	}
	return out
}

// ByCategory returns the registered patterns of one category.
func (r *Registry) ByCategory(c Category) []Pattern {
	var out []Pattern
	for _, p := range r.patterns {
		if p.Category() == c {
			out = append(out, p)
		}
	}
	return out
}

// Get returns a pattern by id.
func (r *Registry) Get(id string) (Pattern, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int { return len(r.patterns) }
