package form

import (
	"sort"
	"sync"
)

// Kind names a field constructor in the registry.
type Kind string

const (
	KindText    Kind = "text"
	KindSelect  Kind = "select"
	KindBoolean Kind = "boolean"
)

// Registry maps kinds to field constructors.
type Registry struct {
	mu sync.RWMutex
	m  map[Kind]Constructor
}

// Kinds is the registry consulted by Builder.Field.
var Kinds = NewRegistry()

// NewRegistry returns a registry holding the built-in kinds.
func NewRegistry() *Registry {
	return &Registry{m: map[Kind]Constructor{
		"":          NewTextField,
		KindText:    NewTextField,
		KindSelect:  NewSelectField,
		KindBoolean: NewBooleanField,
	}}
}

// Register adds or replaces the constructor for kind.
func (r *Registry) Register(kind Kind, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[kind] = ctor
}

// Lookup returns the constructor for kind. Unknown kinds build text fields.
func (r *Registry) Lookup(kind Kind) Constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.m[kind]; ok {
		return c
	}
	return NewTextField
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.m[kind]
	return ok
}

// Names lists the registered kinds, sorted, without the empty default.
func (r *Registry) Names() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.m))
	for k := range r.m {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Register adds a constructor to Kinds.
func Register(kind Kind, ctor Constructor) { Kinds.Register(kind, ctor) }
