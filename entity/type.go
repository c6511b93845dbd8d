package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/ngauthier/domino/dom"
)

// ErrNoSelector is returned when a type without a selector is queried.
var ErrNoSelector = errors.New("selector not declared")

// Type describes a repeating DOM structure: the selector locating its nodes
// and the attributes read from each. A Type is immutable once built.
type Type struct {
	name     string
	selector string
	attrs    []*Attribute
	byName   map[string]*Attribute
}

func (t *Type) Name() string     { return t.name }
func (t *Type) Selector() string { return t.selector }

// Attributes returns the declared attributes in declaration order.
func (t *Type) Attributes() []*Attribute {
	out := make([]*Attribute, len(t.attrs))
	copy(out, t.attrs)
	return out
}

// Attribute looks up a declared attribute by name.
func (t *Type) Attribute(name string) (*Attribute, bool) {
	a, ok := t.byName[name]
	return a, ok
}

func (t *Type) lookup(name string) (*Attribute, error) {
	a, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, t.name, name)
	}
	return a, nil
}

// Wrap returns the entity of this type for node.
func (t *Type) Wrap(node dom.Node) *Entity {
	return &Entity{typ: t, node: node}
}

// On binds the type to a document for querying.
func (t *Type) On(doc dom.Document) *Query {
	return &Query{typ: t, doc: doc}
}

// Builder declares a Type. Errors are collected and reported by Build.
type Builder struct {
	name        string
	selector    string
	selectorSet bool
	attrs       []*Attribute
	seen        map[string]bool
	errs        []error
}

// NewType starts the declaration of a type called name.
func NewType(name string) *Builder {
	return &Builder{name: name, seen: make(map[string]bool)}
}

// Selector sets the CSS selector locating the type's nodes. It may be set
// once.
func (b *Builder) Selector(css string) *Builder {
	if b.selectorSet {
		b.errs = append(b.errs, fmt.Errorf("%s: selector already declared as %q", b.name, b.selector))
		return b
	}
	b.selectorSet = true
	css = strings.TrimSpace(css)
	if css == "" {
		b.errs = append(b.errs, fmt.Errorf("%w: %s: empty selector", ErrInvalidSelector, b.name))
		return b
	}
	if _, err := cascadia.ParseGroup(css); err != nil {
		b.errs = append(b.errs, fmt.Errorf("%w: %s: %q: %v", ErrInvalidSelector, b.name, css, err))
		return b
	}
	b.selector = css
	return b
}

// Attribute declares a named value. An empty selector defaults to
// DefaultSelector(name); a nil transform returns raw values.
func (b *Builder) Attribute(name, selector string, transform Transform) *Builder {
	a, err := NewAttribute(name, selector, transform)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", b.name, err))
		return b
	}
	return b.Add(a)
}

// Add declares an already constructed attribute.
func (b *Builder) Add(a *Attribute) *Builder {
	if b.seen[a.name] {
		b.errs = append(b.errs, fmt.Errorf("%s: attribute %s declared twice", b.name, a.name))
		return b
	}
	b.seen[a.name] = true
	b.attrs = append(b.attrs, a)
	return b
}

// Build freezes the declaration.
func (b *Builder) Build() (*Type, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	t := &Type{
		name:     b.name,
		selector: b.selector,
		attrs:    make([]*Attribute, len(b.attrs)),
		byName:   make(map[string]*Attribute, len(b.attrs)),
	}
	copy(t.attrs, b.attrs)
	for _, a := range t.attrs {
		t.byName[a.name] = a
	}
	return t, nil
}

// MustBuild is Build for package-level declarations; it panics on error.
func (b *Builder) MustBuild() *Type {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
