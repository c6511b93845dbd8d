package entity

import (
	"context"
	"fmt"

	"github.com/ngauthier/domino/dom"
)

// Entity is one matched node viewed through its Type. Values are read from
// the document on every call.
type Entity struct {
	typ  *Type
	node dom.Node
}

// Node is the underlying element, for anything the declared attributes do
// not cover.
func (e *Entity) Node() dom.Node { return e.node }
func (e *Entity) Type() *Type    { return e.typ }

// ID returns "#<id>" for nodes carrying an id attribute, "" otherwise.
func (e *Entity) ID(ctx context.Context) (string, error) {
	id, ok, err := e.node.Attr(ctx, "id")
	if err != nil || !ok || id == "" {
		return "", err
	}
	return "#" + id, nil
}

// Value reads the named attribute.
func (e *Entity) Value(ctx context.Context, name string) (any, error) {
	a, err := e.typ.lookup(name)
	if err != nil {
		return nil, err
	}
	return a.Value(ctx, e.node)
}

// Element returns the node the named attribute reads from.
func (e *Entity) Element(ctx context.Context, name string) (dom.Node, error) {
	a, err := e.typ.lookup(name)
	if err != nil {
		return nil, err
	}
	return a.Element(ctx, e.node)
}

// Inspect hands the named attribute's element to fn instead of reading its
// value.
func (e *Entity) Inspect(ctx context.Context, name string, fn func(ctx context.Context, el dom.Node) (any, error)) (any, error) {
	el, err := e.Element(ctx, name)
	if err != nil {
		return nil, err
	}
	return fn(ctx, el)
}

// Attributes snapshots every declared attribute in declaration order.
func (e *Entity) Attributes(ctx context.Context) (*Values, error) {
	vals := NewValues()
	for _, a := range e.typ.attrs {
		v, err := a.Value(ctx, e.node)
		if err != nil {
			return nil, err
		}
		vals.Set(a.name, v)
	}
	return vals, nil
}

// ValueAs reads the named attribute as a T. A nil value yields T's zero
// value.
func ValueAs[T any](ctx context.Context, e *Entity, name string) (T, error) {
	var zero T
	v, err := e.Value(ctx, name)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s.%s: value is %T, not %T", e.typ.name, name, v, zero)
	}
	return t, nil
}
