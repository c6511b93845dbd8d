// Package dom defines the document capabilities that entity and form
// declarations are resolved against. Providers (a parsed HTML session, a live
// Chrome tab) implement these interfaces; nothing in this package talks to a
// browser itself.
package dom

import (
	"context"
	"errors"
	"fmt"
)

// Document is the live page a query runs against.
type Document interface {
	// QueryAll returns every node matching selector, in document order.
	// No match is an empty slice, not an error.
	QueryAll(ctx context.Context, selector string) ([]Node, error)

	// QueryOne returns the first node matching selector. Providers that see
	// asynchronous updates wait (up to their own timeout) for the node to
	// appear. Returns a *NotFoundError when nothing matched.
	QueryOne(ctx context.Context, selector string) (Node, error)
}

// Node is a handle to one element. It is only valid while the document that
// produced it is current.
type Node interface {
	// Find returns the first descendant matching selector or a *NotFoundError.
	Find(ctx context.Context, selector string) (Node, error)
	// FindAll returns all descendants matching selector.
	FindAll(ctx context.Context, selector string) ([]Node, error)

	Text(ctx context.Context) (string, error)
	// Attr returns the attribute value and whether it is present.
	Attr(ctx context.Context, key string) (string, bool, error)
	// Matches reports whether the node itself matches selector.
	Matches(ctx context.Context, selector string) (bool, error)
	TagName(ctx context.Context) (string, error)
	Click(ctx context.Context) error

	// LocateControl finds a form control inside this node by id, name,
	// placeholder or label text. Returns a *NotFoundError when none matches.
	LocateControl(ctx context.Context, locator string, hints Hints) (Control, error)
	// Controls returns the form controls among the descendants matching selector.
	Controls(ctx context.Context, selector string) ([]Control, error)
}

// Control is a form control (input, textarea, select).
type Control interface {
	Node

	Value(ctx context.Context) (string, error)
	// SetValue replaces the control's content, as a user filling it in would.
	SetValue(ctx context.Context, value string) error
	Checked(ctx context.Context) (bool, error)
	SetChecked(ctx context.Context, checked bool) error
	// Multiple reports whether a select accepts several options.
	Multiple(ctx context.Context) (bool, error)
	Options(ctx context.Context) ([]Option, error)
}

// Option is one <option> of a select control.
type Option interface {
	Text(ctx context.Context) (string, error)
	// Value is the value attribute, or the text when the attribute is missing.
	Value(ctx context.Context) (string, error)
	Selected(ctx context.Context) (bool, error)
	Select(ctx context.Context) error
	Unselect(ctx context.Context) error
}

// Hints are provider-level options for locating controls.
//
// Recognised keys: "type" restricts the match to an input type or tag name
// ("checkbox", "select", "textarea"); "exact" set to "true" disables
// substring matching of label text.
type Hints map[string]string

// Get returns the hint for key, or "" on a nil map.
func (h Hints) Get(key string) string {
	if h == nil {
		return ""
	}
	return h[key]
}

// Without returns a copy of h with the given keys removed.
func (h Hints) Without(keys ...string) Hints {
	out := make(Hints, len(h))
	for k, v := range h {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("element not found")

// NotFoundError reports that a required element did not match.
type NotFoundError struct {
	Selector string
	// Kind describes what was looked up: "element", "field", "option".
	Kind string
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "element"
	}
	return fmt.Sprintf("%s not found: %s", kind, e.Selector)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound builds a *NotFoundError for an element selector.
func NotFound(selector string) error {
	return &NotFoundError{Selector: selector, Kind: "element"}
}

// FieldNotFound builds a *NotFoundError for a control locator.
func FieldNotFound(locator string) error {
	return &NotFoundError{Selector: locator, Kind: "field"}
}

// IsNotFound reports whether err wraps a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
