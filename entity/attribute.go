package entity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/ngauthier/domino/dom"
)

// SelfMarker prefixes selectors that test the entity node itself rather than
// one of its descendants: "&.active", "&[data-rank]".
const SelfMarker = "&"

var (
	ErrInvalidSelector  = errors.New("invalid selector")
	ErrUnknownAttribute = errors.New("unknown attribute")
)

var bareAttrName = regexp.MustCompile(`^\s*([A-Za-z_:][-A-Za-z0-9_:.]*)\s*$`)

// Attribute resolves one named value on an entity node.
type Attribute struct {
	name      string
	selector  string
	transform Transform

	self bool
	// match is the self selector without the marker.
	match string
	// key is set for bracket self forms naming a bare attribute.
	key string
}

// DefaultSelector derives the selector used when an attribute is declared
// without one: favorite_color becomes .favorite-color.
func DefaultSelector(name string) string {
	return "." + strings.ReplaceAll(name, "_", "-")
}

// NewAttribute parses selector once. An empty selector falls back to
// DefaultSelector(name).
func NewAttribute(name, selector string, transform Transform) (*Attribute, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: attribute name is empty", ErrInvalidSelector)
	}
	if selector == "" {
		selector = DefaultSelector(name)
	}
	a := &Attribute{name: name, selector: selector, transform: transform}

	if !strings.HasPrefix(selector, SelfMarker) {
		if _, err := cascadia.ParseGroup(selector); err != nil {
			return nil, fmt.Errorf("%w: attribute %s: %q: %v", ErrInvalidSelector, name, selector, err)
		}
		return a, nil
	}

	match, key, err := parseSelf(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: attribute %s: %v", ErrInvalidSelector, name, err)
	}
	a.self, a.match, a.key = true, match, key
	return a, nil
}

// parseSelf validates a self form and extracts the attribute key of its
// first bare bracket group.
func parseSelf(selector string) (match, key string, err error) {
	rest := strings.TrimPrefix(selector, SelfMarker)
	if rest == "" {
		return "", "", fmt.Errorf("%q: nothing follows %s", selector, SelfMarker)
	}
	switch rest[0] {
	case '.', '[', ':', '#':
	default:
		return "", "", fmt.Errorf("%q: %s must be followed by a class, attribute, id or pseudo-class", selector, SelfMarker)
	}

	depth, quote := 0, byte(0)
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
			if depth < 0 {
				return "", "", fmt.Errorf("%q: unbalanced %c", selector, c)
			}
		case depth == 0 && strings.IndexByte(" \t\n>+~,", c) >= 0:
			return "", "", fmt.Errorf("%q: combinators are not allowed in a self selector", selector)
		}
	}
	if depth != 0 || quote != 0 {
		return "", "", fmt.Errorf("%q: unterminated bracket or quote", selector)
	}
	if _, err := cascadia.Parse(rest); err != nil {
		return "", "", fmt.Errorf("%q: %v", selector, err)
	}

	if open := strings.IndexByte(rest, '['); open >= 0 {
		if end := strings.IndexByte(rest[open:], ']'); end > 0 {
			if m := bareAttrName.FindStringSubmatch(rest[open+1 : open+end]); m != nil {
				key = m[1]
			}
		}
	}
	return rest, key, nil
}

func (a *Attribute) Name() string         { return a.name }
func (a *Attribute) Selector() string     { return a.selector }
func (a *Attribute) Transform() Transform { return a.transform }

// Self reports whether the attribute tests the entity node itself.
func (a *Attribute) Self() bool { return a.self }

// Raw reads the untransformed value: the text of the first matching
// descendant (nil when there is none), or for self forms the bare
// attribute's value, empty included, falling back to whether the node
// matches when the attribute is absent.
func (a *Attribute) Raw(ctx context.Context, node dom.Node) (any, error) {
	if !a.self {
		el, err := node.Find(ctx, a.selector)
		if err != nil {
			if dom.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return el.Text(ctx)
	}

	if a.key != "" {
		v, ok, err := node.Attr(ctx, a.key)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}
	return node.Matches(ctx, a.match)
}

// Value reads the attribute and applies its transform to truthy values.
// Transform errors are returned to the caller.
func (a *Attribute) Value(ctx context.Context, node dom.Node) (any, error) {
	raw, err := a.Raw(ctx, node)
	if err != nil {
		return nil, err
	}
	v, err := Apply(a.transform, raw)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", a.name, err)
	}
	return v, nil
}

// Element returns the node the attribute reads from: the entity node for
// self forms, otherwise the matching descendant or a *dom.NotFoundError.
func (a *Attribute) Element(ctx context.Context, node dom.Node) (dom.Node, error) {
	if a.self {
		return node, nil
	}
	return node.Find(ctx, a.selector)
}

// MatchValue compares the attribute on node with m.
//
// Literals go through the attribute's transform first, so an int attribute
// matches 23 and "23" alike; a literal the transform rejects is compared as
// given. Predicates receive the attribute's element; an
// entity without that element does not match.
func (a *Attribute) MatchValue(ctx context.Context, node dom.Node, m Matcher) (bool, error) {
	if p, ok := m.(predicate); ok {
		el, err := a.Element(ctx, node)
		if err != nil {
			if dom.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return p.fn(ctx, el)
	}

	got, err := a.Value(ctx, node)
	if err != nil {
		return false, err
	}

	switch m := m.(type) {
	case pattern:
		if got == nil {
			return false, nil
		}
		return m.re.MatchString(stringOf(got)), nil
	case literal:
		want := m.value
		if a.transform != nil && want != nil {
			if tv, err := a.transform(want); err == nil {
				want = tv
			}
		}
		return Equal(got, want), nil
	}
	return false, fmt.Errorf("unsupported matcher %T", m)
}
