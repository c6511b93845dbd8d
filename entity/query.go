package entity

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/ngauthier/domino/dom"
)

// Criteria maps attribute names to expected values. A value may be a
// Matcher, a *regexp.Regexp or a literal (see AsMatcher).
//
// A key naming no declared attribute matches no entity.
type Criteria map[string]any

// Keys returns the criteria keys in sorted order.
func (c Criteria) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c Criteria) String() string {
	parts := make([]string, 0, len(c))
	for _, k := range c.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, AsMatcher(c[k])))
	}
	return strings.Join(parts, " ")
}

// Query runs collection operations for a Type against one document.
type Query struct {
	typ *Type
	doc dom.Document
}

var errStop = errors.New("stop iteration")

func (q *Query) nodes(ctx context.Context) ([]dom.Node, error) {
	if q.typ.selector == "" {
		return nil, fmt.Errorf("%s: %w", q.typ.name, ErrNoSelector)
	}
	nodes, err := q.doc.QueryAll(ctx, q.typ.selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.typ.name, err)
	}
	slog.Debug("entity query", "type", q.typ.name, "selector", q.typ.selector, "count", len(nodes))
	return nodes, nil
}

// Each calls fn for every entity in document order, stopping at the first
// error fn returns.
func (q *Query) Each(ctx context.Context, fn func(*Entity) error) error {
	nodes, err := q.nodes(ctx)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := fn(q.typ.Wrap(n)); err != nil {
			return err
		}
	}
	return nil
}

// All returns every entity currently in the document.
func (q *Query) All(ctx context.Context) ([]*Entity, error) {
	nodes, err := q.nodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, len(nodes))
	for i, n := range nodes {
		out[i] = q.typ.Wrap(n)
	}
	return out, nil
}

func (q *Query) Count(ctx context.Context) (int, error) {
	nodes, err := q.nodes(ctx)
	return len(nodes), err
}

// First returns the first entity, or nil when there is none. Unlike Find it
// never waits.
func (q *Query) First(ctx context.Context) (*Entity, error) {
	nodes, err := q.nodes(ctx)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return q.typ.Wrap(nodes[0]), nil
}

// Find returns the first entity, letting the document wait for one to
// appear. It fails with a *dom.NotFoundError when none does.
func (q *Query) Find(ctx context.Context) (*Entity, error) {
	if q.typ.selector == "" {
		return nil, fmt.Errorf("%s: %w", q.typ.name, ErrNoSelector)
	}
	n, err := q.doc.QueryOne(ctx, q.typ.selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.typ.name, err)
	}
	return q.typ.Wrap(n), nil
}

// Select keeps the entities keep accepts.
func (q *Query) Select(ctx context.Context, keep func(*Entity) (bool, error)) ([]*Entity, error) {
	var out []*Entity
	err := q.Each(ctx, func(e *Entity) error {
		ok, err := keep(e)
		if ok {
			out = append(out, e)
		}
		return err
	})
	return out, err
}

// SortBy returns all entities stably ordered by the string form of the
// named attribute; missing values sort first.
func (q *Query) SortBy(ctx context.Context, name string) ([]*Entity, error) {
	a, err := q.typ.lookup(name)
	if err != nil {
		return nil, err
	}
	all, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(map[*Entity]string, len(all))
	for _, e := range all {
		v, err := a.Value(ctx, e.node)
		if err != nil {
			return nil, err
		}
		if v != nil {
			keys[e] = stringOf(v)
		}
	}
	slices.SortStableFunc(all, func(x, y *Entity) int {
		return cmp.Compare(keys[x], keys[y])
	})
	return all, nil
}

func (q *Query) matches(ctx context.Context, e *Entity, c Criteria) (bool, error) {
	for _, k := range c.Keys() {
		a, ok := q.typ.byName[k]
		if !ok {
			return false, nil
		}
		ok, err := a.MatchValue(ctx, e.node, AsMatcher(c[k]))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Where returns the entities matching every criterion, in document order.
func (q *Query) Where(ctx context.Context, c Criteria) ([]*Entity, error) {
	return q.Select(ctx, func(e *Entity) (bool, error) {
		return q.matches(ctx, e, c)
	})
}

// FindBy returns the first entity matching c, or nil.
func (q *Query) FindBy(ctx context.Context, c Criteria) (*Entity, error) {
	var found *Entity
	err := q.Each(ctx, func(e *Entity) error {
		ok, err := q.matches(ctx, e, c)
		if err != nil {
			return err
		}
		if ok {
			found = e
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return found, nil
}

// RequireBy is FindBy failing with a *dom.NotFoundError when nothing matches.
func (q *Query) RequireBy(ctx context.Context, c Criteria) (*Entity, error) {
	e, err := q.FindBy(ctx, c)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, dom.NotFound(fmt.Sprintf("%s where %s", q.typ.selector, c))
	}
	return e, nil
}

// FindByAttr returns the first entity whose named attribute matches m.
func (q *Query) FindByAttr(ctx context.Context, name string, m Matcher) (*Entity, error) {
	a, err := q.typ.lookup(name)
	if err != nil {
		return nil, err
	}
	var found *Entity
	err = q.Each(ctx, func(e *Entity) error {
		ok, err := a.MatchValue(ctx, e.node, m)
		if err != nil {
			return err
		}
		if ok {
			found = e
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return found, nil
}
