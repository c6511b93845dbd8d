package entity

import (
	"context"
	"fmt"
	"reflect"
	"regexp"

	"github.com/ngauthier/domino/dom"
)

// Matcher is the expected side of an attribute comparison. It is one of
// Literal, Pattern or Predicate.
type Matcher interface {
	matcher()
}

type literal struct{ value any }

type pattern struct{ re *regexp.Regexp }

type predicate struct {
	fn func(ctx context.Context, el dom.Node) (bool, error)
}

func (literal) matcher()   {}
func (pattern) matcher()   {}
func (predicate) matcher() {}

// Literal matches when the attribute value equals v after running v through
// the attribute's transform, or v as given when the transform rejects it.
func Literal(v any) Matcher { return literal{value: v} }

// Pattern matches when re matches the string form of the attribute value.
func Pattern(re *regexp.Regexp) Matcher { return pattern{re: re} }

// Predicate matches when fn accepts the attribute's element. Unlike
// Entity.Element, a missing element is not an error: the entity just does
// not match.
func Predicate(fn func(ctx context.Context, el dom.Node) (bool, error)) Matcher {
	return predicate{fn: fn}
}

// AsMatcher turns a criteria value into a Matcher: Matchers pass through,
// regular expressions become patterns and anything else a literal.
func AsMatcher(v any) Matcher {
	switch m := v.(type) {
	case Matcher:
		return m
	case *regexp.Regexp:
		return Pattern(m)
	}
	return Literal(v)
}

func (m literal) String() string   { return fmt.Sprintf("%v", m.value) }
func (m pattern) String() string   { return "/" + m.re.String() + "/" }
func (m predicate) String() string { return "<predicate>" }

// Equal compares two attribute values. Numbers compare by value regardless
// of their Go type; everything else uses deep equality.
func Equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
