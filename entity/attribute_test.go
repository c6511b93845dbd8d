package entity

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/ngauthier/domino/dom"
	"github.com/ngauthier/domino/dom/htmldom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSelector(t *testing.T) {
	assert.Equal(t, ".favorite-color", DefaultSelector("favorite_color"))
	assert.Equal(t, ".name", DefaultSelector("name"))

	a, err := NewAttribute("last_name", "", nil)
	require.NoError(t, err)
	assert.Equal(t, ".last-name", a.Selector())
	assert.False(t, a.Self())
}

func TestNewAttributeSelfForms(t *testing.T) {
	tests := []struct {
		selector string
		match    string
		key      string
	}{
		{"&.active", ".active", ""},
		{"&[data-rank]", "[data-rank]", "data-rank"},
		{"&[ data-uuid ]", "[ data-uuid ]", "data-uuid"},
		{"&.person[data-rank]", ".person[data-rank]", "data-rank"},
		{`&[data-state="open"]`, `[data-state="open"]`, ""},
		{"&#receipt-72", "#receipt-72", ""},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			a, err := NewAttribute("x", tt.selector, nil)
			require.NoError(t, err)
			assert.True(t, a.Self())
			assert.Equal(t, tt.match, a.match)
			assert.Equal(t, tt.key, a.key)
		})
	}
}

func TestNewAttributeRejectsMalformed(t *testing.T) {
	for _, sel := range []string{
		"&",
		"&active",
		"& .active",
		"&.a > .b",
		"&[data-rank",
		"&.a, .b",
		"&[data-x='y]",
		"div[",
	} {
		t.Run(sel, func(t *testing.T) {
			_, err := NewAttribute("x", sel, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSelector))
		})
	}

	_, err := NewAttribute("", ".x", nil)
	assert.True(t, errors.Is(err, ErrInvalidSelector))
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(false))
	assert.True(t, Truthy("0"))
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(0))
	assert.True(t, Truthy([]string{}))
}

func TestApplyOnlyTransformsTruthyValues(t *testing.T) {
	calls := 0
	count := func(raw any) (any, error) {
		calls++
		return raw, nil
	}
	for _, raw := range []any{nil, "", false} {
		v, err := Apply(count, raw)
		require.NoError(t, err)
		assert.Equal(t, raw, v)
	}
	assert.Zero(t, calls)

	v, err := Apply(ToInt, "42")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = Apply(nil, "raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", v)
}

func TestNamedTransforms(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", " 23 ", 23},
		{"int", 52, 52},
		{"float", "1.5", 1.5},
		{"bool", "yes", true},
		{"bool", "off", false},
		{"present", "x", true},
		{"trim", "  Alice ", "Alice"},
		{"lower", "Blue", "blue"},
		{"upper", "Blue", "BLUE"},
	}
	for _, tt := range tests {
		fn, ok := LookupTransform(tt.name)
		require.True(t, ok, tt.name)
		got, err := fn(tt.in)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := ToInt("Alice")
	assert.Error(t, err)
	_, err = ToBool("maybe")
	assert.Error(t, err)

	_, ok := LookupTransform("nope")
	assert.False(t, ok)
	assert.Equal(t, []string{"bool", "float", "int", "lower", "present", "trim", "upper"}, TransformNames())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(23, int64(23)))
	assert.True(t, Equal(2.0, 2))
	assert.True(t, Equal("a", "a"))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal("23", 23))
	assert.False(t, Equal(nil, 0))
	assert.True(t, Equal([]string{"a"}, []string{"a"}))
}

func TestAsMatcher(t *testing.T) {
	re := regexp.MustCompile("x")
	assert.Equal(t, Pattern(re), AsMatcher(re))
	assert.Equal(t, Literal("x"), AsMatcher("x"))
	lit := Literal(3)
	assert.Equal(t, lit, AsMatcher(lit))
}

func personNode(t *testing.T, markup string) dom.Node {
	t.Helper()
	s, err := htmldom.FromHTML(markup)
	require.NoError(t, err)
	n, err := s.QueryOne(context.Background(), ".person")
	require.NoError(t, err)
	return n
}

func TestAttributeValue(t *testing.T) {
	ctx := context.Background()
	n := personNode(t, `<div class="person active" data-rank="2" data-blocked>
		<h2 class="name">Charlie</h2>
		<p class="age"> 40 </p>
	</div>`)

	name, _ := NewAttribute("name", "", nil)
	v, err := name.Value(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, "Charlie", v)

	missing, _ := NewAttribute("bio", "", ToInt)
	v, err = missing.Value(ctx, n)
	require.NoError(t, err)
	assert.Nil(t, v)

	active, _ := NewAttribute("active", "&.active", nil)
	v, err = active.Value(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	hidden, _ := NewAttribute("hidden", "&.hidden", nil)
	v, err = hidden.Value(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	rank, _ := NewAttribute("rank", "&[data-rank]", ToInt)
	v, err = rank.Value(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	blocked, _ := NewAttribute("blocked", "&[data-blocked]", nil)
	v, err = blocked.Value(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, "", v, "a present but empty attribute is its value")

	uuid, _ := NewAttribute("uuid", "&[data-uuid]", nil)
	v, err = uuid.Value(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestAttributeEmptySelfAttribute(t *testing.T) {
	ctx := context.Background()
	s, err := htmldom.FromHTML(`<div id="people">
		<div class="person" data-rank=""><h2 class="name">Alice</h2></div>
		<div class="person" data-rank="3"><h2 class="name">Bob</h2></div>
	</div>`)
	require.NoError(t, err)
	n, err := s.QueryOne(ctx, ".person")
	require.NoError(t, err)

	note, _ := NewAttribute("note", "&[data-rank]", nil)
	v, err := note.Value(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	rank, _ := NewAttribute("rank", "&[data-rank]", ToInt)
	v, err = rank.Value(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, "", v, "empty values skip the transform")

	people := NewType("person").
		Selector("#people .person").
		Attribute("name", "", nil).
		Attribute("note", "&[data-rank]", nil).
		Attribute("rank", "&[data-rank]", ToInt).
		MustBuild()

	alice := people.Wrap(n)
	vals, err := alice.Attributes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Alice", "note": "", "rank": ""}, vals.Map())

	found, err := people.On(s).Where(ctx, Criteria{"note": ""})
	require.NoError(t, err)
	require.Len(t, found, 1)
	name, err := found[0].Value(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
}

func TestAttributeTransformErrorPropagates(t *testing.T) {
	ctx := context.Background()
	n := personNode(t, `<div class="person"><p class="age">old</p></div>`)
	age, _ := NewAttribute("age", "", ToInt)

	_, err := age.Value(ctx, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attribute age")

	// a failing transform on the value side is not swallowed by matching
	_, err = age.MatchValue(ctx, n, Literal(3))
	assert.Error(t, err)
}

func TestAttributeElement(t *testing.T) {
	ctx := context.Background()
	n := personNode(t, `<div class="person" data-rank="1"><h2 class="name">Alice</h2></div>`)

	name, _ := NewAttribute("name", "", nil)
	el, err := name.Element(ctx, n)
	require.NoError(t, err)
	tag, err := el.TagName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "h2", tag)

	rank, _ := NewAttribute("rank", "&[data-rank]", nil)
	el, err = rank.Element(ctx, n)
	require.NoError(t, err)
	assert.Same(t, n, el)

	bio, _ := NewAttribute("bio", "", nil)
	_, err = bio.Element(ctx, n)
	assert.True(t, dom.IsNotFound(err))
}

func TestAttributeMatchValue(t *testing.T) {
	ctx := context.Background()
	n := personNode(t, `<div class="person" data-rank="2"><p class="age">52</p><p class="bio">Bob is smart</p></div>`)

	age, _ := NewAttribute("age", "", ToInt)
	rank, _ := NewAttribute("rank", "&[data-rank]", ToInt)
	bio, _ := NewAttribute("bio", "", nil)
	quoted, _ := NewAttribute("quoted", ".bio", func(raw any) (any, error) {
		return "<" + stringOf(raw) + ">", nil
	})

	tests := []struct {
		name string
		attr *Attribute
		m    Matcher
		want bool
	}{
		{"transformed literal", age, Literal(52), true},
		{"raw literal", age, Literal("52"), true},
		{"uncoercible literal", age, Literal("fifty-two"), false},
		{"self transformed", rank, Literal(2), true},
		{"self raw", rank, Literal("2"), true},
		{"self other", rank, Literal(3), false},
		{"literal through transform", quoted, Literal("Bob is smart"), true},
		{"accepted literal is not also compared as given", quoted, Literal("<Bob is smart>"), false},
		{"pattern", bio, Pattern(regexp.MustCompile(`smart$`)), true},
		{"pattern miss", bio, Pattern(regexp.MustCompile(`wild`)), false},
		{"pattern on number", age, Pattern(regexp.MustCompile(`^5`)), true},
		{"predicate", age, Predicate(func(ctx context.Context, el dom.Node) (bool, error) {
			tag, err := el.TagName(ctx)
			return tag == "p", err
		}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.attr.MatchValue(ctx, n, tt.m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	missing, _ := NewAttribute("name", "", nil)
	got, err := missing.MatchValue(ctx, n, Predicate(func(context.Context, dom.Node) (bool, error) {
		t.Fatal("predicate must not run without an element")
		return true, nil
	}))
	require.NoError(t, err)
	assert.False(t, got)

	got, err = missing.MatchValue(ctx, n, Pattern(regexp.MustCompile(`.*`)))
	require.NoError(t, err)
	assert.False(t, got, "a missing value never matches a pattern")
}
