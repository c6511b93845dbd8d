package decl

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/ngauthier/domino/entity"
	"github.com/ngauthier/domino/form"
	"github.com/zclconf/go-cty/cty"
)

// ParseCriteria turns command line filters into entity criteria.
//
//	age=23          number
//	zip=02134       text, as is anything that does not print back as typed
//	active=true     bool
//	name="Bob Li"   quoted string
//	name=Alice      bare words are strings
//	name~=^A        regular expression
//
// A key given twice keeps the last value.
func ParseCriteria(filters []string) (entity.Criteria, error) {
	c := entity.Criteria{}
	for _, f := range filters {
		key, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("filter %q: want key=value", f)
		}
		key = strings.TrimSpace(key)
		if k, isPattern := strings.CutSuffix(key, "~"); isPattern {
			re, err := regexp.Compile(raw)
			if err != nil {
				return nil, fmt.Errorf("filter %q: %w", f, err)
			}
			key = strings.TrimSpace(k)
			if key == "" {
				return nil, fmt.Errorf("filter %q: empty key", f)
			}
			c[key] = entity.Pattern(re)
			continue
		}
		if key == "" {
			return nil, fmt.Errorf("filter %q: empty key", f)
		}
		c[key] = literal(raw)
	}
	return c, nil
}

// literal evaluates raw as a constant HCL expression, falling back to the
// raw text for anything that is not a number, bool, string or null. Numbers
// are kept only when they print back exactly as typed, so 02134 or 1e3 stay
// text.
func literal(raw string) any {
	expr, diags := hclsyntax.ParseExpression([]byte(raw), "filter", hcl.InitialPos)
	if diags.HasErrors() {
		return raw
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() || !v.IsWhollyKnown() {
		return raw
	}
	out, ok := fromCty(v)
	if !ok {
		return raw
	}
	if v.Type() == cty.Number && formatNumber(out) != strings.TrimSpace(raw) {
		return raw
	}
	return out
}

func formatNumber(n any) string {
	switch n := n.(type) {
	case int:
		return strconv.Itoa(n)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

func fromCty(v cty.Value) (any, bool) {
	if v.IsNull() {
		return nil, true
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), true
	case cty.Bool:
		return v.True(), true
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return int(n), true
			}
		}
		f, _ := bf.Float64()
		return f, true
	}
	return nil, false
}

// ParseAssignments turns name=value arguments into form assignments. Values
// are read like ParseCriteria literals; a name given more than once collects
// its values into a list, for multi-selects.
func ParseAssignments(args []string) ([]form.Assignment, error) {
	var order []string
	values := make(map[string][]any)
	for _, a := range args {
		name, raw, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("assignment %q: want name=value", a)
		}
		if _, seen := values[name]; !seen {
			order = append(order, name)
		}
		values[name] = append(values[name], literal(raw))
	}
	out := make([]form.Assignment, 0, len(order))
	for _, name := range order {
		v := values[name]
		if len(v) == 1 {
			out = append(out, form.Assign(name, v[0]))
		} else {
			out = append(out, form.Assign(name, v))
		}
	}
	return out, nil
}
