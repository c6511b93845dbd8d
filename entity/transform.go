package entity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Transform converts a raw value read from the document (a string, or a bool
// for self-match attributes) into a domain value.
type Transform func(raw any) (any, error)

// Truthy reports whether a raw value is present enough to be transformed:
// nil, "" and false are not; every other value is.
func Truthy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	default:
		return true
	}
}

// Apply runs transform over raw when raw is Truthy, otherwise returns raw.
func Apply(transform Transform, raw any) (any, error) {
	if transform == nil || !Truthy(raw) {
		return raw, nil
	}
	return transform(raw)
}

// ToInt parses a trimmed decimal string. Integers pass through as int.
func ToInt(raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("int transform: %w", err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("int transform: unsupported %T", raw)
}

// ToFloat parses a trimmed decimal string into a float64.
func ToFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("float transform: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("float transform: unsupported %T", raw)
}

// ToBool understands the usual spellings of yes and no.
func ToBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "", "0", "false", "no", "off":
			return false, nil
		}
		return nil, fmt.Errorf("bool transform: cannot parse %q", v)
	}
	return nil, fmt.Errorf("bool transform: unsupported %T", raw)
}

// Present maps a raw value to whether it is there at all.
func Present(raw any) (any, error) {
	return Truthy(raw), nil
}

func Trim(raw any) (any, error) {
	return strings.TrimSpace(stringOf(raw)), nil
}

func Lower(raw any) (any, error) {
	return strings.ToLower(stringOf(raw)), nil
}

func Upper(raw any) (any, error) {
	return strings.ToUpper(stringOf(raw)), nil
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

var namedTransforms = map[string]Transform{
	"int":     ToInt,
	"float":   ToFloat,
	"bool":    ToBool,
	"present": Present,
	"trim":    Trim,
	"lower":   Lower,
	"upper":   Upper,
}

// LookupTransform returns the built-in transform registered under name.
func LookupTransform(name string) (Transform, bool) {
	t, ok := namedTransforms[name]
	return t, ok
}

// TransformNames lists the built-in transform names, sorted.
func TransformNames() []string {
	names := make([]string, 0, len(namedTransforms))
	for k := range namedTransforms {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
