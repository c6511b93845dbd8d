package entity

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Values is a name to value mapping that remembers insertion order.
// It marshals to JSON and YAML with keys in that order.
type Values struct {
	keys []string
	m    map[string]any
}

func NewValues() *Values {
	return &Values{m: make(map[string]any)}
}

// Set stores v under k. Re-setting a key keeps its original position.
func (v *Values) Set(k string, val any) *Values {
	if _, ok := v.m[k]; !ok {
		v.keys = append(v.keys, k)
	}
	v.m[k] = val
	return v
}

func (v *Values) Get(k string) (any, bool) {
	val, ok := v.m[k]
	return val, ok
}

func (v *Values) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

func (v *Values) Len() int { return len(v.keys) }

// Map returns an unordered copy.
func (v *Values) Map() map[string]any {
	out := make(map[string]any, len(v.m))
	for k, val := range v.m {
		out[k] = val
	}
	return out
}

func (v *Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v.m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (v *Values) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range v.keys {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		val := &yaml.Node{}
		if err := val.Encode(v.m[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}
