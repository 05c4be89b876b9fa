package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var errNotMapping = errors.New("expected a mapping")

// OrderedMap is a string-keyed mapping that remembers the order keys appear
// in the source document. Repeated keys keep their first value. A value that
// fails to decode is left out and recorded in Failures; the other keys still
// load.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
	dups   []string
	failed []KeyError
}

// KeyError is a mapping value that could not be decoded.
type KeyError struct {
	Key string
	Err error
}

func (e KeyError) Error() string {
	return fmt.Sprintf("%q: %v", e.Key, e.Err)
}

func (e KeyError) Unwrap() error { return e.Err }

func (m *OrderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, exists := m.values[key]; exists {
		return
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
}

func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap[V]) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Duplicates lists keys that appeared more than once in the source.
func (m *OrderedMap[V]) Duplicates() []string {
	if m == nil {
		return nil
	}
	return m.dups
}

// Failures lists the keys whose values could not be decoded, in source
// order.
func (m *OrderedMap[V]) Failures() []KeyError {
	if m == nil {
		return nil
	}
	return m.failed
}

func (m *OrderedMap[V]) reset() {
	m.keys, m.dups, m.failed = nil, nil, nil
	m.values = make(map[string]V)
}

// claim reports whether key is seen for the first time, recording it as a
// duplicate otherwise.
func (m *OrderedMap[V]) claim(seen map[string]struct{}, key string) bool {
	if _, exists := seen[key]; exists {
		m.dups = append(m.dups, key)
		return false
	}
	seen[key] = struct{}{}
	return true
}

func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w, got %s", errNotMapping, describeJSON(tok))
	}
	m.reset()
	seen := make(map[string]struct{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if !m.claim(seen, key) {
			continue
		}
		var value V
		if err := json.Unmarshal(raw, &value); err != nil {
			m.failed = append(m.failed, KeyError{Key: key, Err: err})
			continue
		}
		m.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

func (m *OrderedMap[V]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w at line %d", errNotMapping, node.Line)
	}
	m.reset()
	seen := make(map[string]struct{})
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		key := keyNode.Value
		if !m.claim(seen, key) {
			continue
		}
		var value V
		if err := valueNode.Decode(&value); err != nil {
			m.failed = append(m.failed, KeyError{Key: key, Err: err})
			continue
		}
		m.Set(key, value)
	}
	return nil
}

// MarshalJSON writes the keys in insertion order.
func (m OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func describeJSON(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
