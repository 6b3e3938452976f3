// Package document holds the raw, unvalidated configuration tree.
//
// Values are one of nil, bool, int, float64, string, []any or *Map. Mapping
// keys keep the order they had in the source file so that error reporting
// (first unknown key) is reproducible.
package document

// Map is an insertion-ordered mapping with string keys.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{values: map[string]any{}}
}

// MapOf builds a Map from alternating key/value arguments. It is meant for
// tests and programmatic documents.
func MapOf(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("document.MapOf: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1])
	}
	return m
}

// Set inserts or replaces a key. Replacing keeps the original position.
func (m *Map) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns the keys in source order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}
