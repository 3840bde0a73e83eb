// Package container provides the generic Map, Vector, and Lattice
// structures the spec describes with caller-supplied dup/free/compare
// callbacks (spec.md §4.7, §9 "generics parameterized by element type").
package container

// Map is an insertion-order-preserving key/value store. Go's built-in map
// already owns key/value lifetimes (no manual dup/free needed as in the
// reference C implementation), so Map's job is purely ordering plus the
// find-by-reference mutation spec.md calls for.
type Map[K comparable, V any] struct {
	index map[K]int
	keys  []K
	vals  []V
}

// NewMap creates an empty Map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{index: make(map[K]int)}
}

// Insert adds key→value, or replaces the value if key is already present.
func (m *Map[K, V]) Insert(key K, val V) {
	if i, ok := m.index[key]; ok {
		m.vals[i] = val
		return
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, val)
}

// Find returns the stored value and whether key was present. The returned
// pointer aliases the Map's storage, allowing in-place mutation as spec.md
// requires ("find(key) returns the stored value by reference").
func (m *Map[K, V]) Find(key K) (*V, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return &m.vals[i], true
}

// Delete removes key, if present.
func (m *Map[K, V]) Delete(key K) {
	i, ok := m.index[key]
	if !ok {
		return
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	delete(m.index, key)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order. Callers must not mutate the
// returned slice.
func (m *Map[K, V]) Keys() []K {
	return m.keys
}

// Each calls fn for every entry in insertion order.
func (m *Map[K, V]) Each(fn func(K, V)) {
	for i, k := range m.keys {
		fn(k, m.vals[i])
	}
}
