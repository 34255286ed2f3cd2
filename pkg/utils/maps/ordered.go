package maps

import "github.com/fgcz/string-gsea/pkg/utils/tuple"

// Map is a key-value mapping.
//
// Implementations may give extra guarantees on iteration order.
type Map[K comparable, V any] interface {
	// Set binds k to v. Setting an existing key replaces its value.
	Set(k K, v V)

	// Get returns the value bound to k, and whether k is present.
	Get(k K) (V, bool)

	// Keys returns all keys.
	Keys() []K

	// Values returns all values, aligned with Keys.
	Values() []V

	// Delete removes k. Removing an absent key is a no-op.
	Delete(k K)

	// Len returns the number of entries.
	Len() int

	// Iter iterates entries, usable with range-over-func.
	Iter() func(yield func(k K, v V) bool)

	// ToMap copies the entries into a built-in map.
	ToMap() map[K]V
}

type orderedMap[K comparable, V any] struct {
	keys []K
	m    map[K]V
}

// NewOrderedMap creates a new ordered map with the given initial key-value pairs.
//
// The keys will be ordered in the order they were added.
// Updating the value of a known key keeps its original position.
func NewOrderedMap[K comparable, V any](initial ...tuple.Pair[K, V]) Map[K, V] {
	m := &orderedMap[K, V]{
		keys: []K{},
		m:    map[K]V{},
	}

	for _, pair := range initial {
		m.Set(pair.First, pair.Second)
	}

	return m
}

func (m *orderedMap[K, V]) Set(k K, v V) {
	if _, ok := m.m[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.m[k] = v
}

func (m *orderedMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.m[k]
	return v, ok
}

func (m *orderedMap[K, V]) Keys() []K {
	return m.keys
}

func (m *orderedMap[K, V]) Values() []V {
	values := make([]V, len(m.keys))
	for i, k := range m.keys {
		values[i] = m.m[k]
	}
	return values
}

func (m *orderedMap[K, V]) Delete(k K) {
	delete(m.m, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *orderedMap[K, V]) Len() int {
	return len(m.keys)
}

func (m *orderedMap[K, V]) Iter() func(yield func(k K, v V) bool) {
	return func(yield func(k K, v V) bool) {
		for _, k := range m.keys {
			v := m.m[k]
			if !yield(k, v) {
				break
			}
		}
	}
}

func (m *orderedMap[K, V]) ToMap() map[K]V {
	// Return a copy to prevent modification of the internal map.
	ret := map[K]V{}
	for k, v := range m.m {
		ret[k] = v
	}
	return ret
}

// EqWith checks two Maps bind the same keys in the same order to
// equivalent values under pred.
func EqWith[K comparable, V any](a, b Map[K, V], pred func(a, b V) bool) bool {
	if a.Len() != b.Len() {
		return false
	}

	akeys := a.Keys()
	bkeys := b.Keys()
	for i, k := range akeys {
		if bkeys[i] != k {
			return false
		}
		av, _ := a.Get(k)
		bv, ok := b.Get(k)
		if !ok || !pred(av, bv) {
			return false
		}
	}
	return true
}
