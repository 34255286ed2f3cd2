package ranks

import (
	"errors"
	"fmt"

	"github.com/fgcz/string-gsea/pkg/utils/maps"
)

var ErrDuplicateKey = errors.New("duplicate rank list key")

// Set is a collection of rank lists, iterated in insertion order.
type Set struct {
	m maps.Map[Key, List]
}

func NewSet() *Set {
	return &Set{m: maps.NewOrderedMap[Key, List]()}
}

// Add appends a rank list under key.
//
// Keys are unique: adding a known key fails with ErrDuplicateKey.
func (s *Set) Add(key Key, list List) error {
	if _, ok := s.m.Get(key); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	s.m.Set(key, list)
	return nil
}

func (s *Set) Get(key Key) (List, bool) {
	return s.m.Get(key)
}

// Keys returns the keys in insertion order.
func (s *Set) Keys() []Key {
	return s.m.Keys()
}

func (s *Set) Len() int {
	return s.m.Len()
}

// Iter iterates entries in insertion order, usable with range-over-func.
func (s *Set) Iter() func(yield func(k Key, l List) bool) {
	return s.m.Iter()
}
