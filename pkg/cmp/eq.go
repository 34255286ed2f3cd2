package cmp

type Eq interface {
	Equal(b Eq) bool
}

// Equal checks two values a, b are equal by their Equal method.
func Equal[T Eq](a T, b T) bool {
	return a.Equal(b)
}

// EqEq is a == b as BiPredicator function
func EqEq[T comparable](a, b T) bool {
	return a == b
}
