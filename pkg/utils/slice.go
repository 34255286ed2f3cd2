package utils

import (
	"sort"
)

// Map applies mapper to each element of sli.
//
// The returned slice has the same length as sli, and its N-th element is
// mapper(sli[N]).
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		ret[nth] = mapper(v)
	}
	return ret
}

// MapUntilError maps over sli with mapper, stopping at the first error.
//
// On error, it returns (nil, error). Otherwise (mapping result, nil).
func MapUntilError[T any, R any](sli []T, mapper func(v T) (R, error)) ([]R, error) {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		r, err := mapper(v)
		if err != nil {
			return nil, err
		}
		ret[nth] = r
	}
	return ret, nil
}

// KeysOf flattens a map to the slice of its keys.
//
// Order is not specified.
func KeysOf[T any, K comparable](m map[K]T) []K {
	sli := make([]K, 0, len(m))
	for k := range m {
		sli = append(sli, k)
	}
	return sli
}

// ValuesOf flattens a map to the slice of its values.
//
// Order is not specified.
func ValuesOf[T any, K comparable](m map[K]T) []T {
	sli := make([]T, 0, len(m))
	for _, value := range m {
		sli = append(sli, value)
	}
	return sli
}

// Filter returns the elements of vs for which predicator is true,
// keeping their relative order.
func Filter[T any](vs []T, predicator func(T) bool) []T {
	ret := []T{}
	if len(vs) == 0 {
		return ret
	}

	for _, v := range vs {
		if predicator(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// Sorted returns a sorted copy of sli. The sort is not stable.
//
// less is an ordering function as in `sort.Interface.Less`.
func Sorted[T any](sli []T, less func(a, b T) bool) []T {
	sorted := make([]T, len(sli))
	copy(sorted, sli)

	sort.Slice(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}
