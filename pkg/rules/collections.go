package rules

import (
	"cmp"
	"slices"
)

// Set is an unordered collection of distinct values.
type Set[T comparable] map[T]struct{}

// NewSet creates a set holding the given items.
func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts item.
func (s Set[T]) Add(item T) {
	s[item] = struct{}{}
}

// Has reports whether item is in the set.
func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

// Len returns the number of distinct items.
func (s Set[T]) Len() int {
	return len(s)
}

// Intersect returns the items present in both sets.
func (s Set[T]) Intersect(other Set[T]) Set[T] {
	out := make(Set[T])
	for item := range s {
		if other.Has(item) {
			out.Add(item)
		}
	}
	return out
}

// Sorted returns the items of s in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	out := make([]T, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	slices.Sort(out)
	return out
}

// SetOf collects f(x) for every x where f reports true, dropping duplicates.
func SetOf[T any, K comparable](items []T, f func(T) (K, bool)) Set[K] {
	out := make(Set[K])
	for _, item := range items {
		if k, ok := f(item); ok {
			out.Add(k)
		}
	}
	return out
}

// ListOf collects f(x) for every x where f reports true, in input order and
// keeping duplicates.
func ListOf[T, U any](items []T, f func(T) (U, bool)) []U {
	out := make([]U, 0)
	for _, item := range items {
		if u, ok := f(item); ok {
			out = append(out, u)
		}
	}
	return out
}

// Every reports whether pred holds for all items. It is true for an empty
// slice; callers that need non-empty input check length separately.
func Every[T any](items []T, pred func(T) bool) bool {
	for _, item := range items {
		if !pred(item) {
			return false
		}
	}
	return true
}

// Some reports whether pred holds for at least one item. An empty slice is
// simply false.
func Some[T any](items []T, pred func(T) bool) bool {
	for _, item := range items {
		if pred(item) {
			return true
		}
	}
	return false
}
