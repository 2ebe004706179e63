// SPDX-License-Identifier: MPL-2.0

package release

import "slices"

// OrderedSet keeps the first occurrence of each value in insertion order.
// The zero value is ready to use.
type OrderedSet[T comparable] struct {
	index map[T]struct{}
	items []T
}

// Add appends v unless it is already present and reports whether it was added.
func (s *OrderedSet[T]) Add(v T) bool {
	if s.index == nil {
		s.index = make(map[T]struct{})
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Contains reports whether v was added.
func (s *OrderedSet[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of distinct values.
func (s *OrderedSet[T]) Len() int { return len(s.items) }

// Values returns a copy of the values in insertion order.
func (s *OrderedSet[T]) Values() []T { return slices.Clone(s.items) }
