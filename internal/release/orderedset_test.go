// SPDX-License-Identifier: MPL-2.0

package release

import (
	"slices"
	"testing"
)

func TestOrderedSet(t *testing.T) {
	t.Parallel()

	var s OrderedSet[string]
	if s.Contains("a") {
		t.Error("zero set should be empty")
	}
	for _, v := range []string{"b", "a", "b", "c", "a"} {
		s.Add(v)
	}
	if got, want := s.Values(), []string{"b", "a", "c"}; !slices.Equal(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	if s.Add("c") {
		t.Error("Add of an existing value should report false")
	}

	values := s.Values()
	values[0] = "mutated"
	if s.Values()[0] != "b" {
		t.Error("Values() must return a copy")
	}
}
