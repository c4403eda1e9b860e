// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package util

import (
	"cmp"
	"maps"
	"slices"
)

// A set is a map from objects to the empty struct.

type SetT[E comparable] map[E]struct{}

// s := NewSet[int]()
//   or
// s := NewSet(1)

func NewSet[E comparable](members ...E) SetT[E] {
	set := SetT[E]{}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return set
}

func (set SetT[E]) Add(members ...E) {
	for _, member := range members {
		set[member] = struct{}{}
	}
}

func (set SetT[E]) Remove(member E) {
	delete(set, member)
}

// Removes every member for which 'drop' returns true.

func (set SetT[E]) RemoveIf(drop func(E) bool) {
	maps.DeleteFunc(set, func(member E, _ struct{}) bool { return drop(member) })
}

func (set SetT[E]) Contains(member E) bool {
	_, found := set[member]
	return found
}

func (set SetT[E]) Copy() SetT[E] {
	return maps.Clone(set)
}

func (set SetT[E]) Equal(other SetT[E]) bool {
	if len(set) != len(other) {
		return false
	}
	for member := range set {
		if !other.Contains(member) {
			return false
		}
	}
	return true
}

// Because sets are just aliased maps you can loop through them with
//   for elt, _ := range mySet { ... }

func (set SetT[E]) Members() []E {
	result := make([]E, 0, len(set))
	for member := range set {
		result = append(result, member)
	}
	return result
}

// Members in a repeatable order, for printing.

func SortedMembers[E comparable](set SetT[E], compare func(E, E) int) []E {
	result := set.Members()
	slices.SortFunc(result, compare)
	return result
}

func SortedOrdered[E cmp.Ordered](set SetT[E]) []E {
	return SortedMembers(set, cmp.Compare[E])
}

// Assuming that lookup is more-or-less constant we want to loop
// through the smaller of the two sets.

func (set SetT[E]) Intersection(other SetT[E]) SetT[E] {
	if len(other) < len(set) {
		return other.Intersection(set)
	}
	result := NewSet[E]()
	for member := range set {
		if other.Contains(member) {
			result.Add(member)
		}
	}
	return result
}
