/*
Package iteratable implements iteratable container data structures.

Set is a special purpose set type, suitable mainly for implementing
algorithms around scanners, parsers, etc. These kinds of algorithms are
often more straightforward to describe as set constructions and operations.

Unusually, most set operations (Add, Remove, Union) are destructive!

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package iteratable

// Set is a mutable, iterable collection of comparable items, used by the
// grammar package to represent closures of automaton/Earley items. Values
// are compared with ==, so items should be small value types or pointers.
type Set struct {
	items  []interface{}
	cursor int // -1 before iteration starts
}

// NewSet creates an empty iteratable set, optionally pre-sized.
func NewSet(capHint int) *Set {
	if capHint < 0 {
		capHint = 0
	}
	return &Set{items: make([]interface{}, 0, capHint), cursor: -1}
}

// Add inserts x if not already present, and returns the set for chaining.
func (s *Set) Add(x interface{}) *Set {
	if !s.contains(x) {
		s.items = append(s.items, x)
	}
	return s
}

func (s *Set) contains(x interface{}) bool {
	for _, y := range s.items {
		if y == x {
			return true
		}
	}
	return false
}

// Contains reports whether x is a member of the set.
func (s *Set) Contains(x interface{}) bool {
	return s.contains(x)
}

// Remove deletes x from the set, if present.
func (s *Set) Remove(x interface{}) *Set {
	for i, y := range s.items {
		if y == x {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return s
}

// Size returns the number of elements.
func (s *Set) Size() int { return len(s.items) }

// Empty reports whether the set has no elements.
func (s *Set) Empty() bool { return len(s.items) == 0 }

// Values returns a snapshot slice of the set's members, order unspecified
// but stable for a given set instance between mutations.
func (s *Set) Values() []interface{} {
	out := make([]interface{}, len(s.items))
	copy(out, s.items)
	return out
}

// Copy returns a shallow copy of s, safe to mutate independently.
func (s *Set) Copy() *Set {
	c := &Set{items: make([]interface{}, len(s.items)), cursor: -1}
	copy(c.items, s.items)
	return c
}

// Equals reports whether s and other contain exactly the same elements,
// irrespective of order.
func (s *Set) Equals(other *Set) bool {
	if other == nil || len(s.items) != len(other.items) {
		return false
	}
	for _, x := range s.items {
		if !other.contains(x) {
			return false
		}
	}
	return true
}

// Union destructively adds every element of other into s.
func (s *Set) Union(other *Set) *Set {
	for _, x := range other.items {
		s.Add(x)
	}
	return s
}

// Difference returns a new set containing the elements of other not
// present in s (the "new" elements other would contribute to a closure).
func (s *Set) Difference(other *Set) *Set {
	d := NewSet(other.Size())
	for _, x := range other.items {
		if !s.contains(x) {
			d.Add(x)
		}
	}
	return d
}

// IterateOnce resets the set's internal cursor so that a subsequent loop of
// Next()/Item() visits every element present at the time IterateOnce was
// called — including elements appended to the set during the very same
// iteration (this is what lets closure-construction loops in package
// grammar append new items while walking the set under construction).
func (s *Set) IterateOnce() {
	s.cursor = -1
}

// Next advances the cursor and reports whether an element is available.
func (s *Set) Next() bool {
	s.cursor++
	return s.cursor < len(s.items)
}

// Item returns the element at the current cursor position.
func (s *Set) Item() interface{} {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return nil
	}
	return s.items[s.cursor]
}

// Each calls f once for every element; f's return value is ignored, mirroring
// the teacher's ad-hoc "mapper function" idiom.
func (s *Set) Each(f func(x interface{}) interface{}) {
	for _, x := range s.items {
		f(x)
	}
}

// AppendTo appends the set's elements to slice sl and returns the result,
// useful for converting a set of token types into a sortable slice.
func (s *Set) AppendTo(sl []interface{}) []interface{} {
	return append(sl, s.items...)
}
