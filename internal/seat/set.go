package seat

import (
	"sort"
	"strings"
)

// Set is an unordered collection of seats compared by content.  The zero
// value is an empty, usable set for reads; use NewSet before adding.
type Set struct {
	m map[ID]struct{}
}

// NewSet builds a set from the given seats.
func NewSet(ids ...ID) Set {
	s := Set{m: make(map[ID]struct{}, len(ids))}
	for _, id := range ids {
		s.m[id] = struct{}{}
	}
	return s
}

// Len is the number of seats in the set.
func (s Set) Len() int { return len(s.m) }

// Contains reports membership.
func (s Set) Contains(id ID) bool {
	_, ok := s.m[id]
	return ok
}

// Add inserts id.  Panics on a zero-value Set.
func (s Set) Add(id ID) { s.m[id] = struct{}{} }

// Remove deletes id if present.
func (s Set) Remove(id ID) { delete(s.m, id) }

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := Set{m: make(map[ID]struct{}, len(s.m))}
	for id := range s.m {
		out.m[id] = struct{}{}
	}
	return out
}

// Toggle returns a copy of s with id's membership flipped.
func (s Set) Toggle(id ID) Set {
	out := s.Clone()
	if out.Contains(id) {
		out.Remove(id)
	} else {
		out.Add(id)
	}
	return out
}

// Sorted returns the members in (row, column) order.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Strings returns the sorted seat labels.
func (s Set) Strings() []string {
	ids := s.Sorted()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// Key is the canonical sorted rendering used for content comparison.
func (s Set) Key() string { return strings.Join(s.Strings(), ",") }

// Equal compares two sets by content.
func (s Set) Equal(other Set) bool {
	if len(s.m) != len(other.m) {
		return false
	}
	for id := range s.m {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Diff returns the seats only in s and the seats only in other.
func (s Set) Diff(other Set) (onlyS, onlyOther []ID) {
	for _, id := range s.Sorted() {
		if !other.Contains(id) {
			onlyS = append(onlyS, id)
		}
	}
	for _, id := range other.Sorted() {
		if !s.Contains(id) {
			onlyOther = append(onlyOther, id)
		}
	}
	return onlyS, onlyOther
}
