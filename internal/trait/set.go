package trait

import (
	"encoding/json"
	"slices"
	"strings"
)

// Set is a sorted, de-duplicated collection of trait ids.
// Construct with NewSet to keep the invariant.
type Set []string

// NewSet creates a Set from ids in any order.
func NewSet(ids ...string) Set {
	s := make(Set, 0, len(ids))
	s = append(s, ids...)
	slices.Sort(s)
	return slices.Compact(s)
}

// Contains reports whether id is a member.
func (s Set) Contains(id string) bool {
	_, found := slices.BinarySearch(s, id)
	return found
}

// ContainsAll reports whether s is a superset of other.
func (s Set) ContainsAll(other Set) bool {
	for _, id := range other {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

// Equal reports exact set equality.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s, other)
}

// Union returns a new set holding members of both.
func (s Set) Union(other Set) Set {
	out := make([]string, 0, len(s)+len(other))
	out = append(out, s...)
	out = append(out, other...)
	return NewSet(out...)
}

// String renders the set as {a, b, c}.
func (s Set) String() string {
	return "{" + strings.Join(s, ", ") + "}"
}

// UnmarshalJSON decodes a JSON array of ids and restores the sorted,
// de-duplicated invariant.
func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSet(ids...)
	return nil
}
