// Package collections implements the merge discipline used when several
// configuration steps mutate the same extension-held collection.
//
// Set-valued fields are merged with Union and never replaced, so entries
// contributed by other configurators survive. Ordered sequences whose order
// carries meaning are owned outright and rewritten with Replace.
package collections

import (
	"cmp"
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
)

// Set is an order-insensitive collection of unique values.
type Set[T cmp.Ordered] map[T]struct{}

// NewSet returns a set holding values.
func NewSet[T cmp.Ordered](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is in the set.
func (s Set[T]) Contains(v T) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of values.
func (s Set[T]) Len() int {
	return len(s)
}

// Values returns the values in ascending order.
func (s Set[T]) Values() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both sets hold the same values.
func (s Set[T]) Equal(other Set[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array.
func (s Set[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// MarshalYAML encodes the set as a sorted sequence.
func (s Set[T]) MarshalYAML() (any, error) {
	return s.Values(), nil
}

// Union returns a new set holding every value of existing plus entries.
// existing may be nil and is never modified.
func Union[T cmp.Ordered](existing Set[T], entries ...T) Set[T] {
	out := make(Set[T], len(existing)+len(entries))
	for v := range existing {
		out[v] = struct{}{}
	}
	for _, v := range entries {
		out[v] = struct{}{}
	}
	return out
}

// AppendUnique returns list followed by the entries not already present,
// keeping first-seen order. list is not modified.
func AppendUnique[T comparable](list []T, entries ...T) []T {
	out := make([]T, 0, len(list)+len(entries))
	seen := make(map[T]struct{}, len(list)+len(entries))
	for _, group := range [][]T{list, entries} {
		for _, v := range group {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Replace discards the current contents of an owned sequence and returns
// canonical in order.
func Replace[T any](_ []T, canonical ...T) []T {
	return slices.Clone(canonical)
}

// MergeExcludeDirs merges build output subdirectories into an IDE exclude
// set. Each name is anchored at buildDir. Existing entries are cleaned, and
// an entry equal to buildDir itself is dropped so the result never excludes
// both the build directory and paths inside it. Names that resolve to
// buildDir or outside it are skipped.
func MergeExcludeDirs(existing Set[string], buildDir string, names ...string) Set[string] {
	anchor := filepath.Clean(buildDir)

	kept := make(Set[string], len(existing))
	for dir := range existing {
		dir = filepath.Clean(dir)
		if dir == anchor {
			continue
		}
		kept[dir] = struct{}{}
	}

	qualified := make([]string, 0, len(names))
	for _, name := range names {
		dir := filepath.Clean(name)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(anchor, dir)
		}
		if !IsSubdir(anchor, dir) {
			continue
		}
		qualified = append(qualified, dir)
	}
	return Union(kept, qualified...)
}

// IsSubdir reports whether dir lies strictly inside base.
func IsSubdir(base, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(dir))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
