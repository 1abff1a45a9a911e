// Package multiset implements the named multiset used for rule reactants and
// products, glue signal releases, and proximity query targets.
//
// Counts are non-negative. The sentinel [Infinite] stands for an unbounded supply:
// adding to or removing from an infinite count leaves it infinite, and an infinite
// request is satisfied only by an infinite supply.
package multiset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Infinite is the sentinel count of an unbounded multiplicity.
const Infinite = math.MaxInt

// Multiset maps names to counts. The zero value is an empty multiset ready to use.
// Multisets share storage on assignment; use Clone for an independent copy.
type Multiset struct {
	counts map[string]int
}

// New returns a multiset holding each name once per occurrence.
func New(names ...string) Multiset {
	m := Multiset{}
	for _, n := range names {
		m.Add(n, 1)
	}
	return m
}

// FromCounts returns a multiset with the given counts. Non-positive counts are
// skipped.
func FromCounts(counts map[string]int) Multiset {
	m := Multiset{}
	for n, c := range counts {
		m.Add(n, c)
	}
	return m
}

// Count returns the multiplicity of name.
func (m Multiset) Count(name string) int {
	return m.counts[name]
}

// IsInfinite reports whether name has an unbounded multiplicity.
func (m Multiset) IsInfinite(name string) bool {
	return m.counts[name] == Infinite
}

// Len returns the total multiplicity, or Infinite if any count is infinite.
func (m Multiset) Len() int {
	total := 0
	for _, c := range m.counts {
		if c == Infinite {
			return Infinite
		}
		total += c
	}
	return total
}

// IsEmpty reports whether the multiset holds nothing.
func (m Multiset) IsEmpty() bool {
	return len(m.counts) == 0
}

// Names returns the distinct names in sorted order.
func (m Multiset) Names() []string {
	names := make([]string, 0, len(m.counts))
	for n := range m.counts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Add increases the count of name by n. Adding Infinite makes it infinite.
func (m *Multiset) Add(name string, n int) {
	if n <= 0 {
		return
	}
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	cur := m.counts[name]
	if cur == Infinite || n == Infinite || cur > Infinite-n {
		m.counts[name] = Infinite
		return
	}
	m.counts[name] = cur + n
}

// Remove decreases the count of name by n. It returns false and leaves the multiset
// unchanged when fewer than n are present. Removing from an infinite count always
// succeeds and keeps it infinite.
func (m *Multiset) Remove(name string, n int) bool {
	if n <= 0 {
		return true
	}
	cur := m.counts[name]
	if cur == Infinite {
		return true
	}
	if n == Infinite || cur < n {
		return false
	}
	if cur == n {
		delete(m.counts, name)
		return true
	}
	m.counts[name] = cur - n
	return true
}

// AddAll adds every count of o.
func (m *Multiset) AddAll(o Multiset) {
	for n, c := range o.counts {
		m.Add(n, c)
	}
}

// RemoveAll removes every count of o. It is all-or-nothing: if any name is short,
// nothing is removed and false is returned.
func (m *Multiset) RemoveAll(o Multiset) bool {
	if !o.IsSubsetOf(*m) {
		return false
	}
	for n, c := range o.counts {
		m.Remove(n, c)
	}
	return true
}

// Union returns a new multiset holding the sum of both.
func (m Multiset) Union(o Multiset) Multiset {
	out := m.Clone()
	out.AddAll(o)
	return out
}

// IsSubsetOf reports whether every count of m is covered by o.
func (m Multiset) IsSubsetOf(o Multiset) bool {
	for n, c := range m.counts {
		oc := o.counts[n]
		if oc == Infinite {
			continue
		}
		if c == Infinite || c > oc {
			return false
		}
	}
	return true
}

// Equals reports whether both hold the same counts.
func (m Multiset) Equals(o Multiset) bool {
	if len(m.counts) != len(o.counts) {
		return false
	}
	for n, c := range m.counts {
		if o.counts[n] != c {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (m Multiset) Clone() Multiset {
	out := Multiset{}
	if len(m.counts) > 0 {
		out.counts = make(map[string]int, len(m.counts))
		for n, c := range m.counts {
			out.counts[n] = c
		}
	}
	return out
}

// Counts returns a copy of the underlying counts.
func (m Multiset) Counts() map[string]int {
	out := make(map[string]int, len(m.counts))
	for n, c := range m.counts {
		out[n] = c
	}
	return out
}

// String renders the multiset as {a:2, b:inf} with names sorted.
func (m Multiset) String() string {
	parts := make([]string, 0, len(m.counts))
	for _, n := range m.Names() {
		c := m.counts[n]
		if c == Infinite {
			parts = append(parts, n+":inf")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d", n, c))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
