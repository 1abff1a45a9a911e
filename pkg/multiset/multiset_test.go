package multiset

import (
	"testing"
)

func TestAddRemoveRoundTrip(t *testing.T) {
	base := FromCounts(map[string]int{"a": 2, "b": 1})
	for _, name := range []string{"a", "b", "c"} {
		m := base.Clone()
		m.Add(name, 3)
		if !m.Remove(name, 3) {
			t.Fatalf("Remove(%q, 3) = false after Add", name)
		}
		if !m.Equals(base) {
			t.Errorf("after Add/Remove of %q got %v, want %v", name, m, base)
		}
	}
}

func TestRemoveMissing(t *testing.T) {
	m := New("a", "a")
	before := m.Clone()

	tests := []struct {
		name string
		key  string
		n    int
	}{
		{"absent name", "b", 1},
		{"too many", "a", 3},
		{"infinite request", "a", Infinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if m.Remove(tt.key, tt.n) {
				t.Errorf("Remove(%q, %d) = true, want false", tt.key, tt.n)
			}
			if !m.Equals(before) {
				t.Errorf("multiset changed to %v, want %v", m, before)
			}
		})
	}
}

func TestInfinite(t *testing.T) {
	m := Multiset{}
	m.Add("env", Infinite)
	m.Add("env", 5)
	if !m.IsInfinite("env") {
		t.Fatalf("Count(env) = %d, want Infinite", m.Count("env"))
	}
	if !m.Remove("env", 1000) {
		t.Error("Remove from infinite = false, want true")
	}
	if !m.IsInfinite("env") {
		t.Error("infinite count changed after Remove")
	}
	if m.Len() != Infinite {
		t.Errorf("Len() = %d, want Infinite", m.Len())
	}

	finite := New("env")
	if !finite.IsSubsetOf(m) {
		t.Error("finite.IsSubsetOf(infinite) = false, want true")
	}
	if m.IsSubsetOf(finite) {
		t.Error("infinite.IsSubsetOf(finite) = true, want false")
	}
}

func TestSubsetEquality(t *testing.T) {
	tests := []struct {
		name string
		a, b Multiset
	}{
		{"equal", FromCounts(map[string]int{"x": 1, "y": 2}), FromCounts(map[string]int{"y": 2, "x": 1})},
		{"proper subset", New("x"), New("x", "y")},
		{"disjoint", New("x"), New("y")},
		{"empty", Multiset{}, Multiset{}},
		{"empty and not", Multiset{}, New("x")},
		{"infinite both", FromCounts(map[string]int{"x": Infinite}), FromCounts(map[string]int{"x": Infinite})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			both := tt.a.IsSubsetOf(tt.b) && tt.b.IsSubsetOf(tt.a)
			if both != tt.a.Equals(tt.b) {
				t.Errorf("mutual subset = %v, Equals = %v", both, tt.a.Equals(tt.b))
			}
		})
	}
}

func TestUnion(t *testing.T) {
	a := New("x", "y")
	b := New("y", "z")
	u := a.Union(b)
	want := FromCounts(map[string]int{"x": 1, "y": 2, "z": 1})
	if !u.Equals(want) {
		t.Errorf("Union() = %v, want %v", u, want)
	}
	if a.Count("y") != 1 {
		t.Error("Union() modified its receiver")
	}
}

func TestRemoveAllAtomic(t *testing.T) {
	m := FromCounts(map[string]int{"x": 1, "y": 1})
	if m.RemoveAll(New("x", "y", "y")) {
		t.Fatal("RemoveAll() = true with a short name")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d after failed RemoveAll, want 2", m.Len())
	}
	if !m.RemoveAll(New("x")) || m.Count("x") != 0 || m.Count("y") != 1 {
		t.Errorf("RemoveAll(x) left %v", m)
	}
}

func TestString(t *testing.T) {
	m := FromCounts(map[string]int{"b": 2, "a": Infinite})
	if got, want := m.String(), "{a:inf, b:2}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
