package tile

import (
	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/multiset"
)

// Glue is a typed attachment token. Glues compare by identity: two glues with the
// same name are still different glues.
type Glue struct {
	Name string
}

// NewGlue returns a new glue.
func NewGlue(name string) *Glue {
	return &Glue{Name: name}
}

// String returns the glue name.
func (g *Glue) String() string {
	if g == nil {
		return "<nil>"
	}
	return g.Name
}

type gluePair struct {
	a, b *Glue
}

// GlueRelation records which glue pairs may connect and which signal objects each
// connection releases.
//
// Matching ignores order. The signal multiset is stored for the order in which the
// pair was declared, and both orders may be declared with different signals.
type GlueRelation struct {
	signals map[gluePair]multiset.Multiset
}

// NewGlueRelation returns an empty relation.
func NewGlueRelation() *GlueRelation {
	return &GlueRelation{signals: make(map[gluePair]multiset.Multiset)}
}

// Add declares that a may connect to b, releasing signals on connection.
func (r *GlueRelation) Add(a, b *Glue, signals multiset.Multiset) error {
	if a == nil || b == nil {
		return errors.New(errors.ErrCodeUnknownName, "glue relation entry references a nil glue")
	}
	key := gluePair{a, b}
	if _, ok := r.signals[key]; ok {
		return errors.New(errors.ErrCodeDuplicateName, "glue pair (%s, %s) declared twice", a.Name, b.Name)
	}
	r.signals[key] = signals.Clone()
	return nil
}

// Matches reports whether a and b may connect, in either order.
func (r *GlueRelation) Matches(a, b *Glue) bool {
	_, ok := r.Signals(a, b)
	return ok
}

// Signals returns the multiset released when a connects to b. The declared order is
// preferred; the reversed pair is used otherwise.
func (r *GlueRelation) Signals(a, b *Glue) (multiset.Multiset, bool) {
	if r == nil || a == nil || b == nil {
		return multiset.Multiset{}, false
	}
	if s, ok := r.signals[gluePair{a, b}]; ok {
		return s, true
	}
	s, ok := r.signals[gluePair{b, a}]
	return s, ok
}

// Len returns the number of declared pairs.
func (r *GlueRelation) Len() int {
	return len(r.signals)
}
