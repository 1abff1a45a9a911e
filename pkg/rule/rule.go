package rule

import (
	"sort"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/multiset"
)

// Kind tags the variant of a rule.
type Kind uint8

const (
	KindMetabolic Kind = iota
	KindDestroy
	KindDivide
	KindInsert
	KindCreate
)

// Order is the category order in which a step applies rules.
var Order = []Kind{KindMetabolic, KindDestroy, KindDivide, KindInsert, KindCreate}

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindMetabolic:
		return "metabolic"
	case KindDestroy:
		return "destroy"
	case KindDivide:
		return "divide"
	case KindInsert:
		return "insert"
	case KindCreate:
		return "create"
	}
	return "unknown"
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Order {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidRule, "unknown rule kind %q", s)
}

// Definition is a rule as written: two symbol lists read by the grammar of its
// kind.
//
//	metabolic  outside… protein inside… → outside… protein inside…
//	create     objects… glue            → tile
//	destroy    objects… tile            → objects…
//	divide     glue objects… glue       → glue objects… glue
//	insert     glue objects… glue       → glue tile glue
type Definition struct {
	Name     string
	Kind     Kind
	Priority int // higher runs first
	Delay    int // steps the site stays locked after the rule fires
	Left     []string
	Right    []string
}

// Metabolic exchanges objects across a membrane protein. On segment tiles the two
// sides are not told apart.
type Metabolic struct {
	Protein    string
	OutsideIn  multiset.Multiset
	InsideIn   multiset.Multiset
	OutsideOut multiset.Multiset
	InsideOut  multiset.Multiset
}

// Create grows a tile out of a free connector carrying Glue.
type Create struct {
	Objects multiset.Multiset
	Glue    string
	Tile    string
}

// Destroy removes a tile and releases Products where it was.
type Destroy struct {
	Objects  multiset.Multiset
	Tile     string
	Products multiset.Multiset
}

// Divide breaks a link between glues A and B. The two sides take NextA and NextB
// and Products are released at the former link.
type Divide struct {
	A, B         string
	Objects      multiset.Multiset
	NextA, NextB string
	Products     multiset.Multiset
}

// Insert places a tile into the link between glues A and B.
type Insert struct {
	A, B         string
	Objects      multiset.Multiset
	Tile         string
	NextA, NextB string
}

// Rule is a validated evolution rule. Exactly one payload matching Kind is set.
type Rule struct {
	Name     string
	Kind     Kind
	Priority int
	Delay    int

	Metabolic *Metabolic
	Create    *Create
	Destroy   *Destroy
	Divide    *Divide
	Insert    *Insert
}

// New validates def against the names in cat.
func New(def Definition, cat *Catalog) (*Rule, error) {
	if def.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidRule, "rule has no name")
	}
	if def.Delay < 0 {
		return nil, errors.New(errors.ErrCodeInvalidRule, "rule %q: negative delay", def.Name)
	}
	for _, side := range [][]string{def.Left, def.Right} {
		for _, s := range side {
			if cat.Classify(s) == ClassUnknown {
				return nil, errors.New(errors.ErrCodeUnknownName, "rule %q: unknown name %q", def.Name, s)
			}
		}
	}

	p := parser{rule: def.Name, cat: cat}
	r := &Rule{Name: def.Name, Kind: def.Kind, Priority: def.Priority, Delay: def.Delay}
	var err error
	switch def.Kind {
	case KindMetabolic:
		r.Metabolic, err = p.metabolic(def.Left, def.Right)
	case KindCreate:
		r.Create, err = p.create(def.Left, def.Right)
	case KindDestroy:
		r.Destroy, err = p.destroy(def.Left, def.Right)
	case KindDivide:
		r.Divide, err = p.divide(def.Left, def.Right)
	case KindInsert:
		r.Insert, err = p.insert(def.Left, def.Right)
	default:
		err = errors.New(errors.ErrCodeInvalidRule, "rule %q: unknown kind %d", def.Name, def.Kind)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Reactants returns the floating objects the rule consumes.
func (r *Rule) Reactants() multiset.Multiset {
	switch r.Kind {
	case KindMetabolic:
		return r.Metabolic.OutsideIn.Union(r.Metabolic.InsideIn)
	case KindCreate:
		return r.Create.Objects
	case KindDestroy:
		return r.Destroy.Objects
	case KindDivide:
		return r.Divide.Objects
	case KindInsert:
		return r.Insert.Objects
	}
	return multiset.Multiset{}
}

type parser struct {
	rule string
	cat  *Catalog
}

func (p parser) fail(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidRule, "rule %q: "+format, append([]any{p.rule}, args...)...)
}

// objects collects names that must all be floating objects.
func (p parser) objects(names []string) (multiset.Multiset, error) {
	var m multiset.Multiset
	for _, n := range names {
		if p.cat.Classify(n) != ClassObject {
			return multiset.Multiset{}, p.fail("%q is a %s, want an object", n, p.cat.Classify(n))
		}
		m.Add(n, 1)
	}
	return m, nil
}

func (p parser) expect(name string, class Class) error {
	if got := p.cat.Classify(name); got != class {
		return p.fail("%q is a %s, want a %s", name, got, class)
	}
	return nil
}

func (p parser) metabolic(left, right []string) (*Metabolic, error) {
	split := func(side []string) (string, multiset.Multiset, multiset.Multiset, error) {
		at := -1
		for i, n := range side {
			if p.cat.Classify(n) != ClassProtein {
				continue
			}
			if at >= 0 {
				return "", multiset.Multiset{}, multiset.Multiset{}, p.fail("more than one protein on a side")
			}
			at = i
		}
		if at < 0 {
			return "", multiset.Multiset{}, multiset.Multiset{}, p.fail("each side needs a protein")
		}
		out, err := p.objects(side[:at])
		if err != nil {
			return "", multiset.Multiset{}, multiset.Multiset{}, err
		}
		in, err := p.objects(side[at+1:])
		if err != nil {
			return "", multiset.Multiset{}, multiset.Multiset{}, err
		}
		return side[at], out, in, nil
	}
	lp, lo, li, err := split(left)
	if err != nil {
		return nil, err
	}
	rp, ro, ri, err := split(right)
	if err != nil {
		return nil, err
	}
	if lp != rp {
		return nil, p.fail("protein %q becomes %q", lp, rp)
	}
	return &Metabolic{Protein: lp, OutsideIn: lo, InsideIn: li, OutsideOut: ro, InsideOut: ri}, nil
}

func (p parser) create(left, right []string) (*Create, error) {
	if len(left) == 0 || len(right) != 1 {
		return nil, p.fail("want objects… glue → tile")
	}
	glue := left[len(left)-1]
	if err := p.expect(glue, ClassGlue); err != nil {
		return nil, err
	}
	objs, err := p.objects(left[:len(left)-1])
	if err != nil {
		return nil, err
	}
	if err := p.expect(right[0], ClassTile); err != nil {
		return nil, err
	}
	return &Create{Objects: objs, Glue: glue, Tile: right[0]}, nil
}

func (p parser) destroy(left, right []string) (*Destroy, error) {
	if len(left) == 0 {
		return nil, p.fail("want objects… tile → objects…")
	}
	t := left[len(left)-1]
	if err := p.expect(t, ClassTile); err != nil {
		return nil, err
	}
	objs, err := p.objects(left[:len(left)-1])
	if err != nil {
		return nil, err
	}
	prods, err := p.objects(right)
	if err != nil {
		return nil, err
	}
	return &Destroy{Objects: objs, Tile: t, Products: prods}, nil
}

// bracket splits glue middle… glue.
func (p parser) bracket(side []string) (string, string, []string, error) {
	if len(side) < 2 {
		return "", "", nil, p.fail("want glue … glue")
	}
	a, b := side[0], side[len(side)-1]
	if err := p.expect(a, ClassGlue); err != nil {
		return "", "", nil, err
	}
	if err := p.expect(b, ClassGlue); err != nil {
		return "", "", nil, err
	}
	return a, b, side[1 : len(side)-1], nil
}

func (p parser) divide(left, right []string) (*Divide, error) {
	a, b, mid, err := p.bracket(left)
	if err != nil {
		return nil, err
	}
	objs, err := p.objects(mid)
	if err != nil {
		return nil, err
	}
	na, nb, rmid, err := p.bracket(right)
	if err != nil {
		return nil, err
	}
	prods, err := p.objects(rmid)
	if err != nil {
		return nil, err
	}
	return &Divide{A: a, B: b, Objects: objs, NextA: na, NextB: nb, Products: prods}, nil
}

func (p parser) insert(left, right []string) (*Insert, error) {
	a, b, mid, err := p.bracket(left)
	if err != nil {
		return nil, err
	}
	objs, err := p.objects(mid)
	if err != nil {
		return nil, err
	}
	na, nb, rmid, err := p.bracket(right)
	if err != nil {
		return nil, err
	}
	if len(rmid) != 1 {
		return nil, p.fail("want glue tile glue on the right")
	}
	if err := p.expect(rmid[0], ClassTile); err != nil {
		return nil, err
	}
	return &Insert{A: a, B: b, Objects: objs, Tile: rmid[0], NextA: na, NextB: nb}, nil
}

// Set holds rules grouped by kind, each group ordered by descending priority.
type Set struct {
	byKind map[Kind][]*Rule
	names  map[string]bool
}

// NewSet groups rules. Rule names must be unique.
func NewSet(rules ...*Rule) (*Set, error) {
	s := &Set{byKind: make(map[Kind][]*Rule), names: make(map[string]bool)}
	for _, r := range rules {
		if s.names[r.Name] {
			return nil, errors.New(errors.ErrCodeDuplicateName, "rule %q declared twice", r.Name)
		}
		s.names[r.Name] = true
		s.byKind[r.Kind] = append(s.byKind[r.Kind], r)
	}
	for _, rs := range s.byKind {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Priority > rs[j].Priority })
	}
	return s, nil
}

// Of returns the rules of kind k by descending priority.
func (s *Set) Of(k Kind) []*Rule { return s.byKind[k] }

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.names) }

// Groups splits rules, already ordered by descending priority, into runs of equal
// priority.
func Groups(rules []*Rule) [][]*Rule {
	var out [][]*Rule
	for i := 0; i < len(rules); {
		j := i + 1
		for j < len(rules) && rules[j].Priority == rules[i].Priority {
			j++
		}
		out = append(out, rules[i:j])
		i = j
	}
	return out
}
