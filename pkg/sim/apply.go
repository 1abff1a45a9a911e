package sim

import (
	"context"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/floating"
	"github.com/matzehuels/tilesim/pkg/geometry"
	"github.com/matzehuels/tilesim/pkg/multiset"
	"github.com/matzehuels/tilesim/pkg/observability"
	"github.com/matzehuels/tilesim/pkg/rule"
	"github.com/matzehuels/tilesim/pkg/tile"
)

// site is where a rule may fire: a tile and, depending on the kind, one of its
// proteins or connectors.
type site struct {
	tile  *tile.TileInSpace
	index int
}

// attempt tries r at st and reports whether it fired.
type attempt func(st site, r *rule.Rule) (bool, error)

func (s *Simulator) applyKind(ctx context.Context, k rule.Kind) error {
	rules := s.rules.Of(k)
	if len(rules) == 0 {
		return nil
	}
	switch k {
	case rule.KindMetabolic:
		return s.run(ctx, s.proteinSites(), func(st site) []*rule.Rule {
			name, _ := st.tile.Protein(st.index)
			return matching(rules, func(r *rule.Rule) bool { return r.Metabolic.Protein == name })
		}, s.metabolic)
	case rule.KindDestroy:
		return s.run(ctx, s.tileSites(), func(st site) []*rule.Rule {
			return matching(rules, func(r *rule.Rule) bool { return r.Destroy.Tile == st.tile.Name() })
		}, s.destroy)
	case rule.KindDivide:
		return s.run(ctx, s.linkSites(), func(st site) []*rule.Rule {
			a, b := s.linkGlues(st)
			return matching(rules, func(r *rule.Rule) bool {
				d := r.Divide
				return (d.A == a && d.B == b) || (d.A == b && d.B == a)
			})
		}, s.divide)
	case rule.KindInsert:
		if !s.insertWarned {
			s.insertWarned = true
			s.logger.Warn("insert rules are matched but never placed", "rules", len(rules))
		}
		return s.run(ctx, s.linkSites(), func(st site) []*rule.Rule {
			a, b := s.linkGlues(st)
			return matching(rules, func(r *rule.Rule) bool {
				in := r.Insert
				return (in.A == a && in.B == b) || (in.A == b && in.B == a)
			})
		}, s.insert)
	case rule.KindCreate:
		return s.run(ctx, s.connectorSites(), func(st site) []*rule.Rule {
			g := st.tile.Connector(st.index).Glue.Name
			return matching(rules, func(r *rule.Rule) bool { return r.Create.Glue == g })
		}, s.create)
	}
	return nil
}

// run visits sites in random order and fires at most one rule at each. Rules are
// tried by descending priority and in random order within a priority.
func (s *Simulator) run(ctx context.Context, sites []site, candidates func(site) []*rule.Rule, try attempt) error {
	s.rng.Shuffle(len(sites), func(i, j int) { sites[i], sites[j] = sites[j], sites[i] })
	for _, st := range sites {
		if !s.available(st.tile) {
			continue
		}
		rules := candidates(st)
		if len(rules) == 0 {
			continue
		}
	groups:
		for _, group := range rule.Groups(rules) {
			group = slices.Clone(group)
			s.rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
			for _, r := range group {
				ok, err := try(st, r)
				if err != nil {
					return err
				}
				if ok {
					s.applied.Add(r.Name, 1)
					observability.Sim().OnRuleApplied(ctx, s.step, r.Name, r.Kind.String())
					break groups
				}
			}
		}
	}
	return nil
}

func matching(rules []*rule.Rule, keep func(*rule.Rule) bool) []*rule.Rule {
	var out []*rule.Rule
	for _, r := range rules {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// available reports whether t is still placed and free to take part in a rule.
func (s *Simulator) available(t *tile.TileInSpace) bool {
	live, ok := s.tiles.Get(t.ID)
	return ok && live == t && !t.Locked && t.State != tile.StateDestroy
}

func (s *Simulator) lock(t *tile.TileInSpace, delay int) {
	if delay <= 0 {
		return
	}
	t.Locked = true
	t.ReadyStep = s.step + delay
}

func (s *Simulator) tileSites() []site {
	ts := s.tiles.Tiles()
	out := make([]site, len(ts))
	for i, t := range ts {
		out[i] = site{tile: t}
	}
	return out
}

func (s *Simulator) proteinSites() []site {
	var out []site
	for _, t := range s.tiles.Tiles() {
		for i := 0; i < t.NumProteins(); i++ {
			out = append(out, site{tile: t, index: i})
		}
	}
	return out
}

func (s *Simulator) connectorSites() []site {
	var out []site
	for _, t := range s.tiles.Tiles() {
		for _, i := range t.FreeConnectors() {
			out = append(out, site{tile: t, index: i})
		}
	}
	return out
}

// linkSites lists every connector-to-connector link once, from its lower ID side.
func (s *Simulator) linkSites() []site {
	var out []site
	for _, t := range s.tiles.Tiles() {
		for i := 0; i < t.NumConnectors(); i++ {
			link := t.Connector(i).ConnectedTo
			if link.IsZero() || link.IsSurface() || link.Tile < t.ID {
				continue
			}
			out = append(out, site{tile: t, index: i})
		}
	}
	return out
}

func (s *Simulator) linkGlues(st site) (string, string) {
	c := st.tile.Connector(st.index)
	peer, ok := s.tiles.Get(c.ConnectedTo.Tile)
	if !ok {
		return c.Glue.Name, ""
	}
	return c.Glue.Name, peer.Connector(c.ConnectedTo.Connector).Glue.Name
}

// covers reports whether found holds every object in need.
func covers(found []*floating.Object, need multiset.Multiset) bool {
	if need.IsEmpty() {
		return true
	}
	var have multiset.Multiset
	for _, o := range found {
		have.Add(o.Name(), 1)
	}
	return need.IsSubsetOf(have)
}

// placeable reports whether products can be released at p.
func (s *Simulator) placeable(products multiset.Multiset, p mgl64.Vec3) bool {
	return products.IsEmpty() || !s.tiles.IsNarrowSpace(p)
}

func (s *Simulator) consume(found []*floating.Object, need multiset.Multiset) error {
	if need.IsEmpty() {
		return nil
	}
	return s.objects.RemoveFrom(found, need)
}

func (s *Simulator) produce(products multiset.Multiset, p mgl64.Vec3) error {
	if products.IsEmpty() {
		return nil
	}
	return s.objects.AddAt(products, p)
}

// offset returns p lifted off the plane of t by MinFaceDist on the given side.
// Segments have no sides and return p.
func offset(t *tile.TileInSpace, p mgl64.Vec3, side float64) mgl64.Vec3 {
	if t.IsSegment() {
		return p
	}
	return p.Add(t.Shape().Normal().Mul(side * geometry.MinFaceDist))
}

func (s *Simulator) metabolic(st site, r *rule.Rule) (bool, error) {
	m, t := r.Metabolic, st.tile
	_, at := t.Protein(st.index)

	if t.IsSegment() {
		need := m.OutsideIn.Union(m.InsideIn)
		found := s.objects.NearProtein(t, st.index, need, nil)
		out := m.OutsideOut.Union(m.InsideOut)
		if !covers(found, need) || !s.placeable(out, at) {
			return false, nil
		}
		if err := s.consume(found, need); err != nil {
			return false, err
		}
		if err := s.produce(out, at); err != nil {
			return false, err
		}
		s.lock(t, r.Delay)
		return true, nil
	}

	side := func(want int) floating.Filter {
		return func(o *floating.Object) bool { return t.Side(o.Position) == want }
	}
	outside := s.objects.NearProtein(t, st.index, m.OutsideIn, side(1))
	if !covers(outside, m.OutsideIn) {
		return false, nil
	}
	inside := s.objects.NearProtein(t, st.index, m.InsideIn, side(-1))
	if !covers(inside, m.InsideIn) {
		return false, nil
	}
	outAt, inAt := offset(t, at, 1), offset(t, at, -1)
	if !s.placeable(m.OutsideOut, outAt) || !s.placeable(m.InsideOut, inAt) {
		return false, nil
	}
	if err := s.consume(outside, m.OutsideIn); err != nil {
		return false, err
	}
	if err := s.consume(inside, m.InsideIn); err != nil {
		return false, err
	}
	if err := s.produce(m.OutsideOut, outAt); err != nil {
		return false, err
	}
	if err := s.produce(m.InsideOut, inAt); err != nil {
		return false, err
	}
	s.lock(t, r.Delay)
	return true, nil
}

func (s *Simulator) destroy(st site, r *rule.Rule) (bool, error) {
	d, t := r.Destroy, st.tile
	found := s.objects.NearTile(t, d.Objects, nil)
	at := offset(t, t.Position(), 1)
	if !covers(found, d.Objects) || !s.placeable(d.Products, at) {
		return false, nil
	}
	if err := s.consume(found, d.Objects); err != nil {
		return false, err
	}
	if err := s.produce(d.Products, at); err != nil {
		return false, err
	}
	if r.Delay > 0 {
		s.lock(t, r.Delay)
		t.PendingDestroy = true
	} else {
		t.State = tile.StateDestroy
	}
	s.logger.Debug("tile destroyed", "id", t.ID, "tile", t.Name(), "rule", r.Name)
	return true, nil
}

func (s *Simulator) divide(st site, r *rule.Rule) (bool, error) {
	d, t := r.Divide, st.tile
	c := t.Connector(st.index)
	if c.ConnectedTo.IsZero() || c.PendingDisconnect {
		return false, nil
	}
	peer, ok := s.tiles.Get(c.ConnectedTo.Tile)
	if !ok || !s.available(peer) {
		return false, nil
	}
	pi := c.ConnectedTo.Connector
	pc := peer.Connector(pi)

	nextT, nextPeer := d.NextA, d.NextB
	if c.Glue.Name != d.A || pc.Glue.Name != d.B {
		nextT, nextPeer = d.NextB, d.NextA
	}
	at := c.Point().Add(pc.Point()).Mul(0.5)
	found := s.objects.NearPoint(at, d.Objects, nil)
	if !covers(found, d.Objects) || !s.placeable(d.Products, at) {
		return false, nil
	}
	if err := s.consume(found, d.Objects); err != nil {
		return false, err
	}
	if err := s.produce(d.Products, at); err != nil {
		return false, err
	}
	t.MarkDisconnect(st.index, s.glues[nextT])
	peer.MarkDisconnect(pi, s.glues[nextPeer])
	s.lock(t, r.Delay)
	s.lock(peer, r.Delay)
	return true, nil
}

// insert never fires: placing a tile into an existing link is not supported, so
// matching insert rules leave the world unchanged.
func (s *Simulator) insert(site, *rule.Rule) (bool, error) { return false, nil }

func (s *Simulator) create(st site, r *rule.Rule) (bool, error) {
	cr, t := r.Create, st.tile
	c := t.Connector(st.index)
	if !c.IsFree() || c.Glue.Name != cr.Glue {
		return false, nil
	}
	found := s.objects.NearConnector(c, cr.Objects, nil)
	if !covers(found, cr.Objects) {
		return false, nil
	}
	nt, ok, err := s.tiles.Add(s.protos[cr.Tile], tile.Ref{Tile: t.ID, Connector: st.index})
	if err != nil || !ok {
		return false, err
	}
	if err := s.consume(found, cr.Objects); err != nil {
		return false, err
	}
	if _, err := s.tiles.AutoConnect(nt); err != nil {
		return false, err
	}
	s.lock(t, r.Delay)
	s.lock(nt, r.Delay)
	s.logger.Debug("tile added", "id", nt.ID, "tile", nt.Name(), "on", t.ID, "rule", r.Name)
	return true, nil
}
