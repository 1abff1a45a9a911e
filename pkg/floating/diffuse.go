package floating

import (
	"context"
	"math/rand/v2"
	"runtime"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/tilesim/pkg/geometry"
)

// maxHopDraws bounds the resampling of a hop longer than the mobility.
const maxHopDraws = 16

// FinalizeStep makes every object reactable, diffuses them, drops the ones that
// left the region and, with refill enabled, tops up the boundary slabs. When frozen
// it only makes the new objects reactable.
func (w *World) FinalizeStep(ctx context.Context) error {
	w.commit()
	if w.params.Frozen {
		return nil
	}
	if err := w.diffuse(ctx); err != nil {
		return err
	}
	w.commit()
	w.grid.prune()
	if w.params.Refill {
		w.refill()
	}
	return nil
}

// commit merges each bucket's new set into its old set.
func (w *World) commit() {
	for _, b := range w.grid.buckets {
		for id, o := range b.fresh {
			b.old[id] = o
		}
		clear(b.fresh)
	}
}

func (w *World) diffuse(ctx context.Context) error {
	keys := w.grid.sortedKeys()
	type task struct {
		b    *bucket
		seed [2]uint64
	}
	tasks := make([]task, len(keys))
	for i, k := range keys {
		tasks[i] = task{b: w.grid.buckets[k], seed: [2]uint64{w.rng.Uint64(), w.rng.Uint64()}}
	}

	workers := w.params.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			w.diffuseBucket(t.b, rand.New(rand.NewPCG(t.seed[0], t.seed[1])))
			return nil
		})
	}
	return g.Wait()
}

// diffuseBucket hops every old object of b. Moved objects are handed to their
// destination's new set, which commit folds back afterwards.
func (w *World) diffuseBucket(b *bucket, rng *rand.Rand) {
	ids := make([]uint64, 0, len(b.old))
	for id := range b.old {
		ids = append(ids, id)
	}
	// map order would make the draws irreproducible
	slices.Sort(ids)

	for _, id := range ids {
		o := b.old[id]
		if o.Type.IsEnvironment() && rng.IntN(2) == 0 {
			continue
		}
		q, ok := w.hop(o, rng)
		if !ok {
			continue
		}
		delete(b.old, id)
		if !w.region.Contains(q) {
			continue
		}
		o.Position = q
		dst := w.grid.get(w.grid.keyOf(q), true)
		dst.mu.Lock()
		dst.fresh[id] = o
		dst.mu.Unlock()
	}
}

// hop draws a displacement for o and reports whether it is allowed.
func (w *World) hop(o *Object, rng *rand.Rand) (mgl64.Vec3, bool) {
	m := o.Type.Mobility
	sigma := m / 3
	var h mgl64.Vec3
	for i := 0; ; i++ {
		if i == maxHopDraws {
			return mgl64.Vec3{}, false
		}
		h = mgl64.Vec3{rng.NormFloat64() * sigma, rng.NormFloat64() * sigma, rng.NormFloat64() * sigma}
		if h.Len() <= m {
			break
		}
	}
	p := o.Position
	q := p.Add(h)
	for _, poly := range w.obstacles.Polygons(geometry.NewBox(p, q).Expand(geometry.SideDist)) {
		if poly.CrossesSegment(p, q) || poly.Distance(q) < geometry.SideDist {
			return mgl64.Vec3{}, false
		}
	}
	return q, true
}

// refill tops up each boundary slab to the environment concentration.
func (w *World) refill() {
	added := 0
	for _, slab := range w.region.Slabs(w.mobility) {
		have := make(map[string]int)
		for _, k := range w.grid.keysAround(slab.Min, slab.Max) {
			for _, o := range w.grid.buckets[k].old {
				if slab.Contains(o.Position) {
					have[o.Type.Name]++
				}
			}
		}
		added += w.fill(slab, have)
	}
	if added > 0 {
		w.logger.Debug("boundary refilled", "added", added)
	}
}
