package floating

import (
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/geometry"
)

const (
	keyBits   = 21
	keyOffset = 1 << (keyBits - 1)
	keyMask   = 1<<keyBits - 1

	// cellFactor relates the cell size to the largest mobility.
	cellFactor = 2.02
)

// cellKey packs three signed cell coordinates into one integer. Each coordinate
// must lie in [-keyOffset, keyOffset); larger ones would alias.
type cellKey uint64

func packKey(x, y, z int) cellKey {
	return cellKey(uint64(x+keyOffset)&keyMask<<(2*keyBits) |
		uint64(y+keyOffset)&keyMask<<keyBits |
		uint64(z+keyOffset)&keyMask)
}

func (k cellKey) coords() (int, int, int) {
	x := int(uint64(k)>>(2*keyBits)&keyMask) - keyOffset
	y := int(uint64(k)>>keyBits&keyMask) - keyOffset
	z := int(uint64(k)&keyMask) - keyOffset
	return x, y, z
}

type bucket struct {
	mu  sync.Mutex // guards fresh during diffusion
	old map[uint64]*Object
	// fresh holds the objects that are not reactable until the next finalize
	fresh map[uint64]*Object
}

func newBucket() *bucket {
	return &bucket{old: make(map[uint64]*Object), fresh: make(map[uint64]*Object)}
}

func (b *bucket) isEmpty() bool { return len(b.old) == 0 && len(b.fresh) == 0 }

// grid is the sparse map of buckets. mu guards the map itself while diffusion
// tasks may create buckets.
type grid struct {
	cell    float64
	mu      sync.Mutex
	buckets map[cellKey]*bucket
}

func newGrid(cell float64) *grid {
	return &grid{cell: cell, buckets: make(map[cellKey]*bucket)}
}

func (g *grid) index(v float64) int { return int(math.Floor(v / g.cell)) }

// covers reports whether every cell of box has a distinct key.
func (g *grid) covers(box geometry.Box) bool {
	for i := 0; i < 3; i++ {
		if g.index(box.Min[i]) < -keyOffset || g.index(box.Max[i]) >= keyOffset {
			return false
		}
	}
	return true
}

func (g *grid) keyOf(p mgl64.Vec3) cellKey {
	return packKey(g.index(p[0]), g.index(p[1]), g.index(p[2]))
}

// get returns the bucket at k, creating it when create is set.
func (g *grid) get(k cellKey, create bool) *bucket {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.buckets[k]
	if !ok && create {
		b = newBucket()
		g.buckets[k] = b
	}
	return b
}

// keysAround returns the existing bucket keys overlapping the box [lo, hi].
func (g *grid) keysAround(lo, hi mgl64.Vec3) []cellKey {
	var keys []cellKey
	for x := g.index(lo[0]); x <= g.index(hi[0]); x++ {
		for y := g.index(lo[1]); y <= g.index(hi[1]); y++ {
			for z := g.index(lo[2]); z <= g.index(hi[2]); z++ {
				k := packKey(x, y, z)
				if _, ok := g.buckets[k]; ok {
					keys = append(keys, k)
				}
			}
		}
	}
	return keys
}

func (g *grid) sortedKeys() []cellKey {
	keys := make([]cellKey, 0, len(g.buckets))
	for k := range g.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (g *grid) prune() {
	for k, b := range g.buckets {
		if b.isEmpty() {
			delete(g.buckets, k)
		}
	}
}
