// Package snapshot records the observable state of a simulation and writes it to
// storage backends.
//
// A [Snapshot] is taken after a step has been finalized. It holds every placed
// tile and, optionally, every floating object. Snapshots are written to a [Sink]:
//   - null: discards everything
//   - memory: keeps snapshots in process, for tests and the control API
//   - file: one JSON file per step under a directory, for CLI runs
//   - redis: one key per step plus a latest key, for shared deployments
//   - mongo: one document per step, for long-lived archives
//
// # Usage
//
//	sink, err := snapshot.Open(ctx, snapshot.Options{Backend: "redis", Redis: snapshot.RedisConfig{
//	    Addr: "localhost:6379",
//	}})
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//
//	if err := sink.Write(ctx, snapshot.Take(s, runID, false)); err != nil {
//	    return err
//	}
package snapshot

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/sim"
)

// Snapshot is the state of a run after one finalized step.
type Snapshot struct {
	RunID   string         `json:"run_id" bson:"run_id"`
	Step    int            `json:"step" bson:"step"`
	TakenAt time.Time      `json:"taken_at" bson:"taken_at"`
	Tiles   []Tile         `json:"tiles" bson:"tiles"`
	Counts  map[string]int `json:"counts" bson:"counts"` // floating objects per type
	Objects []Object       `json:"objects,omitempty" bson:"objects,omitempty"`
}

// Tile is one placed tile.
type Tile struct {
	ID          uint64       `json:"id" bson:"id"`
	Name        string       `json:"name" bson:"name"`
	Position    [3]float64   `json:"position" bson:"position"`
	Orientation [4]float64   `json:"orientation" bson:"orientation"` // w, x, y, z
	Vertices    [][3]float64 `json:"vertices" bson:"vertices"`
	State       string       `json:"state" bson:"state"`
	Color       string       `json:"color,omitempty" bson:"color,omitempty"`
	Locked      bool         `json:"locked,omitempty" bson:"locked,omitempty"`
	Voltage     float64      `json:"voltage,omitempty" bson:"voltage,omitempty"`
	Seed        bool         `json:"seed,omitempty" bson:"seed,omitempty"`
}

// Object is one floating object.
type Object struct {
	ID       uint64     `json:"id" bson:"id"`
	Name     string     `json:"name" bson:"name"`
	Position [3]float64 `json:"position" bson:"position"`
}

// Take captures the current state of s. Object positions are included only when
// withObjects is set; per-type counts are always recorded.
func Take(s *sim.Simulator, runID string, withObjects bool) *Snapshot {
	snap := &Snapshot{
		RunID:   runID,
		Step:    s.StepIndex(),
		TakenAt: time.Now().UTC(),
		Counts:  make(map[string]int),
	}
	for _, t := range s.Tiles().Tiles() {
		q := t.Orientation()
		shape := t.Shape()
		vs := make([][3]float64, shape.NumVertices())
		for i := range vs {
			vs[i] = vec(shape.Vertex(i))
		}
		snap.Tiles = append(snap.Tiles, Tile{
			ID:          uint64(t.ID),
			Name:        t.Name(),
			Position:    vec(t.Position()),
			Orientation: [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
			Vertices:    vs,
			State:       t.State.String(),
			Color:       t.Color,
			Locked:      t.Locked,
			Voltage:     t.Voltage,
			Seed:        t.Seed,
		})
	}
	for _, ty := range s.Objects().Types() {
		snap.Counts[ty.Name] = s.Objects().Count(ty.Name)
	}
	if withObjects {
		for _, o := range s.Objects().Objects() {
			snap.Objects = append(snap.Objects, Object{ID: o.ID, Name: o.Name(), Position: vec(o.Position)})
		}
	}
	return snap
}

func vec(v mgl64.Vec3) [3]float64 { return [3]float64{v[0], v[1], v[2]} }
