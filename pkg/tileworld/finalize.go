package tileworld

import (
	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/tile"
)

// PerformDisconnects breaks every link flagged for disconnection and returns how
// many links were broken.
func (w *World) PerformDisconnects() (int, error) {
	n := 0
	for _, id := range w.ids() {
		t := w.tiles[id]
		for i := 0; i < t.NumConnectors(); i++ {
			c := t.Connector(i)
			if !c.PendingDisconnect {
				continue
			}
			peer, ok := w.tiles[c.ConnectedTo.Tile]
			if !ok {
				return n, errors.New(errors.ErrCodeInternal, "tile %d connector %d links missing tile %d", id, i, c.ConnectedTo.Tile)
			}
			if err := tile.Disconnect(t, i, peer); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// Unlock releases every lock whose ready step has been reached. Tiles waiting on a
// delayed destroy are marked StateDestroy. It returns the released IDs.
func (w *World) Unlock(step int) []tile.ID {
	var out []tile.ID
	for _, id := range w.ids() {
		t := w.tiles[id]
		if !t.Locked || t.ReadyStep > step {
			continue
		}
		t.Locked = false
		if t.PendingDestroy {
			t.PendingDestroy = false
			t.State = tile.StateDestroy
		}
		out = append(out, id)
	}
	return out
}

// ClearFlags resets create and move states and the push scratch.
func (w *World) ClearFlags() {
	for _, t := range w.tiles {
		if t.State == tile.StateCreate || t.State == tile.StateMove {
			t.State = tile.StateUnchanged
		}
		t.Push = 0
	}
}

// RemoveDestroyed deletes every tile in StateDestroy and returns their IDs.
func (w *World) RemoveDestroyed() ([]tile.ID, error) {
	var out []tile.ID
	for _, id := range w.ids() {
		if w.tiles[id].State != tile.StateDestroy {
			continue
		}
		if err := w.Remove(id); err != nil {
			return out, err
		}
		out = append(out, id)
	}
	return out, nil
}

// RemoveDetached deletes every tile whose component holds no seed and returns their
// IDs.
func (w *World) RemoveDetached() ([]tile.ID, error) {
	_, groups := w.components()
	var out []tile.ID
	for _, g := range groups {
		anchored := false
		for _, id := range g {
			if w.tiles[id].Seed {
				anchored = true
				break
			}
		}
		if anchored {
			continue
		}
		for _, id := range g {
			if err := w.Remove(id); err != nil {
				return out, err
			}
			out = append(out, id)
		}
	}
	return out, nil
}
