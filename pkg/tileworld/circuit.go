package tileworld

import (
	"math"

	"github.com/matzehuels/tilesim/pkg/tile"
)

const (
	defaultCircuitIterations = 200
	circuitTolerance         = 1e-9

	// shortConductance stands in for a connection with zero total resistance.
	shortConductance = 1e9
)

// UpdateCircuit recomputes every tile voltage. Each connection is a resistor with
// the sum of both connector resistances, every free connector with a positive
// resistance leaks to ground, and tiles named in Circuit.Sources are held at their
// source voltage. Without a circuit it does nothing.
func (w *World) UpdateCircuit() {
	c := w.params.Circuit
	if c == nil {
		return
	}
	ids := w.ids()
	for _, id := range ids {
		t := w.tiles[id]
		if v, ok := c.Sources[t.Name()]; ok {
			t.Voltage = v
		}
	}

	for it := 0; it < c.Iterations; it++ {
		delta := 0.0
		for _, id := range ids {
			t := w.tiles[id]
			if _, ok := c.Sources[t.Name()]; ok {
				continue
			}
			var sum, weight float64
			for i := 0; i < t.NumConnectors(); i++ {
				conn := t.Connector(i)
				r := t.ConnectorProto(i).Resistance
				link := conn.ConnectedTo
				if link.IsZero() {
					if r > 0 {
						weight += 1 / r
					}
					continue
				}
				peer, ok := w.tiles[link.Tile]
				if !ok || link.IsSurface() {
					continue
				}
				g := conductance(r + peer.ConnectorProto(link.Connector).Resistance)
				sum += g * peer.Voltage
				weight += g
			}
			v := 0.0
			if weight > 0 {
				v = sum / weight
			}
			delta = math.Max(delta, math.Abs(v-t.Voltage))
			t.Voltage = v
		}
		if delta < circuitTolerance {
			break
		}
	}
}

func conductance(r float64) float64 {
	if r <= 0 {
		return shortConductance
	}
	return 1 / r
}

// Voltage returns the voltage of tile id, or zero if it does not exist.
func (w *World) Voltage(id tile.ID) float64 {
	if t, ok := w.tiles[id]; ok {
		return t.Voltage
	}
	return 0
}
