// Package tileworld holds the connectivity graph of placed tiles.
//
// A [World] is an id-indexed arena of [tile.TileInSpace] values. Links between
// tiles are stored as [tile.Ref] handles on the connectors themselves, so the graph
// can be cyclic without any tile holding a pointer to another. Rigid components are
// found by breadth-first traversal over those handles.
//
// # Insertion
//
// [World.Add] grows a new tile out of a free connector. The candidate is placed with
// [tile.Place] and then swept along its growth direction, from fully behind the
// attachment point to its final position:
//
//  1. Every tile the sweep runs into receives a push along the growth direction,
//     and the push is spread to its whole rigid component.
//  2. Pushed tiles push the tiles in front of them in turn, until no push grows.
//     Pushes only grow and never exceed the largest primary push, so this settles.
//  3. The pushes are applied tentatively and the candidate is re-checked against
//     the moved world.
//  4. A segment that still does not fit is shortened to the longest length that
//     does. Otherwise all pushes are committed at once, floating objects in the way
//     are dragged along, and the candidate is linked to its target.
//
// The target's own component, and every component that contains a locked tile,
// cannot move. An insertion that would have to push them is rejected; that is an
// ordinary false result, not an error.
//
// # Auto-connect
//
// [World.AutoConnect] links a newly placed tile to every compatible free connector
// within the glue radius, and rods to polygon surfaces carrying a compatible surface
// glue. Each connection releases the signal objects of its glue pair through the
// world's [ObjectField].
//
// # Circuits
//
// With [Params.Circuit] set the world also carries a voltage per tile, recomputed
// by [World.UpdateCircuit] from a resistor network over the connections. New tiles
// then only attach where the existing side reaches the threshold voltage.
package tileworld
