// Package floating tracks the diffusing objects around a tile structure.
//
// Objects live in a sparse uniform grid. The cell size is 2.02 times the largest
// mobility of any registered type, so a single diffusion hop never leaves the
// 2×2×2 block of cells around its origin, and a radius search with radius equal to
// a type's mobility touches at most that block.
//
// # Old and new objects
//
// Every cell keeps two disjoint sets. Old objects may react during the current
// step; objects created, released or moved in during the step go to the new set
// and only become reactable after [World.FinalizeStep]. This is what limits each
// object to one reaction per step.
//
// # Diffusion
//
// FinalizeStep merges the new sets into the old ones and then moves every object
// by a random hop drawn from a Maxwell–Boltzmann distribution truncated at the
// type's mobility. A hop that crosses a tile polygon, or lands closer than
// [geometry.SideDist] to one, is rejected. Environment types (those with a
// positive concentration) attempt a hop on half of the steps. Objects that leave
// the tracked region are dropped, and with refill enabled the six boundary slabs
// are topped up to the environment concentration afterwards.
//
// Cells are diffused in parallel, one task per cell. A task owns its cell's old
// set exclusively and touches other cells only to add an object to their new set,
// under that cell's lock.
package floating
