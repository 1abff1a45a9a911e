// Package sim runs the evolution of a tile system.
//
// A [Simulator] owns a tile world and a floating-object world and advances them in
// discrete steps. Each step applies the rules category by category, in the fixed
// order of [rule.Order]:
//
//  1. Metabolic rules exchange objects across membrane proteins.
//  2. Destroy rules mark tiles for removal.
//  3. Divide rules flag links for disconnection.
//  4. Insert rules are matched but never placed.
//  5. Create rules grow new tiles from free connectors.
//
// Within a category the candidate sites are visited in random order. For each
// site the rules that could apply are tried by descending priority, in random
// order within a priority, and the first one whose reactants are found near the
// site fires. A site takes part in at most one rule per step.
//
// Objects produced by a rule are not reactable until the step is finalized, so a
// product is never consumed in the step that made it.
//
// # Finalizing
//
// [Simulator.FinalizeStep] commits and diffuses the floating objects, breaks the
// flagged links, updates the circuit, releases the locks of delayed rules, clears
// the per-step tile flags, removes destroyed tiles and grows the floating region to
// cover the structure.
package sim
