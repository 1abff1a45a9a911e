// Package rule defines the evolution rules that drive a simulation.
//
// A [Rule] is a single tagged variant: [Rule.Kind] says which of the payload
// fields is set, and the simulator switches on the kind instead of dispatching
// through an interface. Rules are built from a [Definition], two symbol lists read
// by the grammar of the kind, and every symbol is classified by a [Catalog] as a
// floating object, glue, tile or protein.
//
// Within a step the kinds are applied in [Order]. Rules of one kind are tried by
// descending priority; [Groups] splits them into equal-priority runs that the
// simulator shuffles.
package rule
