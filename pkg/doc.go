// Package pkg provides the libraries of the tilesim tile self-assembly simulator.
//
// # Overview
//
// Tilesim grows a 3D structure out of rigid tiles (convex polygons or segments)
// that connect through glued connectors. Floating objects diffuse around the
// structure and react with it under maximally parallel rewrite rules that grow,
// destroy, split and pump across tiles.
//
// # Architecture
//
// One simulation step flows through the packages like this:
//
//	[scenario] or hand-built sim.Input
//	         ↓
//	    [sim] (apply metabolic, destroy, divide, insert, create rules)
//	         ↓
//	    [tileworld] + [floating] (commit links, diffuse objects)
//	         ↓
//	    [control] (run loop, pause/stop, snapshots)
//	         ↓
//	    [snapshot] sink: memory, file, redis or mongo
//
// # Quick Start
//
//	in, _ := scenario.Build("squares")
//	in.Params.Seed = 7
//	s, _ := sim.New(in, logger)
//
//	sink := snapshot.NewMemorySink(0)
//	ctrl := control.New(s, sink, control.Options{}, logger)
//	_ = ctrl.Run(ctx, 100)
//
// # Main Packages
//
// ## Geometry and Tiles
//
// [geometry] - Polygons and segments, planes, boxes, intersection predicates and
// the pushing vector that separates two overlapping shapes.
//
// [multiset] - Counts per name with an infinite sentinel, used for rule
// reactants, products and glue signals.
//
// [tile] - Glues, the glue relation, connectors, immutable tile prototypes and
// their live instances in space.
//
// ## Worlds
//
// [tileworld] - The tile graph: insertion with pushing, automatic connection,
// removal, components, narrow-space checks and the resistive circuit.
//
// [floating] - Floating objects in a spatial hash grid with near queries,
// parallel diffusion and boundary refill.
//
// ## Simulation
//
// [rule] - Rule definitions, name classification and validation.
//
// [sim] - The simulator: ordered rule application and step finalization.
//
// [control] - A controller that runs a simulator with pause, resume and stop.
//
// ## Infrastructure
//
// [snapshot] - Snapshots of a run and the sinks that store them.
//
// [config] - TOML run configuration.
//
// [observability] - Hooks for steps, rules, snapshot writes and HTTP requests.
//
// [errors] - Coded errors and multi-issue validation errors.
//
// [buildinfo] - Version information.
//
// # Testing
//
//	go test ./...                            # All tests
//	go test -tags integration ./pkg/snapshot # Redis and MongoDB backends
//
// [scenario]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/scenario
// [sim]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/sim
// [tileworld]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/tileworld
// [floating]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/floating
// [control]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/control
// [snapshot]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/snapshot
// [geometry]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/geometry
// [multiset]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/multiset
// [tile]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/tile
// [rule]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/rule
// [config]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/tilesim/pkg/buildinfo
package pkg
