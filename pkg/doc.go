// Package pkg provides the core libraries of shiftsched.
//
// # Overview
//
// shiftsched orders the ops of a computation graph so that the allocations
// they use are live for as little time as possible. The cost of an order is
// its summed liveness: at every position, the total weight of the allocs
// whose first use has happened and whose last use has not yet. The pkg
// directory is organized into three areas:
//
//  1. [shift] - Domain logic (graph model, constraint passes, Kahn sort,
//     shift search)
//  2. [cache], [pipeline] - Cached runs shared by the CLI and the HTTP API
//  3. [io], [config], [render/dot] - Files, settings and drawings
//
// # Architecture
//
// The typical data flow:
//
//	graph file (JSON/YAML)
//	         ↓
//	    [io] package (decode and validate)
//	         ↓
//	    [pipeline] package (cache lookup)
//	         ↓
//	    [shift] package (passes → Kahn → shift search)
//	         ↓
//	    order, summary, DOT/SVG/PNG
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/shiftsched/pkg/io"
//	    "github.com/matzehuels/shiftsched/pkg/shift"
//	)
//
//	g, _ := io.ImportGraph("model.json")
//
//	settings := shift.DefaultSettings()
//	settings.Termination.MaxSeconds = 10
//	res, err := shift.Schedule(g, settings)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Order, res.Summary.FinalSumLiveness)
//
// # Main Packages
//
// ## Scheduling
//
// [shift] - The graph of ops and allocs, the lexicographic [shift.Weight],
// the constraint-strengthening passes, the Kahn initial schedule and the
// shift-based local search. [shift.Schedule] runs all of it.
//
// [transitiveclosure] - Bit-row reachability between ops, with incremental
// edge insertion and first/final status queries used by the passes.
//
// [scc] - Strongly connected components in topological order, used to
// describe cycles in rejected graphs.
//
// ## Infrastructure
//
// [cache] - Byte caches keyed by content hash: file, memory (otter), badger,
// Redis and MongoDB backends plus a zstd decorator.
//
// [pipeline] - The lookup → schedule → store → render flow used by the CLI
// and the API, and concurrent best-of-N runs over several seeds.
//
// [observability] - Hook interfaces with no-op defaults and a Prometheus
// implementation.
//
// [errors] - Coded errors shared by every package.
//
// ## Files and Output
//
// [io] - Graph, result and order files.
//
// [config] - TOML settings files.
//
// [render/dot] - Graphviz drawings of graphs and schedules.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/shift/...              # Specific package
//	go test -run Example ./pkg/shift     # Examples only
//
// Redis and MongoDB tests run only when SHIFTSCHED_TEST_REDIS or
// SHIFTSCHED_TEST_MONGO point at a server.
//
// [shift]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/shift
// [transitiveclosure]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/transitiveclosure
// [scc]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/scc
// [cache]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/cache
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/pipeline
// [observability]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/errors
// [io]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/io
// [config]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/config
// [render/dot]: https://pkg.go.dev/github.com/matzehuels/shiftsched/pkg/render/dot
package pkg
