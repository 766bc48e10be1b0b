package aggregation

import (
	"errors"
	"runtime"
	"sync"

	"github.com/marketlens-lab/marketlens/internal/core/catalog"
)

// ErrUnknownView marks requests for an unsupported view kind or knob value.
// Surfaced to clients as a 400.
var ErrUnknownView = errors.New("unknown view kind")

// viewComputer defines the scan semantics of one view kind.
// To add a new view: implement this interface and register it in computers.
// The engine's scan loop stays generic — no switch on view kinds.
type viewComputer interface {
	// newPartial allocates per-worker scan state for one snapshot.
	newPartial(snap *catalog.Snapshot, req Request) partial

	// finalize merges partials (in chunk order, so row order is
	// recoverable) and builds the finished view.
	finalize(partials []partial, snap *catalog.Snapshot, req Request) View
}

// partial accumulates matching rows for one worker's chunk.
type partial interface {
	add(i int)
}

// computers is the registry of all supported view kinds.
var computers = map[ViewKind]viewComputer{
	ViewKPI:                    kpiComputer{},
	ViewDistribution:           distributionComputer{},
	ViewBrandPerformance:       brandComputer{},
	ViewProductTypePerformance: productTypeComputer{},
	ViewHeatmap:                heatmapComputer{},
	ViewScatter:                scatterComputer{},
}

// Engine computes aggregate views over a catalog snapshot. It is stateless
// per request: any number of Aggregate calls may run concurrently against
// the same generation.
type Engine struct {
	workers int
}

// NewEngine creates an engine with the given scan parallelism.
// workers <= 0 means one worker per available CPU.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{workers: workers}
}

// Aggregate applies pred to snap and computes the requested view in a
// single pass over the record set: the scan is chunked across workers, each
// worker folds matching rows into partial state, and the partials are
// merged once at the end. An empty filtered set yields a well-formed
// zeroed view, never an error.
func (e *Engine) Aggregate(req Request, pred catalog.Predicate, snap *catalog.Snapshot) (View, error) {
	req, err := req.Normalize()
	if err != nil {
		return View{}, err
	}
	comp := computers[req.Kind]

	n := snap.Len()
	workers := e.workers
	if workers > n {
		workers = 1
	}

	matcher := pred.Compile(snap)
	partials := make([]partial, workers)
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}

		p := comp.newPartial(snap, req)
		partials[w] = p

		wg.Add(1)
		go func(start, end int, p partial) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if matcher.Matches(i) {
					p.add(i)
				}
			}
		}(start, end, p)
	}
	wg.Wait()

	return comp.finalize(partials, snap, req), nil
}
