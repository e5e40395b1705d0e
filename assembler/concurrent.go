package assembler

import (
	"sync"

	"github.com/hed-standard/hed-python-sub005/config"
	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/logger"
	"github.com/hed-standard/hed-python-sub005/temporal"
)

// FileResult is one Tabular Input's assembled rows, derived temporal
// state, and issues, returned by AssembleFiles alongside its source
// file's name. Temporal completes spec.md §2's data flow past the Row
// Assembler (C8) into the Event Manager (C9): every file's rows are
// onset-sorted and run through temporal.Process before AssembleFiles
// returns, rather than leaving that step to the caller.
type FileResult struct {
	Name     string
	Rows     []Row
	Temporal temporal.Result
	Issues   []issue.Issue
}

// AssembleFiles assembles every input concurrently, one goroutine per
// Tabular Input bounded by workers (the module's one parallel entry
// point, per DESIGN.md's concurrency notes — mirroring EntityDB's
// worker-pool-over-independent-units shape rather than introducing a
// second one anywhere else in the module). mapperFor builds a
// Finalize'd Assembler for one named input; it is called once per input
// and must be safe to call concurrently with itself. Results are
// returned in the same order as inputs regardless of completion order.
//
// workers <= 0 falls back to config.Config.AssemblerWorkers (itself
// defaulted to runtime.GOMAXPROCS(0) unless overridden by
// HED_ASSEMBLER_WORKERS or a config file), rather than an unconditional
// clamp to 1 — so a caller that does not care about tuning concurrency
// gets this library's own configured default instead of no parallelism
// at all.
func AssembleFiles(inputs []*TabularInput, mapperFor func(name string) *Assembler, workers int) []FileResult {
	if workers < 1 {
		workers = config.Load().AssemblerWorkers
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]FileResult, len(inputs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, in := range inputs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, in *TabularInput) {
			defer wg.Done()
			defer func() { <-sem }()

			a := mapperFor(in.Name)
			rows, issues := AssembleTabular(a, in, nil)
			tres, tissues := DeriveTemporal(rows, issue.File(in.Name))
			issues = append(issues, tissues...)
			results[i] = FileResult{Name: in.Name, Rows: rows, Temporal: tres, Issues: issues}
		}(i, in)
	}
	wg.Wait()

	logger.Info("assembled %d file(s) with %d worker(s)", len(inputs), workers)
	return results
}
