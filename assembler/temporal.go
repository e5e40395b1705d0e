package assembler

import (
	"math"

	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/temporal"
)

// ToTemporalRows adapts assembled Rows into the Event Manager's input
// shape (spec.md §2's "C8 produces one HED tree per row → C9 derives
// temporal state"). Rows must already be onset-ordered — pass the
// result of SortByOnset, not a file's original row order. A row with no
// Onset attribute becomes NaN, which temporal.Process reports as
// KindOnsetsNotOrdered rather than silently treating as time zero.
func ToTemporalRows(rows []Row) []temporal.Row {
	out := make([]temporal.Row, len(rows))
	for i, r := range rows {
		t := math.NaN()
		if r.Onset != nil {
			t = *r.Onset
		}
		var tree *hed.Group
		if r.Tree != nil {
			tree = r.Tree.Group
		}
		out[i] = temporal.Row{Index: r.Index, Time: t, Tree: tree}
	}
	return out
}

// DeriveTemporal sorts rows by onset and runs the Event Manager over
// them, completing the data flow from spec.md §2: Row Assembler output
// feeds the Event Manager rather than stopping at assembled HED strings.
func DeriveTemporal(rows []Row, ctx *issue.Context) (temporal.Result, []issue.Issue) {
	ordered := SortByOnset(rows)
	return temporal.Process(ToTemporalRows(ordered), ctx)
}
