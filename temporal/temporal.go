// Package temporal implements the Event Manager (C9): pairing
// Onset/Offset/Inset/Duration markers across rows into per-definition
// intervals, and deriving each row's "context" of currently-active tags.
//
// Grounded on osakka-entitydb's temporal_utils.go/time_utils.go: a
// per-key interval stack walked in one linear pass, generalized from
// entity-snapshot time ranges to per-definition-name HED intervals.
// The state machine itself is hand-rolled on the standard library plus
// golang.org/x/text/cases for name folding, rather than a coroutine or
// coordinating goroutine —
// it is a single sequential scan over already-ordered rows, not
// concurrent work.
package temporal

import (
	"math"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
)

var foldCase = cases.Fold()

func fold(s string) string { return foldCase.String(s) }

// secondsPerUnit is the set of time units accepted for a Duration
// marker's extension, expressed as a seconds multiplier.
var secondsPerUnit = map[string]float64{
	"s": 1, "second": 1, "seconds": 1,
	"ms": 0.001, "millisecond": 0.001, "milliseconds": 0.001,
	"min": 60, "minute": 60, "minutes": 60,
	"hour": 3600, "hours": 3600,
	"day": 86400, "days": 86400,
}

// Row is one assembled row's input to the Event Manager: its row index,
// onset time, and parsed HED tree. Tree may be nil for a row that failed
// assembly (spec.md §7's "empty HED String" policy) — it contributes no
// markers and renders an empty hed[i].
type Row struct {
	Index int
	Time  float64
	Tree  *hed.Group
}

// Event is one completed or still-open temporal interval.
type Event struct {
	// Name is the anchor definition's case-folded name, or "" for an
	// anonymous Duration interval with no Def/Def-expand reference.
	Name      string
	Body      []hed.Item
	StartRow  int
	StartTime float64
	// EndRow is nil only while the interval is open mid-processing;
	// Process closes every still-Active interval at the final row before
	// returning, so a returned Event's EndRow is always set. An Onset
	// interval closed at end of input keeps a nil EndTime, while one
	// closed by an Offset or a later Onset of the same name has it set.
	// A Duration interval carries the EndTime computed when it opened,
	// even if the input ran out before any row reached it.
	EndRow  *int
	EndTime *float64
}

// RowResult is one row's temporal decomposition, per spec.md §4.9.
type RowResult struct {
	Index int
	// HED is hed[i]: the row's own tags with every Onset/Offset/Inset/
	// Duration marker group removed entirely.
	HED string
	// Base is base[i]: the body of a Duration marker beginning on this
	// row, carried through the interval it opens.
	Base string
	// Context is context[i]: the union of bodies of intervals open from
	// a strictly earlier row, rendered inside "(Event-context, (...))".
	// Empty if no such interval is open.
	Context string
}

// ContextInclusiveHED concatenates hed[i], base[i], and the Event-context
// wrapper, skipping any empty piece, per spec.md §4.9.
func (r RowResult) ContextInclusiveHED() string {
	var parts []string
	if r.HED != "" {
		parts = append(parts, r.HED)
	}
	if r.Base != "" {
		parts = append(parts, r.Base)
	}
	if r.Context != "" {
		parts = append(parts, "(Event-context, ("+r.Context+"))")
	}
	return strings.Join(parts, ", ")
}

// Result is the outcome of processing a full, time-ordered row sequence.
type Result struct {
	Rows   []RowResult
	Events []Event // completed and still-open, in the order they opened
}

// Process runs the Onset/Offset/Inset/Duration state machine over rows,
// which must already be sorted ascending by Time (assembler.SortByOnset
// does this; Process itself only validates the order, per spec.md §4.9's
// "rows must be sorted ... for temporal processing"). It never aborts on
// a bad row or a disordered onset: every row still gets a RowResult, and
// every issue found is collected and returned alongside Result.
func Process(rows []Row, ctx *issue.Context) (Result, []issue.Issue) {
	var issues []issue.Issue
	issues = append(issues, checkOnsetOrder(rows, ctx)...)

	m := &manager{active: map[string]*Event{}}
	result := Result{Rows: make([]RowResult, len(rows))}

	for i, row := range rows {
		rowIssues := m.processRow(row, ctx)
		issues = append(issues, rowIssues...)
		result.Rows[i] = m.lastResult
	}

	if len(rows) > 0 {
		m.closeAtEnd(rows[len(rows)-1].Index)
	}
	result.Events = m.allEvents()
	return result, issues
}

func checkOnsetOrder(rows []Row, ctx *issue.Context) []issue.Issue {
	var issues []issue.Issue
	haveMax := false
	var max float64
	for _, r := range rows {
		if math.IsNaN(r.Time) {
			issues = append(issues, issue.New(issue.KindOnsetsNotOrdered, "row %d: onset is NaN", r.Index).WithContext(ctx.Row(r.Index)))
			continue
		}
		if haveMax && r.Time < max {
			issues = append(issues, issue.New(issue.KindOnsetsNotOrdered,
				"row %d: onset %v precedes an earlier onset %v", r.Index, r.Time, max).WithContext(ctx.Row(r.Index)))
			continue
		}
		max = r.Time
		haveMax = true
	}
	return issues
}

