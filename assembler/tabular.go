package assembler

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hed-standard/hed-python-sub005/issue"
)

// TabularInput is one BIDS-style events file: a header row plus data
// rows, both already split into cells. Grounded on stdlib encoding/csv
// (DESIGN.md's domain-stack wiring for the tab-delimited events file
// format) rather than a hand-rolled scanner.
type TabularInput struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ReadTSV reads a tab-separated Tabular Input from r. name is recorded
// on the result for diagnostics only.
func ReadTSV(name string, r io.Reader) (*TabularInput, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("assembler: reading %q: %w", name, err)
	}
	if len(records) == 0 {
		return &TabularInput{Name: name}, nil
	}
	return &TabularInput{Name: name, Header: records[0], Rows: records[1:]}, nil
}

// rowCells converts one record into a column-name-keyed map using t's
// header, defaulting any short record's missing trailing cells to "".
func (t *TabularInput) rowCells(record []string) map[string]string {
	cells := make(map[string]string, len(t.Header))
	for i, name := range t.Header {
		if i < len(record) {
			cells[name] = record[i]
		} else {
			cells[name] = ""
		}
	}
	return cells
}

// AssembleTabular assembles every row of t with a, returning the issues
// AssembleRow reports for each row plus those CheckOnsetOrder reports
// for the whole sequence. The result preserves t's original row order; call SortByOnset
// separately if onset order matters to the caller.
func AssembleTabular(a *Assembler, t *TabularInput, ctx *issue.Context) ([]Row, []issue.Issue) {
	fileCtx := ctx.Push("file: " + t.Name)
	rows := make([]Row, len(t.Rows))
	var issues []issue.Issue

	for i, record := range t.Rows {
		cells := t.rowCells(record)
		row, rowIssues := a.AssembleRow(i, cells, fileCtx)
		rows[i] = row
		issues = append(issues, rowIssues...)
	}

	issues = append(issues, CheckOnsetOrder(rows, fileCtx)...)
	return rows, issues
}

// SortByOnset returns a copy of rows stable-sorted ascending by Onset,
// with rows that have no Onset kept in their original relative position
// at the end. Index is left untouched so callers can still trace a
// sorted row back to its source line.
func SortByOnset(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Onset, out[j].Onset
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out
}

// CheckOnsetOrder reports OnsetsNotOrdered once for each row whose Onset
// is smaller than a preceding row's Onset, in original row order.
func CheckOnsetOrder(rows []Row, ctx *issue.Context) []issue.Issue {
	var issues []issue.Issue
	haveMax := false
	var max float64
	for _, r := range rows {
		if r.Onset == nil {
			continue
		}
		if haveMax && *r.Onset < max {
			issues = append(issues, issue.New(issue.KindOnsetsNotOrdered,
				"row %d: onset %v precedes an earlier onset %v", r.Index, *r.Onset, max).WithContext(ctx.Row(r.Index)))
			continue
		}
		max = *r.Onset
		haveMax = true
	}
	return issues
}

// WriteAssembledTSV writes rows as a tab-separated table with columns
// onset, duration, HED, plus one column per distinct Attribute key seen
// across rows (sorted for determinism). A nil Onset/Duration renders as
// "n/a", matching the Attribute-column empty-cell convention used on the
// way in.
func WriteAssembledTSV(w io.Writer, rows []Row) error {
	attrNames := map[string]bool{}
	for _, r := range rows {
		for k := range r.Attributes {
			if k == "onset" || k == "duration" {
				continue
			}
			attrNames[k] = true
		}
	}
	var extra []string
	for k := range attrNames {
		extra = append(extra, k)
	}
	sort.Strings(extra)

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	cw.UseCRLF = false

	header := append([]string{"onset", "duration", "HED"}, extra...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := make([]string, 0, len(header))
		record = append(record, formatFloatPtr(r.Onset), formatFloatPtr(r.Duration), r.HED)
		for _, name := range extra {
			record = append(record, naIfEmpty(r.Attributes[name]))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func naIfEmpty(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
