// Package assembler implements the Row Assembler (C8): combining a
// Column Mapper's per-cell expansions into one assembled HED String per
// row of a Tabular Input, resolving curly-brace column references, and
// applying the caller's chosen Def/Def-expand handling.
//
// Grounded on models/retention_policy.go's batch-row-processing-with-
// per-row-error-collection shape (continue past a bad row, record its
// diagnostic, keep going) and models/repository_query_wrapper.go's thin
// pass-through wrapper idiom for the Attribute-column side mapping
// (DESIGN.md).
package assembler

import (
	"strconv"
	"strings"

	"github.com/hed-standard/hed-python-sub005/definitions"
	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/logger"
	"github.com/hed-standard/hed-python-sub005/parser"
	"github.com/hed-standard/hed-python-sub005/schema"
	"github.com/hed-standard/hed-python-sub005/sidecar"
)

// DefHandling selects what AssembleRow does with Def/Def-expand usages
// in the assembled row string.
type DefHandling int

const (
	// DefLeave leaves Def/Def-expand usages exactly as assembled.
	DefLeave DefHandling = iota
	// DefExpand expands every resolvable bare "Def/name" into
	// "(Def-expand/name, body)".
	DefExpand
	// DefShrink collapses every "(Def-expand/name, body)" back to a
	// bare "Def/name".
	DefShrink
)

// Row is one Tabular Input row's assembled result.
type Row struct {
	Index      int
	Onset      *float64
	Duration   *float64
	Attributes map[string]string
	HED        string
	Tree       *hed.HEDString
}

// Assembler binds a finalized Column Mapper, a Schema, and an optional
// Definition Dictionary, and produces one Row per call to AssembleRow.
type Assembler struct {
	Mapper      *sidecar.Mapper
	Schema      schema.Source
	Defs        *definitions.Dictionary
	DefHandling DefHandling
}

// NewAssembler returns an Assembler over an already-Finalize'd mapper.
func NewAssembler(mapper *sidecar.Mapper, src schema.Source, defs *definitions.Dictionary) *Assembler {
	return &Assembler{Mapper: mapper, Schema: src, Defs: defs}
}

// AssembleRow produces the assembled HED String for one row. cells maps
// column name to raw cell text; rows that fail assembly still return a
// Row with an empty HED string (rather than no Row at all) so temporal
// processing downstream can continue over every row index, per
// spec.md §7's "row that fails assembly ... yields an empty HED String"
// policy. Every returned issue is attached to ctx plus this row's index
// and, where applicable, the offending column.
func (a *Assembler) AssembleRow(rowIndex int, cells map[string]string, ctx *issue.Context) (Row, []issue.Issue) {
	rowCtx := ctx.Row(rowIndex)
	var issues []issue.Issue

	columns := a.Mapper.Columns()
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	raw := make(map[string]*string, len(columns))
	attrs := map[string]string{}

	for _, col := range columns {
		meta, ok := a.Mapper.Column(col)
		if !ok {
			continue
		}
		res, iss := a.Mapper.ExpandColumn(col, cells[col])
		if iss != nil {
			issues = append(issues, iss.WithContext(rowCtx.Column(col)))
			continue
		}
		if meta.Category == sidecar.Attribute {
			if res.AttributeValue != "" {
				attrs[res.AttributeName] = res.AttributeValue
			}
			continue
		}
		raw[col] = res.Fragment
	}

	// A column named inside another column's "{name}" reference
	// contributes only through that substitution, not a second time as
	// its own top-level segment — referenced columns are value sources,
	// not independent annotations (spec.md §8 S5).
	referenced := map[string]bool{}
	for _, fragPtr := range raw {
		if fragPtr == nil {
			continue
		}
		for _, name := range referencedColumnNames(*fragPtr) {
			referenced[name] = true
		}
	}

	// Every fragment carrying a reference is resolved (and validated) once
	// here, even one belonging to a referenced-only column: an invalid
	// reference must be reported whether or not the column it lives in
	// ends up contributing to the top-level join.
	var parts []string
	for _, col := range columns {
		meta, ok := a.Mapper.Column(col)
		if !ok || meta.Category == sidecar.Ignore || meta.Category == sidecar.Attribute {
			continue
		}
		fragPtr := raw[col]
		if fragPtr == nil {
			continue
		}
		resolved, subIssues := substituteColumnRefs(*fragPtr, raw, known)
		for _, is := range subIssues {
			issues = append(issues, is.WithContext(rowCtx.Column(col)))
		}
		if referenced[col] {
			continue
		}
		resolved = strings.TrimSpace(resolved)
		if resolved == "" {
			continue
		}
		parts = append(parts, resolved)
	}

	assembledText := strings.Join(parts, ", ")
	row := Row{Index: rowIndex, Attributes: attrs}

	tree, parseIssues, err := parser.Parse(assembledText, a.Schema, a.defsLookup())
	if err != nil {
		issues = append(issues, issue.New(issue.KindBlankHEDString, "row %d: %v", rowIndex, err).WithContext(rowCtx))
		tree, _, _ = parser.Parse("", a.Schema, nil)
	}
	for _, is := range parseIssues {
		issues = append(issues, is.WithContext(rowCtx))
	}

	if a.Defs != nil {
		switch a.DefHandling {
		case DefExpand:
			issues = append(issues, withCtx(definitions.ExpandDefs(tree, a.Defs), rowCtx)...)
		case DefShrink:
			issues = append(issues, withCtx(definitions.ShrinkDefs(tree), rowCtx)...)
		}
	}

	row.Tree = tree
	row.HED = tree.Render(hed.RenderShort, nil)

	if onsetText, ok := attrs["onset"]; ok {
		v, perr := strconv.ParseFloat(onsetText, 64)
		if perr != nil {
			issues = append(issues, issue.New(issue.KindWrongHEDDataType, "row %d: onset %q is not numeric", rowIndex, onsetText).WithContext(rowCtx))
		} else {
			row.Onset = &v
		}
	}
	if durText, ok := attrs["duration"]; ok {
		v, perr := strconv.ParseFloat(durText, 64)
		switch {
		case perr != nil:
			issues = append(issues, issue.New(issue.KindWrongHEDDataType, "row %d: duration %q is not numeric", rowIndex, durText).WithContext(rowCtx))
		case v < 0:
			issues = append(issues, issue.New(issue.KindDurationNegative, "row %d: duration %v is negative", rowIndex, v).WithContext(rowCtx))
		default:
			row.Duration = &v
		}
	}

	if row.HED == "" && assembledText != "" {
		logger.Error("row %d: assembly of %q produced an empty HED String", rowIndex, assembledText)
	}

	return row, issues
}

// defsLookup adapts a.Defs (or nil) to hed.DefinitionLookup, since
// parser.Parse rejects a non-nil defs argument when Schema is nil.
func (a *Assembler) defsLookup() hed.DefinitionLookup {
	if a.Defs == nil || a.Schema == nil {
		return nil
	}
	return a.Defs
}

func withCtx(issues []issue.Issue, ctx *issue.Context) []issue.Issue {
	out := make([]issue.Issue, len(issues))
	for i, is := range issues {
		out[i] = is.WithContext(ctx)
	}
	return out
}

// referencedColumnNames extracts every "{name}" token's name from text,
// without validating that name against any known-columns set.
func referencedColumnNames(text string) []string {
	var names []string
	i := 0
	for i < len(text) {
		if text[i] != '{' {
			i++
			continue
		}
		end := strings.IndexByte(text[i:], '}')
		if end == -1 {
			break
		}
		names = append(names, text[i+1:i+end])
		i += end + 1
	}
	return names
}

// substituteColumnRefs replaces every "{column_name}" token in text
// with that column's raw (already column-expanded, not further
// resolved) fragment, or nothing if that column's expansion was empty.
// Referenced columns must not themselves carry a further "{...}"
// reference (spec.md §4.8): such a reference, including a column
// referencing itself, is reported as CircularColumnRef and substitutes
// nothing. A name not present in known is UnknownColumnRef.
//
// Substitution happens before parsing, not after: the parser already
// drops groups that end up with no children (hed.Group's "no empty
// groups" invariant), so "({col}, (...))" with col expanding to "" and
// the inner group wholly empty collapses to the right shape — "(Red),
// Event" for spec.md §8 S5 — without assembler-side group surgery.
func substituteColumnRefs(text string, raw map[string]*string, known map[string]bool) (string, []issue.Issue) {
	var out strings.Builder
	var issues []issue.Issue

	i := 0
	for i < len(text) {
		if text[i] != '{' {
			out.WriteByte(text[i])
			i++
			continue
		}
		end := strings.IndexByte(text[i:], '}')
		if end == -1 {
			out.WriteByte(text[i])
			i++
			continue
		}
		name := text[i+1 : i+end]
		i += end + 1

		if !known[name] {
			issues = append(issues, issue.New(issue.KindUnknownColumnRef, "reference to unknown column %q", name))
			continue
		}
		refFrag := raw[name]
		if refFrag != nil && strings.ContainsRune(*refFrag, '{') {
			issues = append(issues, issue.New(issue.KindCircularColumnRef, "column %q references a column that itself has a column reference", name))
			continue
		}
		if refFrag != nil {
			out.WriteString(*refFrag)
		}
	}
	return out.String(), issues
}
