package sidecar

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/logger"
)

var foldCase = cases.Fold()

func fold(s string) string { return foldCase.String(s) }

// Mapper binds a Sidecar (and any explicit overrides) to the known
// columns of one Tabular Input, and resolves the combination into a
// final per-column mapping — spec.md §4.7's five-step finalization
// algorithm.
type Mapper struct {
	knownColumns []string
	sidecar      *Sidecar

	tagColumns         []string
	optionalTagColumns []string
	columnPrefixes     map[string]string
	requestedColumns   map[string]bool // nil: no filter
	attributeColumns   []string

	finalOrder []string
	final      map[string]*ColumnMetadata
}

// NewMapper returns a Mapper over knownColumns, the header of one
// Tabular Input, in column order.
func NewMapper(knownColumns []string) *Mapper {
	return &Mapper{
		knownColumns:   append([]string(nil), knownColumns...),
		columnPrefixes: map[string]string{},
	}
}

// SetSidecar attaches (or replaces) the Sidecar this Mapper seeds its
// final map from.
func (m *Mapper) SetSidecar(s *Sidecar) { m.sidecar = s }

// Sidecar returns the attached Sidecar, or nil.
func (m *Mapper) Sidecar() *Sidecar { return m.sidecar }

// SetTagColumns overrides names as required HEDTags columns with no
// sidecar content. Missing any of them at Finalize time is a
// MissingColumn issue.
func (m *Mapper) SetTagColumns(names ...string) { m.tagColumns = append([]string(nil), names...) }

// SetOptionalTagColumns is like SetTagColumns, except a name absent
// from the known columns is silently skipped rather than reported.
func (m *Mapper) SetOptionalTagColumns(names ...string) {
	m.optionalTagColumns = append([]string(nil), names...)
}

// SetColumnPrefix records the per-column tag prefix applied to a
// HEDTags column's cells at expansion time.
func (m *Mapper) SetColumnPrefix(name, prefix string) { m.columnPrefixes[name] = prefix }

// SetRequestedColumns restricts the final map to exactly these column
// names; pass no arguments to clear the filter.
func (m *Mapper) SetRequestedColumns(names ...string) {
	if len(names) == 0 {
		m.requestedColumns = nil
		return
	}
	m.requestedColumns = make(map[string]bool, len(names))
	for _, n := range names {
		m.requestedColumns[n] = true
	}
}

// SetAttributeColumns forces names to Attribute category regardless of
// sidecar content, for reserved roles like "onset"/"duration".
func (m *Mapper) SetAttributeColumns(names ...string) {
	m.attributeColumns = append([]string(nil), names...)
}

// knownSet returns m.knownColumns as a lookup set.
func (m *Mapper) knownSet() map[string]bool {
	set := make(map[string]bool, len(m.knownColumns))
	for _, c := range m.knownColumns {
		set[c] = true
	}
	return set
}

// Finalize (re)computes the final column map from the Sidecar and
// overrides currently set on m. It is idempotent and safe to call again
// after any Set* call. Violations are returned as Issues; the final map
// is still usable (missing required columns are simply absent, unknown
// sidecar columns are simply dropped).
func (m *Mapper) Finalize() []issue.Issue {
	var issues []issue.Issue
	known := m.knownSet()

	final := map[string]*ColumnMetadata{}
	var order []string
	add := func(name string, meta *ColumnMetadata) {
		if _, exists := final[name]; !exists {
			order = append(order, name)
		}
		final[name] = meta
	}

	// Step 1: seed from the sidecar plus reserved-role defaults for
	// known columns the sidecar says nothing about.
	seeded := map[string]bool{}
	if m.sidecar != nil {
		for _, name := range m.sidecar.Columns() {
			if !known[name] {
				issues = append(issues, issue.New(issue.KindUnknownColumn, "sidecar column %q is not present in the tabular input", name))
				continue
			}
			meta, _ := m.sidecar.Column(name)
			add(name, meta)
			seeded[name] = true
		}
	}
	for _, name := range m.knownColumns {
		if seeded[name] {
			continue
		}
		switch {
		case fold(name) == "hed":
			add(name, &ColumnMetadata{Name: name, Category: HEDTags})
		case fold(name) == "onset" || fold(name) == "duration":
			add(name, &ColumnMetadata{Name: name, Category: Attribute})
		default:
			add(name, &ColumnMetadata{Name: name, Category: Ignore})
		}
	}

	// Step 2: explicit tag column overrides.
	for _, name := range m.tagColumns {
		if !known[name] {
			issues = append(issues, issue.New(issue.KindMissingColumn, "required tag column %q is missing", name))
			continue
		}
		add(name, &ColumnMetadata{Name: name, Category: HEDTags, Prefix: m.columnPrefixes[name]})
	}
	for _, name := range m.optionalTagColumns {
		if !known[name] {
			continue
		}
		add(name, &ColumnMetadata{Name: name, Category: HEDTags, Prefix: m.columnPrefixes[name]})
	}

	// Step 3: column-prefix map, for any HEDTags column (sidecar-seeded
	// or overridden) not already carrying one.
	for name, prefix := range m.columnPrefixes {
		if meta, ok := final[name]; ok && meta.Category == HEDTags && meta.Prefix == "" {
			meta.Prefix = prefix
		}
	}

	// Step 3b: reserved-role Attribute overrides win regardless of
	// sidecar content.
	for _, name := range m.attributeColumns {
		if meta, ok := final[name]; ok {
			meta.Category = Attribute
		} else if known[name] {
			add(name, &ColumnMetadata{Name: name, Category: Attribute})
		}
	}

	// Step 4: requested-columns filter.
	if m.requestedColumns != nil {
		var filtered []string
		for _, name := range order {
			if m.requestedColumns[name] {
				filtered = append(filtered, name)
			} else {
				delete(final, name)
			}
		}
		order = filtered
	}

	m.final = final
	m.finalOrder = order
	logger.Debug("mapper finalized %d column(s), %d issue(s)", len(order), len(issues))
	return issues
}

// Columns returns the final mapped column names, in finalization order.
func (m *Mapper) Columns() []string {
	out := make([]string, len(m.finalOrder))
	copy(out, m.finalOrder)
	return out
}

// Column looks up one column's final metadata. Finalize must have been
// called at least once.
func (m *Mapper) Column(name string) (*ColumnMetadata, bool) {
	c, ok := m.final[name]
	return c, ok
}

// ExpandResult is the outcome of expanding one cell.
type ExpandResult struct {
	// Fragment is the HED text the cell expands to, or nil for an empty
	// cell, an Ignore column, or an Attribute column (whose value is
	// carried in AttributeName/AttributeValue instead).
	Fragment *string
	// AttributeName is the column name, set only for Attribute columns.
	AttributeName string
	// AttributeValue is the raw cell text, set only for Attribute columns.
	AttributeValue string
}

// isEmptyCell reports whether cellText counts as "no value" per
// spec.md §4.7: blank, "n/a", or "nan", case-insensitive.
func isEmptyCell(cellText string) bool {
	t := strings.TrimSpace(cellText)
	if t == "" {
		return true
	}
	switch fold(t) {
	case "n/a", "nan":
		return true
	}
	return false
}

// ExpandColumn expands one cell of column col according to its final
// mapping. It never silently drops a cell (spec.md §8 property 6): a
// non-Ignore column either returns a usable ExpandResult or a non-nil
// Issue.
func (m *Mapper) ExpandColumn(col, cellText string) (ExpandResult, *issue.Issue) {
	meta, ok := m.final[col]
	if !ok {
		i := issue.New(issue.KindUnknownColumn, "column %q is not in the final map", col)
		return ExpandResult{}, &i
	}

	switch meta.Category {
	case Ignore:
		return ExpandResult{}, nil

	case Attribute:
		if isEmptyCell(cellText) {
			return ExpandResult{AttributeName: meta.Name}, nil
		}
		return ExpandResult{AttributeName: meta.Name, AttributeValue: cellText}, nil

	case Categorical:
		if isEmptyCell(cellText) {
			return ExpandResult{}, nil
		}
		frag, ok := meta.ValueMap[cellText]
		if !ok {
			keys := meta.categoricalKeys()
			sort.Strings(keys)
			i := issue.New(issue.KindSidecarKeyMissing, "column %q has no mapping for %q (known: %s)", col, cellText, strings.Join(keys, ", "))
			return ExpandResult{}, &i
		}
		return ExpandResult{Fragment: &frag}, nil

	case Value:
		if isEmptyCell(cellText) {
			return ExpandResult{}, nil
		}
		frag := strings.Replace(meta.ValueFragment, "#", cellText, 1)
		return ExpandResult{Fragment: &frag}, nil

	case HEDTags:
		if isEmptyCell(cellText) {
			return ExpandResult{}, nil
		}
		frag := applyPrefix(cellText, meta.Prefix)
		return ExpandResult{Fragment: &frag}, nil
	}

	return ExpandResult{}, nil
}

// applyPrefix prepends prefix to every comma/paren-delimited tag in
// cellText that does not already carry it (case-insensitive prefix
// match), leaving group structure and any already-prefixed tag intact.
func applyPrefix(cellText, prefix string) string {
	if prefix == "" {
		return cellText
	}

	var out strings.Builder
	tagStart := -1
	flush := func(end int) {
		if tagStart == -1 {
			return
		}
		raw := cellText[tagStart:end]
		trimmed := strings.TrimSpace(raw)
		tagStart = -1
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(fold(trimmed), fold(prefix)) {
			out.WriteString(prefix)
		}
		out.WriteString(trimmed)
	}

	for i := 0; i < len(cellText); i++ {
		switch cellText[i] {
		case '(', ')', ',':
			flush(i)
			out.WriteByte(cellText[i])
			if cellText[i] == ',' {
				out.WriteByte(' ')
			}
		default:
			if tagStart == -1 {
				tagStart = i
			}
		}
	}
	flush(len(cellText))
	return out.String()
}
