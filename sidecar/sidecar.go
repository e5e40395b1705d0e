// Package sidecar implements the Column Mapper & Sidecar (C7): loading
// a JSON sidecar into per-column metadata, harvesting the Definition
// Dictionary embedded in its HED fragments, and mapping tabular cells
// to HED fragments or side attributes at assembly time.
//
// Grounded on config/config.go's doc-per-field style (applied here to
// doc-per-field JSON sidecar key documentation) and
// models/entity_query.go's Filter/operator idiom for the
// categorical-value lookup miss diagnostic (DESIGN.md).
package sidecar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/hed-standard/hed-python-sub005/definitions"
	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/logger"
	"github.com/hed-standard/hed-python-sub005/parser"
	"github.com/hed-standard/hed-python-sub005/schema"
)

// Category is one column's mapping kind.
type Category int

const (
	// Ignore drops the column entirely.
	Ignore Category = iota
	// Categorical maps each distinct cell value to its own HED fragment.
	Categorical
	// Value substitutes the cell text into a single "#" placeholder in
	// one HED fragment.
	Value
	// HEDTags treats the cell itself as a HED fragment, optionally
	// prefixed.
	HEDTags
	// Attribute carries the cell value through as a named side value,
	// never folded into HED (e.g. onset, duration).
	Attribute
)

func (c Category) String() string {
	switch c {
	case Categorical:
		return "Categorical"
	case Value:
		return "Value"
	case HEDTags:
		return "HEDTags"
	case Attribute:
		return "Attribute"
	default:
		return "Ignore"
	}
}

// ColumnMetadata is one column's mapping, as described by a sidecar
// entry or an explicit Mapper override.
type ColumnMetadata struct {
	Name     string
	Category Category

	// ValueMap holds the Categorical mapping, cell text to HED fragment.
	ValueMap map[string]string
	// ValueFragment holds the Value category's single "#"-bearing
	// fragment.
	ValueFragment string
	// Prefix is prepended to every tag in a HEDTags cell that does not
	// already carry it.
	Prefix string

	// Extra preserves sidecar keys this module does not interpret
	// (Description, Levels, ...) verbatim for round-tripping.
	Extra map[string]json.RawMessage
}

// categoricalKeys returns the column's known categorical values, for
// SidecarKeyMissing diagnostics. ValueMap is a map, so the keys come
// back in no particular order.
func (c *ColumnMetadata) categoricalKeys() []string {
	keys := make([]string, 0, len(c.ValueMap))
	for k := range c.ValueMap {
		keys = append(keys, k)
	}
	return keys
}

// Sidecar is an ordered column_name -> ColumnMetadata mapping plus the
// Definition Dictionary harvested from within its HED strings.
type Sidecar struct {
	order   []string
	columns map[string]*ColumnMetadata
	Defs    *definitions.Dictionary
}

// NewSidecar returns an empty Sidecar.
func NewSidecar() *Sidecar {
	return &Sidecar{columns: map[string]*ColumnMetadata{}, Defs: definitions.NewDictionary()}
}

// Columns returns the column names in sidecar order.
func (s *Sidecar) Columns() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Column looks up one column's metadata by name.
func (s *Sidecar) Column(name string) (*ColumnMetadata, bool) {
	c, ok := s.columns[name]
	return c, ok
}

func (s *Sidecar) set(name string, meta *ColumnMetadata) {
	if _, exists := s.columns[name]; !exists {
		s.order = append(s.order, name)
	}
	s.columns[name] = meta
}

// Merge returns a new Sidecar combining s with later, column by column,
// with later's entries overriding s's on a name collision — "later keys
// overriding" per spec.md §4.7's multi-file merge rule. Column order is
// s's order followed by any column names later introduces.
func (s *Sidecar) Merge(later *Sidecar) *Sidecar {
	out := NewSidecar()
	for _, name := range s.order {
		out.set(name, s.columns[name])
	}
	for _, name := range later.order {
		out.set(name, later.columns[name])
	}
	for _, slug := range later.Defs.Names() {
		if entry, ok := later.Defs.Get(slug); ok {
			out.Defs.AddEntry(entry)
		}
	}
	for _, slug := range s.Defs.Names() {
		if entry, ok := s.Defs.Get(slug); ok {
			out.Defs.AddEntry(entry)
		}
	}
	logger.Debug("sidecars merged: %d column(s)", len(out.order))
	return out
}

// columnShape is the shape gate every decoded sidecar column entry
// passes through before this package's own finer-grained classification
// (string HED vs. object HED vs. neither) runs: a JSON object whose
// "HED" key, if present, is either a string (Value) or an object of
// string values (Categorical). Anything else is rejected up front
// rather than discovered piecemeal deeper in loadColumn.
var columnShape = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"HED": {
			OneOf: []*jsonschema.Schema{
				{Type: "string"},
				{Type: "object", AdditionalProperties: &jsonschema.Schema{Type: "string"}},
			},
		},
	},
}

var resolvedColumnShape = mustResolveColumnShape()

func mustResolveColumnShape() *jsonschema.Resolved {
	resolved, err := columnShape.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("sidecar: column shape schema failed to resolve: %v", err))
	}
	return resolved
}

// LoadSidecar decodes data as a single JSON sidecar object, classifying
// each column by the shape of its "HED" key (string => Value, object =>
// Categorical, absent => Attribute carried through verbatim), then
// harvesting any Definition declarations found inside the column HED
// fragments. src, if non-nil, resolves tags while gathering definitions;
// a nil src still gathers and validates the tree shape (name, body,
// placeholder count) but leaves tags unresolved.
func LoadSidecar(data []byte, src schema.Source, ctx *issue.Context) (*Sidecar, []issue.Issue) {
	sc := NewSidecar()
	var issues []issue.Issue

	report := func(i issue.Issue) {
		if ctx != nil {
			i = i.WithContext(ctx)
		}
		issues = append(issues, i)
	}

	entries, err := decodeOrderedObject(data)
	if err != nil {
		report(issue.New(issue.KindWrongHEDDataType, "sidecar is not a JSON object: %v", err))
		return sc, issues
	}

	for _, kv := range entries {
		colCtx := ctx.Column(kv.key)
		meta, fragments, colIssues := loadColumn(kv.key, kv.value)
		for _, is := range colIssues {
			issues = append(issues, is.WithContext(colCtx))
		}
		sc.set(kv.key, meta)

		for _, frag := range fragments {
			str, parseIssues, perr := parser.Parse(frag, src, nil)
			if perr != nil {
				continue
			}
			for _, is := range parseIssues {
				issues = append(issues, is.WithContext(colCtx))
			}
			defs, defIssues := definitions.CheckForDefinitions(str, colCtx)
			for _, is := range defIssues {
				issues = append(issues, is)
			}
			for _, slug := range defs.Names() {
				if entry, ok := defs.Get(slug); ok {
					if !sc.Defs.AddEntry(entry) {
						// CheckForDefinitions already reports
						// duplicates within one fragment; a name
						// repeated across columns is a cross-column
						// duplicate, reported here instead.
						issues = append(issues, issue.New(issue.KindDuplicateDefinition,
							"duplicate definition %q across sidecar columns; keeping the first", entry.Name).WithContext(colCtx))
					}
				}
			}
		}
	}

	logger.Info("sidecar loaded: %d column(s), %d issue(s)", len(sc.Columns()), len(issues))
	return sc, issues
}

// loadColumn classifies one column's decoded JSON value and returns its
// metadata plus the raw HED fragment text(s) it carries, for definition
// gathering and pound-sign accounting.
func loadColumn(name string, raw json.RawMessage) (*ColumnMetadata, []string, []issue.Issue) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return &ColumnMetadata{Name: name, Category: Attribute}, nil, []issue.Issue{
			issue.New(issue.KindWrongHEDDataType, "column %q is not a JSON object", name),
		}
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return &ColumnMetadata{Name: name, Category: Attribute}, nil, []issue.Issue{
			issue.New(issue.KindWrongHEDDataType, "column %q could not be decoded: %v", name, err),
		}
	}
	if err := resolvedColumnShape.Validate(instance); err != nil {
		return &ColumnMetadata{Name: name, Category: Attribute}, nil, []issue.Issue{
			issue.New(issue.KindWrongHEDDataType, "column %q does not match the expected shape: %v", name, err),
		}
	}

	hedRaw, hasHED := obj["HED"]
	meta := &ColumnMetadata{Name: name, Extra: map[string]json.RawMessage{}}
	for k, v := range obj {
		if k != "HED" {
			meta.Extra[k] = v
		}
	}

	if !hasHED {
		meta.Category = Attribute
		return meta, nil, nil
	}

	trimmed := bytes.TrimSpace(hedRaw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var fragment string
		if err := json.Unmarshal(hedRaw, &fragment); err != nil {
			return meta, nil, []issue.Issue{issue.New(issue.KindWrongHEDDataType, "column %q HED value is not a string", name)}
		}
		meta.Category = Value
		meta.ValueFragment = fragment

		if n := countPlaceholders(fragment); n != 1 {
			return meta, []string{fragment}, []issue.Issue{
				issue.New(issue.KindWrongPoundSigns, "column %q Value fragment has %d placeholders, want 1", name, n),
			}
		}
		return meta, []string{fragment}, nil
	}

	if len(trimmed) > 0 && trimmed[0] == '{' {
		entries, err := decodeOrderedObject(hedRaw)
		if err != nil {
			return meta, nil, []issue.Issue{issue.New(issue.KindWrongHEDDataType, "column %q HED map is not a JSON object", name)}
		}
		if len(entries) == 0 {
			return meta, nil, []issue.Issue{issue.New(issue.KindWrongHEDDataType, "column %q Categorical HED map is empty", name)}
		}

		meta.Category = Categorical
		meta.ValueMap = make(map[string]string, len(entries))
		var fragments []string
		var issues []issue.Issue
		for _, kv := range entries {
			var fragment string
			if err := json.Unmarshal(kv.value, &fragment); err != nil {
				issues = append(issues, issue.New(issue.KindWrongHEDDataType, "column %q key %q is not a string", name, kv.key))
				continue
			}
			meta.ValueMap[kv.key] = fragment
			fragments = append(fragments, fragment)
			if n := countPlaceholders(fragment); n != 0 {
				issues = append(issues, issue.New(issue.KindWrongPoundSigns, "column %q key %q has %d placeholders, want 0", name, kv.key, n))
			}
		}
		return meta, fragments, issues
	}

	return meta, nil, []issue.Issue{issue.New(issue.KindWrongHEDDataType, "column %q HED value is neither a string nor an object", name)}
}

// countPlaceholders counts "#" occurrences in fragment outside of any
// top-level Definition-anchored group, per spec.md §4.7's pound-sign
// accounting rule ("definitions are removed first").
func countPlaceholders(fragment string) int {
	str, _, err := parser.Parse(fragment, nil, nil)
	if err != nil {
		return strings.Count(fragment, "#")
	}

	// The parse has no schema, so a Definition tag is recognized by the
	// text before its first '/'.
	excluded := map[*hed.Group]bool{}
	for _, g := range str.Groups() {
		for _, tag := range g.Tags() {
			head := tag.OrgTag()
			if idx := strings.IndexByte(head, '/'); idx != -1 {
				head = head[:idx]
			}
			if fold(head) == "definition" {
				excluded[g] = true
				break
			}
		}
	}

	var count func(g *hed.Group) int
	count = func(g *hed.Group) int {
		n := 0
		for _, c := range g.Children() {
			switch v := c.(type) {
			case *hed.Tag:
				if v.IsPlaceholder() {
					n++
				}
			case *hed.Group:
				if excluded[v] {
					continue
				}
				n += count(v)
			}
		}
		return n
	}
	return count(str.Group)
}

type orderedEntry struct {
	key   string
	value json.RawMessage
}

// decodeOrderedObject decodes a single JSON object, preserving key
// order — encoding/json's map decoding does not, and sidecar column
// order (and Categorical key order) must be insertion-order-stable per
// spec.md §3.
func decodeOrderedObject(data []byte) ([]orderedEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	var entries []orderedEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		entries = append(entries, orderedEntry{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}
	return entries, nil
}
