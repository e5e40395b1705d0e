package hed

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/logger"
	"github.com/hed-standard/hed-python-sub005/schema"
)

var foldCase = cases.Fold()

func fold(s string) string { return foldCase.String(s) }

// Tag is a single resolved or unresolved HED tag: the source text a
// parser extracted, its span in the original string, and — if a schema
// was supplied at construction — the schema entry it resolved to plus
// whatever extension text followed the longest matching prefix.
type Tag struct {
	sourceText string
	span       issue.Span
	namespace  string

	schema          schema.Source
	schemaEntry     schema.Entry
	extension       string
	resolutionIssues []issue.Issue

	defs DefinitionLookup
}

// NewTag constructs a Tag from source text and its span. If src is
// non-nil, resolution runs immediately via src.FindTagEntry. Passing
// defs without src is a usage error: definitions are only meaningful
// once a tag is schema-resolved.
func NewTag(sourceText string, span issue.Span, src schema.Source, defs DefinitionLookup) (*Tag, error) {
	if defs != nil && src == nil {
		return nil, fmt.Errorf("%w: hed.NewTag given defs without a schema", issue.ErrInvalidUsage)
	}

	namespace, rest := splitNamespace(sourceText)
	t := &Tag{
		sourceText: sourceText,
		span:       span,
		namespace:  namespace,
		schema:     src,
		defs:       defs,
	}

	if src != nil {
		entry, remainder, issues := src.FindTagEntry(rest, namespace)
		t.schemaEntry = entry
		t.extension = remainder
		t.resolutionIssues = issues
		if entry != nil {
			logger.Debug("resolved tag %q to %s (extension %q)", sourceText, entry.LongName(), remainder)
		} else {
			logger.Debug("tag %q did not resolve against schema", sourceText)
		}
	}

	return t, nil
}

// splitNamespace extracts a leading "ns:" namespace prefix from a tag's
// source text, if the text carries one before its first "/". Schemas
// without a namespace prefix resolve against the default ("") schema.
func splitNamespace(sourceText string) (namespace, rest string) {
	slash := strings.IndexByte(sourceText, '/')
	colon := strings.IndexByte(sourceText, ':')
	if colon == -1 || (slash != -1 && colon > slash) {
		return "", sourceText
	}
	return sourceText[:colon+1], sourceText[colon+1:]
}

// Span returns the tag's location in the HED string it was parsed from.
func (t *Tag) Span() issue.Span { return t.span }

// Namespace returns the tag's namespace prefix (ending in ":"), or ""
// for the default schema.
func (t *Tag) Namespace() string { return t.namespace }

// ResolutionIssues returns the issues, if any, produced by schema
// resolution at construction time (e.g. UnresolvedTag).
func (t *Tag) ResolutionIssues() []issue.Issue { return t.resolutionIssues }

// IsResolved reports whether the tag matched a schema entry.
func (t *Tag) IsResolved() bool { return t.schemaEntry != nil }

// OrgTag returns the tag's original source substring, unresolved.
func (t *Tag) OrgTag() string { return t.sourceText }

// Extension returns the unmatched remainder after the longest schema
// prefix match, in its original case. Empty if the tag resolved exactly
// or did not resolve at all.
func (t *Tag) Extension() string { return t.extension }

// ShortBaseTag returns the resolved entry's own short name, or "" if
// the tag is unresolved.
func (t *Tag) ShortBaseTag() string {
	if t.schemaEntry == nil {
		return ""
	}
	return t.schemaEntry.ShortName()
}

// matchKey returns the string Group's Find* methods compare against a
// caller-supplied tag name: the resolved short base tag when the tag
// resolved, falling back to the original source text otherwise, so
// that searches over parser output built without a schema still work.
func (t *Tag) matchKey() string {
	if t.schemaEntry != nil {
		return t.ShortBaseTag()
	}
	return t.sourceText
}

// ShortTag returns the short name plus extension (e.g. "Azure/custom"),
// or the original source text if unresolved.
func (t *Tag) ShortTag() string {
	if t.schemaEntry == nil {
		return t.sourceText
	}
	if t.extension == "" {
		return t.schemaEntry.ShortName()
	}
	return t.schemaEntry.ShortName() + "/" + t.extension
}

// BaseTag returns the resolved entry's full long name, without
// extension, or "" if unresolved.
func (t *Tag) BaseTag() string {
	if t.schemaEntry == nil {
		return ""
	}
	return t.schemaEntry.LongName()
}

// LongTag returns the long name plus extension, or the original source
// text if unresolved.
func (t *Tag) LongTag() string {
	if t.schemaEntry == nil {
		return t.sourceText
	}
	if t.extension == "" {
		return t.schemaEntry.LongName()
	}
	return t.schemaEntry.LongName() + "/" + t.extension
}

// TagTerms returns the tag's own short name folded to lowercase,
// followed by its ancestor short names (already lowercased by the
// schema), deepest-first. Unresolved tags return nil.
func (t *Tag) TagTerms() []string {
	if t.schemaEntry == nil {
		return nil
	}
	terms := make([]string, 0, 1+len(t.schemaEntry.Ancestors()))
	terms = append(terms, fold(t.schemaEntry.ShortName()))
	terms = append(terms, t.schemaEntry.Ancestors()...)
	return terms
}

// IsPlaceholder reports whether the tag carries a "#" in its source
// text or extension, marking it as a Definition/Def-expand value slot.
func (t *Tag) IsPlaceholder() bool {
	return strings.Contains(t.sourceText, "#") || strings.Contains(t.extension, "#")
}

// IsTakesValueTag reports whether the resolved entry carries the
// takesValue attribute.
func (t *Tag) IsTakesValueTag() bool {
	return t.HasAttribute("takesValue")
}

// HasAttribute reports whether the tag's resolved schema entry carries
// attr; unresolved tags never carry any attribute.
func (t *Tag) HasAttribute(attr string) bool {
	return t.schemaEntry != nil && t.schema != nil && t.schema.HasAttribute(t.schemaEntry, attr)
}

// IsUnitClassTag reports whether the resolved entry declares a unit class.
func (t *Tag) IsUnitClassTag() bool {
	return t.schemaEntry != nil && t.schemaEntry.UnitClass() != ""
}

// IsValueClassTag reports whether the resolved entry declares a value class.
func (t *Tag) IsValueClassTag() bool {
	return t.schemaEntry != nil && t.schemaEntry.ValueClass() != ""
}

// IsExtensionAllowedTag reports whether the tag may legally carry an
// extension: false for takes-value tags (their extension is a value,
// not a free-form extension), otherwise true if the entry or any of
// its ancestors carries extensionAllowed.
func (t *Tag) IsExtensionAllowedTag() bool {
	if t.IsTakesValueTag() {
		return false
	}
	if t.schemaEntry == nil || t.schema == nil {
		return false
	}
	if t.schema.HasAttribute(t.schemaEntry, "extensionAllowed") {
		return true
	}
	return t.schema.AnyParentHasAttribute(t.schemaEntry, "extensionAllowed")
}

// GetStrippedUnitValue parses the tag's extension as "<value> <unit>"
// against every derivative unit of the tag's unit classes. If no unit
// matches, it returns the whole extension as value and a nil unit.
// Symbol units (e.g. "$", "s") match case-sensitively and adjoin the
// value with no required separator; non-symbol units (e.g. "second")
// match case-insensitively. Prefix units precede the value instead of
// following it. Longer unit names are tried first, so "5 seconds"
// strips "seconds" rather than the symbol "s".
func (t *Tag) GetStrippedUnitValue() (value string, unit *string) {
	ext := strings.TrimSpace(t.extension)
	if !t.IsUnitClassTag() || t.schema == nil {
		return ext, nil
	}

	for _, uc := range t.schema.UnitClasses(t.schemaEntry) {
		units := uc.DerivativeUnits()
		names := make([]string, 0, len(units))
		for n := range units {
			names = append(names, n)
		}
		sort.Slice(names, func(i, j int) bool {
			if len(names[i]) != len(names[j]) {
				return len(names[i]) > len(names[j])
			}
			return names[i] < names[j]
		})
		for _, unitName := range names {
			if v, ok := tryStripUnit(ext, unitName, units[unitName]); ok {
				name := unitName
				return v, &name
			}
		}
	}
	return ext, nil
}

func tryStripUnit(ext, unitName string, attrs schema.UnitAttributes) (string, bool) {
	if attrs.Prefix {
		if attrs.Symbol {
			if strings.HasPrefix(ext, unitName) {
				return strings.TrimSpace(ext[len(unitName):]), true
			}
			return "", false
		}
		if len(ext) >= len(unitName) && fold(ext[:len(unitName)]) == fold(unitName) {
			return strings.TrimSpace(ext[len(unitName):]), true
		}
		return "", false
	}

	if attrs.Symbol {
		if strings.HasSuffix(ext, unitName) {
			return strings.TrimSpace(ext[:len(ext)-len(unitName)]), true
		}
		return "", false
	}
	if len(ext) >= len(unitName) && fold(ext[len(ext)-len(unitName):]) == fold(unitName) {
		return strings.TrimSpace(ext[:len(ext)-len(unitName)]), true
	}
	return "", false
}

// ReplacePlaceholder substitutes the first "#" in the tag's source text
// and extension with value. It fails with InvalidUsage if the tag is
// not a placeholder.
func (t *Tag) ReplacePlaceholder(value string) error {
	if !t.IsPlaceholder() {
		return fmt.Errorf("%w: %q is not a placeholder tag", issue.ErrInvalidUsage, t.sourceText)
	}
	t.sourceText = strings.Replace(t.sourceText, "#", value, 1)
	t.extension = strings.Replace(t.extension, "#", value, 1)
	return nil
}

// SetShortTag re-resolves the tag against newShort in its existing
// schema and namespace, preserving its current extension (the
// definition name, with its own takesValue suffix where applicable).
// It exists exclusively to flip a tag between "Def" and "Def-expand"
// form, where the extension carries the definition name across the flip.
func (t *Tag) SetShortTag(newShort string) error {
	if t.schema == nil {
		return fmt.Errorf("%w: SetShortTag requires a schema", issue.ErrInvalidUsage)
	}
	entry, ok := t.schema.GetTagEntry(newShort, t.namespace)
	if !ok {
		return issue.New(issue.KindUnresolvedTag, "schema has no entry %q in namespace %q", newShort, t.namespace)
	}

	t.schemaEntry = entry
	t.sourceText = t.ShortTag()
	return nil
}

// Equal reports whether two tags denote the same schema node, namespace,
// and extension (case-folded), or — for unresolved tags — identical
// source text.
func (t *Tag) Equal(other *Tag) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.schemaEntry != nil && other.schemaEntry != nil {
		return t.namespace == other.namespace &&
			fold(t.ShortBaseTag()) == fold(other.ShortBaseTag()) &&
			fold(t.extension) == fold(other.extension)
	}
	return t.sourceText == other.sourceText
}

// HashKey returns a string consistent with Equal, suitable as a map key.
func (t *Tag) HashKey() string {
	if t.schemaEntry != nil {
		return t.namespace + "|" + fold(t.ShortBaseTag()) + "|" + fold(t.extension)
	}
	return "src:" + t.sourceText
}

// SetExtension overwrites the tag's extension directly, bypassing the
// placeholder check ReplacePlaceholder enforces. It exists for internal
// template-building passes — ambiguous-definition gathering builds a
// placeholder body by setting one position's extension to "#" across a
// cloned tag that was never itself a placeholder — and is not meant for
// ordinary tag editing.
func (t *Tag) SetExtension(ext string) { t.extension = ext }

func (t *Tag) clone() *Tag {
	cp := *t
	return &cp
}
