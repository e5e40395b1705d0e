package schema

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hed-standard/hed-python-sub005/issue"
)

// foldCase is the single case-folding policy used everywhere a schema
// node name is compared: Unicode-aware, not a naive strings.ToLower,
// since HED vocabularies carry non-ASCII unit and value names (e.g.
// "Â°" in derivative units). Generalizes EntityDB's colon-separated
// ParseTag/IsNamespace matching (tag_namespace.go), which compared
// ASCII-only namespace prefixes, to slash-separated, Unicode-safe node
// matching.
var foldCase = cases.Fold()

func fold(s string) string {
	return foldCase.String(s)
}

// entry is the concrete Entry used by StaticSchema. Exported only
// through the Entry interface; callers never construct one directly.
type entry struct {
	shortName  string
	longName   string
	ancestors  []string // lowercased, closest first
	attributes map[string]string
	unitClass  string
	valueClass string
}

func (e *entry) ShortName() string            { return e.shortName }
func (e *entry) LongName() string             { return e.longName }
func (e *entry) Ancestors() []string          { return e.ancestors }
func (e *entry) Attributes() map[string]string { return e.attributes }
func (e *entry) UnitClass() string            { return e.unitClass }
func (e *entry) ValueClass() string           { return e.valueClass }

type unitClassEntry struct {
	name  string
	units map[string]UnitAttributes
}

func (u *unitClassEntry) Name() string                       { return u.name }
func (u *unitClassEntry) DerivativeUnits() map[string]UnitAttributes { return u.units }

type valueClassEntry struct {
	name       string
	attributes map[string]string
}

func (v *valueClassEntry) Name() string                 { return v.name }
func (v *valueClassEntry) Attributes() map[string]string { return v.attributes }

// StaticSchema is a small, fully in-memory Source. It is the schema
// implementation this module ships: a real MediaWiki/XML vocabulary
// loader is out of scope, but anything that has already loaded a
// schema through some other means (or a test that wants a handful of
// nodes) can build a StaticSchema and hand it to the rest of the core.
//
// StaticSchema is built once via NewStaticSchema/AddNode and is safe
// for concurrent reads afterward; it has no exported mutation method
// once construction is done.
type StaticSchema struct {
	// namespaces maps a namespace prefix (including trailing ":", ""
	// for the default) to that schema's nodes, keyed by folded long
	// name.
	namespaces map[string]map[string]*entry

	// shortIndex maps namespace -> folded short name -> entries
	// sharing that short name (schemas allow short-name reuse at
	// different paths; GetTagEntry and FindTagEntry disambiguate by
	// preferring an exact long-name match first).
	shortIndex map[string]map[string][]*entry

	unitClasses  map[string]UnitClassEntry
	valueClasses map[string]ValueClassEntry
}

// NewStaticSchema returns an empty schema ready for AddNode calls.
func NewStaticSchema() *StaticSchema {
	return &StaticSchema{
		namespaces:   map[string]map[string]*entry{"": {}},
		shortIndex:   map[string]map[string][]*entry{"": {}},
		unitClasses:  map[string]UnitClassEntry{},
		valueClasses: map[string]ValueClassEntry{},
	}
}

// AddNode inserts one vocabulary node into namespace (use "" for the
// default schema; otherwise a prefix ending in ":"). longName is the
// full slash-separated path from the schema root, e.g.
// "Property/Sensory-property/Sensory-attribute/Visual-attribute/Color/CSS-color/Azure".
// attributes carries the node's declared attribute set; boolean
// attributes should map to "".
func (s *StaticSchema) AddNode(namespace, longName string, attributes map[string]string, unitClass, valueClass string) {
	if s.namespaces[namespace] == nil {
		s.namespaces[namespace] = map[string]*entry{}
		s.shortIndex[namespace] = map[string][]*entry{}
	}

	parts := strings.Split(longName, "/")
	shortName := parts[len(parts)-1]
	ancestors := make([]string, 0, len(parts)-1)
	for i := len(parts) - 2; i >= 0; i-- {
		ancestors = append(ancestors, fold(parts[i]))
	}

	e := &entry{
		shortName:  shortName,
		longName:   longName,
		ancestors:  ancestors,
		attributes: attributes,
		unitClass:  unitClass,
		valueClass: valueClass,
	}

	foldedLong := fold(longName)
	s.namespaces[namespace][foldedLong] = e

	foldedShort := fold(shortName)
	s.shortIndex[namespace][foldedShort] = append(s.shortIndex[namespace][foldedShort], e)
}

// AddUnitClass registers a unit class available to any node whose
// UnitClass() names it.
func (s *StaticSchema) AddUnitClass(name string, units map[string]UnitAttributes) {
	s.unitClasses[name] = &unitClassEntry{name: name, units: units}
}

// AddValueClass registers a value class available to any node whose
// ValueClass() names it.
func (s *StaticSchema) AddValueClass(name string, attributes map[string]string) {
	s.valueClasses[name] = &valueClassEntry{name: name, attributes: attributes}
}

func (s *StaticSchema) GetTagEntry(name, namespace string) (Entry, bool) {
	nodes, ok := s.namespaces[namespace]
	if !ok {
		return nil, false
	}
	folded := fold(name)
	if e, ok := nodes[folded]; ok {
		return e, true
	}
	if candidates := s.shortIndex[namespace][folded]; len(candidates) > 0 {
		return candidates[0], true
	}
	return nil, false
}

// FindTagEntry walks text as a slash path from the deepest segment
// upward, trying progressively shorter prefixes until one matches; this
// mirrors HED's "longest schema match, remainder becomes the extension"
// resolution rule (spec.md §4.1). A prefix matches a node whose long
// name equals it or, as with short-form tags such as "Azure/custom",
// ends with it.
func (s *StaticSchema) FindTagEntry(text, namespace string) (Entry, string, []issue.Issue) {
	nodes, ok := s.namespaces[namespace]
	if !ok {
		return nil, "", []issue.Issue{
			issue.New(issue.KindInvalidNamespace, "unknown schema namespace %q", namespace),
		}
	}

	segments := strings.Split(text, "/")
	for i := len(segments); i > 0; i-- {
		prefix := strings.Join(segments[:i], "/")
		if e, ok := nodes[fold(prefix)]; ok {
			remainder := strings.Join(segments[i:], "/")
			return e, remainder, nil
		}
		folded := fold(prefix)
		for _, e := range s.shortIndex[namespace][fold(segments[i-1])] {
			if strings.HasSuffix(fold(e.longName), "/"+folded) {
				return e, strings.Join(segments[i:], "/"), nil
			}
		}
	}

	return nil, "", []issue.Issue{
		issue.New(issue.KindUnresolvedTag, "no schema node matches any prefix of %q", text),
	}
}

func (s *StaticSchema) HasAttribute(e Entry, attr string) bool {
	_, ok := e.Attributes()[attr]
	return ok
}

// AnyParentHasAttribute checks every ancestor's own attribute set.
// StaticSchema nodes only record their own attributes, so this walks
// ancestor long names back up through the same namespace to find each
// ancestor's entry and test it directly.
func (s *StaticSchema) AnyParentHasAttribute(e Entry, attr string) bool {
	long := e.LongName()
	var own map[string]*entry
	for _, nodes := range s.namespaces {
		if n, ok := nodes[fold(long)]; ok && Entry(n) == e {
			own = nodes
			break
		}
	}
	segments := strings.Split(long, "/")
	for i := len(segments) - 1; i > 0; i-- {
		prefix := strings.Join(segments[:i], "/")
		if parent, ok := own[fold(prefix)]; ok {
			if _, ok := parent.Attributes()[attr]; ok {
				return true
			}
		}
	}
	return false
}

func (s *StaticSchema) AttributeValue(e Entry, attr string) (string, bool) {
	v, ok := e.Attributes()[attr]
	return v, ok
}

func (s *StaticSchema) UnitClasses(e Entry) map[string]UnitClassEntry {
	name := e.UnitClass()
	if name == "" {
		return nil
	}
	if uc, ok := s.unitClasses[name]; ok {
		return map[string]UnitClassEntry{name: uc}
	}
	return nil
}

func (s *StaticSchema) ValueClasses(e Entry) map[string]ValueClassEntry {
	name := e.ValueClass()
	if name == "" {
		return nil
	}
	if vc, ok := s.valueClasses[name]; ok {
		return map[string]ValueClassEntry{name: vc}
	}
	return nil
}

// Namespaces returns the registered namespace prefixes, sorted, for
// diagnostic and test use.
func (s *StaticSchema) Namespaces() []string {
	out := make([]string, 0, len(s.namespaces))
	for ns := range s.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

var _ Source = (*StaticSchema)(nil)
