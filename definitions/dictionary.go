// Package definitions implements the Definition Dictionary (C5) and
// Definition Expander (C6): finding, validating, storing, expanding,
// and shrinking HED `Definition`/`Def`/`Def-expand` constructs.
//
// Grounded on the small named-registry-with-duplicate-diagnostics
// shape of EntityDB's dataset/dataspace registries, generalized from
// "register a named dataset, reject a duplicate name" to "register a
// named definition, reject a duplicate name but keep the first."
package definitions

import (
	"crypto/sha256"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
)

var foldCase = cases.Fold()

func fold(s string) string { return foldCase.String(s) }

// DefinitionEntry is one validated definition: its canonical name (in
// original case), whether it takes a placeholder value (arity 0 or 1),
// its canonicalized body, and the context it was declared in.
type DefinitionEntry struct {
	Name             string
	PlaceholderArity int
	Body             *hed.Group
	SourceContext    *issue.Context

	// Digest is a sha256 sum of Body's canonical rendering, computed once
	// at registration time so later value-equality checks (duplicate
	// Def-expand usage, ExpandDefTags body validation) compare 32 bytes
	// instead of re-rendering and comparing two whole body strings.
	Digest [32]byte
}

// Dictionary is a case-folded, insertion-ordered collection of
// DefinitionEntry values. It satisfies hed.DefinitionLookup so a
// Dictionary can be passed straight into hed.NewTag's defs parameter.
type Dictionary struct {
	bySlug map[string]*DefinitionEntry
	order  []string
}

// NewDictionary returns an empty Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{bySlug: map[string]*DefinitionEntry{}}
}

// baseDefName strips a "/value" suffix from a Def/Def-expand tag's
// extension, leaving just the definition name portion.
func baseDefName(nameOrExtension string) string {
	if idx := strings.IndexByte(nameOrExtension, '/'); idx != -1 {
		return nameOrExtension[:idx]
	}
	return nameOrExtension
}

// HasDefinition reports whether name (a bare name or a "name/value"
// extension) is registered. Satisfies hed.DefinitionLookup.
func (d *Dictionary) HasDefinition(name string) bool {
	_, ok := d.bySlug[fold(baseDefName(name))]
	return ok
}

// Get looks up a definition by bare name or "name/value" extension.
func (d *Dictionary) Get(name string) (*DefinitionEntry, bool) {
	e, ok := d.bySlug[fold(baseDefName(name))]
	return e, ok
}

// Names returns the registered definition names in insertion order.
func (d *Dictionary) Names() []string {
	out := make([]string, len(d.order))
	for i, slug := range d.order {
		out[i] = d.bySlug[slug].Name
	}
	return out
}

// add registers entry, keeping the first definition on a case-folded
// name collision. Returns false if name was already registered.
func (d *Dictionary) add(entry *DefinitionEntry) bool {
	key := fold(entry.Name)
	if _, exists := d.bySlug[key]; exists {
		return false
	}
	d.bySlug[key] = entry
	d.order = append(d.order, key)
	return true
}

// AddEntry registers an already-validated DefinitionEntry (e.g. one
// harvested by another Dictionary or Gatherer) into d, keeping the
// first definition on a case-folded name collision. It exists for
// callers outside this package that merge definitions gathered
// elsewhere — the sidecar package's multi-column and multi-file merges
// — without re-running the check-for-definitions protocol.
func (d *Dictionary) AddEntry(entry *DefinitionEntry) bool {
	return d.add(entry)
}

// CheckForDefinitions runs the check-for-definitions protocol over str:
// every top-level group anchored by a "Definition" tag is validated and,
// on success, its body is canonicalized and stored. Violations are
// reported as Issues and that definition is skipped; a duplicate name
// is reported but the first registered definition is kept. ctx, if
// non-nil, is attached to every reported Issue.
func CheckForDefinitions(str *hed.HEDString, ctx *issue.Context) (*Dictionary, []issue.Issue) {
	dict := NewDictionary()
	var issues []issue.Issue

	report := func(i issue.Issue) {
		if ctx != nil {
			i = i.WithContext(ctx)
		}
		issues = append(issues, i)
	}

	for _, found := range str.FindTopLevelTags([]string{"Definition"}, hed.IncludeGroupsBoth) {
		defTag, group := found.Tag, found.Group
		checkOneDefinition(dict, defTag, group, ctx, report)
	}

	return dict, issues
}

func checkOneDefinition(dict *Dictionary, defTag *hed.Tag, group *hed.Group, ctx *issue.Context, report func(issue.Issue)) {
	groups := group.Groups()
	tags := group.Tags()

	if len(groups) == 0 {
		report(issue.New(issue.KindDefinitionMissingBody, "Definition %q has no body group", defTag.Extension()))
		return
	}
	if len(groups) > 1 {
		report(issue.New(issue.KindDefinitionTooManyGroups, "Definition %q has %d body groups, want 1", defTag.Extension(), len(groups)))
		return
	}
	if len(tags) != 1 {
		report(issue.New(issue.KindDefinitionExtraTag, "Definition %q group has extra top-level tags", defTag.Extension()))
		return
	}

	raw := defTag.Extension()
	hasPlaceholder := strings.HasSuffix(raw, "/#")
	name := raw
	if hasPlaceholder {
		name = strings.TrimSuffix(raw, "/#")
	}
	if strings.ContainsAny(name, "/#") {
		report(issue.New(issue.KindInvalidDefinitionName, "definition name %q may not contain '/' or '#'", name))
		return
	}

	body := groups[0]

	if hasPlaceholder {
		var placeholders []*hed.Tag
		for _, t := range body.AllTags() {
			if t.IsPlaceholder() {
				placeholders = append(placeholders, t)
			}
		}
		if len(placeholders) != 1 {
			report(issue.New(issue.KindPlaceholderCount, "definition %q body has %d placeholder tags, want 1", name, len(placeholders)))
			return
		}
		if !placeholders[0].IsTakesValueTag() {
			report(issue.New(issue.KindPlaceholderNotTakesValue, "definition %q placeholder tag %q does not take a value", name, placeholders[0].ShortTag()))
			return
		}
	}

	for _, t := range body.AllTags() {
		switch fold(t.ShortBaseTag()) {
		case "definition", "def", "def-expand":
			report(issue.New(issue.KindNestedDefinition, "definition %q body may not contain %s", name, t.ShortBaseTag()))
			return
		}
	}

	for _, t := range body.AllTags() {
		if t.HasAttribute("unique") || t.HasAttribute("required") {
			report(issue.New(issue.KindDefinitionBadAttribute, "definition %q body tag %q may not carry unique/required", name, t.ShortTag()))
			return
		}
	}

	arity := 0
	if hasPlaceholder {
		arity = 1
	}
	canonBody := canonicalize(body)
	entry := &DefinitionEntry{
		Name:             name,
		PlaceholderArity: arity,
		Body:             canonBody,
		SourceContext:    ctx,
		Digest:           digestOf(canonBody),
	}
	if !dict.add(entry) {
		report(issue.New(issue.KindDuplicateDefinition, "duplicate definition %q; keeping the first", name))
	}
}

// canonicalize returns a deep copy of g with every group's children
// sorted into a deterministic order by rendered form, so two
// definitions with the same tags in different source order compare
// equal.
func canonicalize(g *hed.Group) *hed.Group {
	clone := g.DeepCopy()
	sortChildrenRecursive(clone)
	return clone
}

func sortChildrenRecursive(g *hed.Group) {
	children := g.Children()
	for _, c := range children {
		if sub, ok := c.(*hed.Group); ok {
			sortChildrenRecursive(sub)
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		return renderKey(children[i]) < renderKey(children[j])
	})
	g.Reorder(children)
}

func renderKey(item hed.Item) string {
	switch v := item.(type) {
	case *hed.Tag:
		if v.IsResolved() {
			return v.ShortTag()
		}
		return v.OrgTag()
	case *hed.Group:
		parts := make([]string, 0, len(v.Children()))
		for _, c := range v.Children() {
			parts = append(parts, renderKey(c))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return ""
}

// canonicalRenderOf renders g after canonicalizing it, for
// content-equality comparisons between two bodies built in different
// source orders.
func canonicalRenderOf(g *hed.Group) string {
	if g == nil {
		return ""
	}
	return renderKey(canonicalize(g))
}

// digestOf sha256-sums g's canonical rendering. Two bodies built in
// different source order, or carried by different *hed.Group instances
// entirely, digest equal iff they are equal by spec.md §3's "equality is
// by name and body value" rule — the fixed-size comparison this enables
// is what lets DefinitionEntry.Digest stand in for a full string compare
// in the hot paths (ExpandDefTags body validation, cross-usage
// corroboration in gather.go).
func digestOf(g *hed.Group) [32]byte {
	return sha256.Sum256([]byte(canonicalRenderOf(g)))
}
