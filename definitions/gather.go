package definitions

import (
	"fmt"
	"strings"

	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/logger"
)

// AmbiguousDef accumulates the bodies of several "(Def-expand/name/value,
// body)" usages of the same definition name whose placeholder position
// is not yet known, and reconstructs a single placeholder-bearing body
// once the position that varies 1-to-1 with the value can be
// identified. Grounded directly on the Python implementation's
// AmbiguousDef class: each usage's body is cloned with every tag whose
// extension equals that usage's value rewritten to "#", and once every
// recorded usage agrees at every non-"#" position, the "#" position is
// the true placeholder.
type AmbiguousDef struct {
	actualDefs      []*hed.Group
	placeholderDefs []*hed.Group
}

// lastSegment returns the final "/"-delimited segment of s: for a
// Def-expand tag's extension "name/value", this is the value, never the
// name.
func lastSegment(s string) string {
	if idx := strings.LastIndexByte(s, '/'); idx != -1 {
		return s[idx+1:]
	}
	return s
}

// addDef records one more observed usage: defTag is the Def-expand tag
// itself (whose extension carries "name/value"), defExpandGroup is the
// enclosing "(Def-expand/name/value, body)" group.
func (a *AmbiguousDef) addDef(defTag *hed.Tag, defExpandGroup *hed.Group) {
	bodies := defExpandGroup.Groups()
	if len(bodies) == 0 {
		return
	}
	body := bodies[0]
	value := lastSegment(defTag.Extension())

	a.actualDefs = append(a.actualDefs, body)

	clone := body.DeepCopy()
	for _, t := range clone.AllTags() {
		if t.Extension() == value {
			t.SetExtension("#")
		}
	}
	a.placeholderDefs = append(a.placeholderDefs, clone)
}

// validate reports whether the usages recorded so far agree at every
// tag position except exactly one, which is the placeholder. It
// returns an error if two usages disagree at a non-placeholder
// position, meaning this is not a single ambiguous definition at all.
func (a *AmbiguousDef) validate() (bool, error) {
	placeholderGroup := a.group()
	if placeholderGroup == nil {
		return false, fmt.Errorf("definitions: invalid ambiguous definition: no consistent placeholder position")
	}

	placeholderTags := placeholderGroup.AllTags()
	placeholderMask := make([]bool, len(placeholderTags))
	for i, t := range placeholderTags {
		placeholderMask[i] = t.Extension() == "#"
	}

	allTagsList := make([][]*hed.Tag, len(a.actualDefs))
	for i, g := range a.actualDefs {
		allTagsList[i] = g.AllTags()
	}

	for pos, isPlaceholder := range placeholderMask {
		if isPlaceholder {
			continue
		}
		seen := map[string]bool{}
		for _, tags := range allTagsList {
			if pos < len(tags) {
				seen[tags[pos].Extension()] = true
			}
		}
		if len(seen) > 1 {
			return false, fmt.Errorf("definitions: invalid ambiguous definition: usages disagree outside the placeholder position")
		}
	}

	count := 0
	for _, p := range placeholderMask {
		if p {
			count++
		}
	}
	return count == 1, nil
}

// group reconstructs a single body with "#" at the position that varies
// 1-to-1 with each usage's value, or nil if no single consistent
// placeholder position exists.
func (a *AmbiguousDef) group() *hed.Group {
	if len(a.placeholderDefs) == 0 {
		return nil
	}

	newGroup := a.placeholderDefs[0].DeepCopy()
	newTags := newGroup.AllTags()

	allTagsList := make([][]*hed.Tag, len(a.placeholderDefs))
	for i, g := range a.placeholderDefs {
		allTagsList[i] = g.AllTags()
	}

	for pos, newTag := range newTags {
		tagsAtPos := make([]*hed.Tag, 0, len(allTagsList))
		for _, tags := range allTagsList {
			if pos < len(tags) {
				tagsAtPos = append(tagsAtPos, tags[pos])
			}
		}
		matched, ok := matchingValue(tagsAtPos)
		if !ok {
			return nil
		}
		newTag.SetExtension(matched)
	}
	return newGroup
}

// matchingValue returns the single extension value shared by tags, or
// the single non-"#" value if "#" is one of the candidates, or false if
// no such consistent value exists.
func matchingValue(tags []*hed.Tag) (string, bool) {
	unique := map[string]bool{}
	for _, t := range tags {
		unique[t.Extension()] = true
	}
	if len(unique) == 1 {
		for k := range unique {
			return k, true
		}
	}
	if unique["#"] {
		delete(unique, "#")
		if len(unique) == 1 {
			for k := range unique {
				return k, true
			}
		}
	}
	return "", false
}

// Gatherer discovers definitions purely from Def-expand usages across a
// corpus of HED strings, for the case where no accompanying Definition
// group was ever supplied (e.g. a dataset that ships only expanded HED
// strings). Known definitions are confirmed by re-rendering every
// further usage and comparing against the first; still-ambiguous
// definitions are resolved once enough differently-valued usages
// triangulate a single placeholder position.
type Gatherer struct {
	Dict *Dictionary

	ambiguous map[string]*AmbiguousDef
	errors    map[string][]*hed.Group
}

// NewGatherer returns a Gatherer that adds discovered definitions into
// dict (existing entries in dict are treated as already known).
func NewGatherer(dict *Dictionary) *Gatherer {
	return &Gatherer{
		Dict:      dict,
		ambiguous: map[string]*AmbiguousDef{},
		errors:    map[string][]*hed.Group{},
	}
}

// ProcessDefExpands scans every string in strs for Def-expand usages,
// confirming known definitions, accumulating ambiguous ones, and
// recording irreconcilable usages as errors keyed by case-folded
// definition name. It returns the Gatherer's dictionary, its remaining
// unresolved ambiguous definitions, and its error groups.
func (g *Gatherer) ProcessDefExpands(strs []*hed.HEDString) (*Dictionary, map[string]*AmbiguousDef, map[string][]*hed.Group) {
	for _, str := range strs {
		g.processOne(str)
	}
	return g.Dict, g.ambiguous, g.errors
}

func (g *Gatherer) processOne(str *hed.HEDString) {
	for _, found := range str.FindDefTags(true, hed.DefTagIncludeAll) {
		expandGroup, ok := found.DefExpandGroupOrTag.(*hed.Group)
		if !ok {
			continue // a bare Def usage, not a Def-expand
		}
		if !g.handleKnown(found.DefTag, expandGroup) {
			g.handleAmbiguous(found.DefTag, expandGroup)
		}
	}
}

// handleKnown reports whether defTag's definition name is already
// resolvable (either already in Dict, or unambiguous because its
// extension carries no value) and, if so, registers or cross-checks it.
func (g *Gatherer) handleKnown(defTag *hed.Tag, defExpandGroup *hed.Group) bool {
	name := baseDefName(defTag.Extension())
	key := fold(name)

	bodies := defExpandGroup.Groups()
	if len(bodies) == 0 {
		return false
	}
	body := bodies[0]

	if entry, known := g.Dict.Get(name); known {
		expectedDigest := entry.Digest
		if entry.PlaceholderArity == 1 {
			expected := entry.Body.DeepCopy()
			value := lastSegment(defTag.Extension())
			for _, t := range expected.AllTags() {
				if t.IsPlaceholder() {
					t.ReplacePlaceholder(value)
				}
			}
			expectedDigest = digestOf(expected)
		}
		if expectedDigest != digestOf(body) {
			logger.Debug("def-expand body for %q diverges from its registered definition", name)
			g.errors[key] = append(g.errors[key], body)
		}
		return true
	}

	hasValue := strings.Contains(defTag.Extension(), "/")
	if !hasValue {
		canonBody := canonicalize(body)
		g.Dict.add(&DefinitionEntry{Name: name, PlaceholderArity: 0, Body: canonBody, Digest: digestOf(canonBody)})
		logger.Debug("registered definition %q (arity 0) from a def-expand usage", name)
		return true
	}

	if _, errored := g.errors[key]; errored {
		g.errors[key] = append(g.errors[key], body)
		return true
	}

	return false
}

func (g *Gatherer) handleAmbiguous(defTag *hed.Tag, defExpandGroup *hed.Group) {
	name := baseDefName(defTag.Extension())
	key := fold(name)

	ad, ok := g.ambiguous[key]
	if !ok {
		ad = &AmbiguousDef{}
		g.ambiguous[key] = ad
	}
	ad.addDef(defTag, defExpandGroup)

	valid, err := ad.validate()
	if err != nil {
		g.errors[key] = append(g.errors[key], ad.placeholderDefs...)
		delete(g.ambiguous, key)
		return
	}
	if valid {
		if body := ad.group(); body != nil {
			canonBody := canonicalize(body)
			g.Dict.add(&DefinitionEntry{Name: name, PlaceholderArity: 1, Body: canonBody, Digest: digestOf(canonBody)})
			logger.Debug("registered definition %q (arity 1) after resolving its ambiguous placeholder position", name)
		}
		delete(g.ambiguous, key)
	}
}

// GetAmbiguousGroup turns one unresolved AmbiguousDef into a single
// best-effort Group with its known placeholder positions filled in, or
// nil if ad is nil.
func GetAmbiguousGroup(ad *AmbiguousDef) *hed.Group {
	if ad == nil {
		return nil
	}
	return ad.group()
}
