package definitions_test

import (
	"testing"

	"github.com/hed-standard/hed-python-sub005/definitions"
	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/schema"
)

// defExpandString builds "(Def-expand/<name>/<value>, (<bodyTags...>))" as
// a standalone top-level HED String, for Gatherer tests that never see an
// accompanying Definition group.
func defExpandString(s *schema.StaticSchema, extension string, bodyExt ...string) *hed.HEDString {
	root := hed.NewHEDString(span(0, 100), s, nil)
	outer := hed.NewGroup(span(0, 100))
	expandGroup := hed.NewGroup(span(0, 100))
	expandGroup.Append(mustTag(s, "Def-expand/"+extension))
	body := hed.NewGroup(span(0, 100))
	for _, e := range bodyExt {
		body.Append(mustTag(s, "Duration/"+e))
	}
	expandGroup.Append(body)
	outer.Append(expandGroup)
	root.Append(outer)
	return root
}

func TestGathererRegistersUnambiguousKnownDefinition(t *testing.T) {
	s := newDefSchema()
	str := defExpandString(s, "Fixed", "5 s")

	g := definitions.NewGatherer(definitions.NewDictionary())
	dict, ambiguous, errs := g.ProcessDefExpands([]*hed.HEDString{str})

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(ambiguous) != 0 {
		t.Fatalf("expected no ambiguous definitions for a value-free usage, got %v", ambiguous)
	}
	entry, ok := dict.Get("Fixed")
	if !ok {
		t.Fatalf("expected Fixed to be registered")
	}
	if entry.PlaceholderArity != 0 {
		t.Fatalf("expected arity 0 for a usage with no value, got %d", entry.PlaceholderArity)
	}
}

func TestGathererResolvesPlaceholderPositionAndConfirmsSecondUsage(t *testing.T) {
	s := newDefSchema()
	str1 := defExpandString(s, "Trial/5 s", "5 s")
	str2 := defExpandString(s, "Trial/10 s", "10 s")

	g := definitions.NewGatherer(definitions.NewDictionary())
	dict, ambiguous, errs := g.ProcessDefExpands([]*hed.HEDString{str1, str2})

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if _, stillAmbiguous := ambiguous["trial"]; stillAmbiguous {
		t.Fatalf("expected Trial to be resolved, not left ambiguous")
	}
	entry, ok := dict.Get("Trial")
	if !ok {
		t.Fatalf("expected Trial to be registered once resolved")
	}
	if entry.PlaceholderArity != 1 {
		t.Fatalf("expected arity 1, got %d", entry.PlaceholderArity)
	}
	if got := entry.Body.AllTags()[0].Extension(); got != "#" {
		t.Fatalf("expected the resolved body's value tag to be a placeholder, got %q", got)
	}
}

func TestGathererLeavesSingleUsageAmbiguousWhenValueMatchesNoBodyTag(t *testing.T) {
	s := newDefSchema()
	// The def's value ("5 s") does not equal the body tag's own value
	// ("99 s"), so no body position can yet be identified as the
	// placeholder.
	str := defExpandString(s, "Solo/5 s", "99 s")

	g := definitions.NewGatherer(definitions.NewDictionary())
	dict, ambiguous, errs := g.ProcessDefExpands([]*hed.HEDString{str})

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if _, ok := dict.Get("Solo"); ok {
		t.Fatalf("a usage whose value matches no body tag should not resolve a placeholder position")
	}
	if _, ok := ambiguous["solo"]; !ok {
		t.Fatalf("expected Solo to remain in the ambiguous set")
	}
}

func TestGathererConfirmsKnownDefinitionAcrossRepeatedUsage(t *testing.T) {
	s := newDefSchema()
	defStr := defString(s, "Waving", mustTag(s, "Azure/blue"))
	dict, _ := definitions.CheckForDefinitions(defStr, nil)

	usage := hed.NewHEDString(span(0, 50), s, nil)
	outer := hed.NewGroup(span(0, 50))
	expandGroup := hed.NewGroup(span(0, 50))
	expandGroup.Append(mustTag(s, "Def-expand/Waving"))
	body := hed.NewGroup(span(0, 50))
	body.Append(mustTag(s, "Azure/blue"))
	expandGroup.Append(body)
	outer.Append(expandGroup)
	usage.Append(outer)

	g := definitions.NewGatherer(dict)
	_, _, errs := g.ProcessDefExpands([]*hed.HEDString{usage})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors confirming a matching known usage: %v", errs)
	}
}

func TestGathererFlagsMismatchedKnownDefinition(t *testing.T) {
	s := newDefSchema()
	defStr := defString(s, "Waving", mustTag(s, "Azure/blue"))
	dict, _ := definitions.CheckForDefinitions(defStr, nil)

	usage := hed.NewHEDString(span(0, 50), s, nil)
	outer := hed.NewGroup(span(0, 50))
	expandGroup := hed.NewGroup(span(0, 50))
	expandGroup.Append(mustTag(s, "Def-expand/Waving"))
	body := hed.NewGroup(span(0, 50))
	body.Append(mustTag(s, "Azure/red")) // disagrees with the registered body
	expandGroup.Append(body)
	outer.Append(expandGroup)
	usage.Append(outer)

	g := definitions.NewGatherer(dict)
	_, _, errs := g.ProcessDefExpands([]*hed.HEDString{usage})
	if len(errs["waving"]) != 1 {
		t.Fatalf("expected one recorded error body for the mismatched usage, got %v", errs)
	}
}
