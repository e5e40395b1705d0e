package definitions_test

import (
	"testing"

	"github.com/hed-standard/hed-python-sub005/definitions"
	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
)

func TestCheckForDefinitionsRegistersSimpleDefinition(t *testing.T) {
	s := newDefSchema()
	str := defString(s, "Waving", mustTag(s, "Azure/blue"))

	dict, issues := definitions.CheckForDefinitions(str, nil)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	entry, ok := dict.Get("Waving")
	if !ok {
		t.Fatalf("expected Waving to be registered")
	}
	if entry.PlaceholderArity != 0 {
		t.Fatalf("expected arity 0, got %d", entry.PlaceholderArity)
	}
}

func TestCheckForDefinitionsWithPlaceholder(t *testing.T) {
	s := newDefSchema()
	str := defString(s, "Trial/#", mustTag(s, "Duration/#"))

	dict, issues := definitions.CheckForDefinitions(str, nil)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	entry, ok := dict.Get("Trial")
	if !ok {
		t.Fatalf("expected Trial to be registered")
	}
	if entry.PlaceholderArity != 1 {
		t.Fatalf("expected arity 1, got %d", entry.PlaceholderArity)
	}
}

func TestCheckForDefinitionsDuplicateNameKeepsFirst(t *testing.T) {
	s := newDefSchema()
	root := hedStringWithTwoDefinitions(s)

	dict, issues := definitions.CheckForDefinitions(root, nil)
	foundDuplicate := false
	for _, iss := range issues {
		if iss.Kind == issue.KindDuplicateDefinition {
			foundDuplicate = true
		}
	}
	if !foundDuplicate {
		t.Fatalf("expected a DuplicateDefinition issue, got %v", issues)
	}
	entry, ok := dict.Get("Waving")
	if !ok {
		t.Fatalf("expected the first Waving definition to remain registered")
	}
	if len(entry.Body.AllTags()) != 1 || entry.Body.AllTags()[0].ShortTag() != "Azure/blue" {
		t.Fatalf("expected the first definition's body to be kept, got %v", entry.Body.AllTags())
	}
}

func TestCheckForDefinitionsMissingBody(t *testing.T) {
	s := newDefSchema()
	str := hedStringWithBareDefinition(s, "Empty")

	_, issues := definitions.CheckForDefinitions(str, nil)
	if len(issues) != 1 || issues[0].Kind != issue.KindDefinitionMissingBody {
		t.Fatalf("expected a single DefinitionMissingBody issue, got %v", issues)
	}
}

func TestCheckForDefinitionsPlaceholderCountMismatch(t *testing.T) {
	s := newDefSchema()
	str := defString(s, "TooMany/#", mustTag(s, "Duration/#"), mustTag(s, "Age/#"))

	_, issues := definitions.CheckForDefinitions(str, nil)
	if len(issues) != 1 || issues[0].Kind != issue.KindPlaceholderCount {
		t.Fatalf("expected a single PlaceholderCount issue, got %v", issues)
	}
}

func TestCheckForDefinitionsPlaceholderNotTakesValue(t *testing.T) {
	s := newDefSchema()
	// Azure doesn't take a value, so a literal "#" on it is not a valid
	// placeholder tag even though it superficially carries "#".
	str := defString(s, "BadPlaceholder/#", mustTag(s, "Azure/#"))

	_, issues := definitions.CheckForDefinitions(str, nil)
	if len(issues) != 1 || issues[0].Kind != issue.KindPlaceholderNotTakesValue {
		t.Fatalf("expected a single PlaceholderNotTakesValue issue, got %v", issues)
	}
}

func TestCheckForDefinitionsNestedDefinitionRejected(t *testing.T) {
	s := newDefSchema()
	str := defString(s, "Outer", mustTag(s, "Def/Inner"))

	_, issues := definitions.CheckForDefinitions(str, nil)
	if len(issues) != 1 || issues[0].Kind != issue.KindNestedDefinition {
		t.Fatalf("expected a single NestedDefinition issue, got %v", issues)
	}
}

func TestCheckForDefinitionsBadAttributeRejected(t *testing.T) {
	s := newDefSchema()
	str := defString(s, "Outer", mustTag(s, "Required-tag"))

	_, issues := definitions.CheckForDefinitions(str, nil)
	if len(issues) != 1 || issues[0].Kind != issue.KindDefinitionBadAttribute {
		t.Fatalf("expected a single DefinitionBadAttribute issue, got %v", issues)
	}
}

func TestCheckForDefinitionsInvalidName(t *testing.T) {
	s := newDefSchema()
	str := defString(s, "Bad/Name/#", mustTag(s, "Duration/#"))

	_, issues := definitions.CheckForDefinitions(str, nil)
	if len(issues) != 1 || issues[0].Kind != issue.KindInvalidDefinitionName {
		t.Fatalf("expected a single InvalidDefinitionName issue, got %v", issues)
	}
}

func TestCheckForDefinitionsCanonicalizesBodyOrder(t *testing.T) {
	s := newDefSchema()
	strA := defString(s, "OrderA", mustTag(s, "Azure/blue"), mustTag(s, "Age/10"))
	strB := defString(s, "OrderB", mustTag(s, "Age/10"), mustTag(s, "Azure/blue"))

	dictA, _ := definitions.CheckForDefinitions(strA, nil)
	dictB, _ := definitions.CheckForDefinitions(strB, nil)

	entryA, _ := dictA.Get("OrderA")
	entryB, _ := dictB.Get("OrderB")

	renderA := entryA.Body.Render(hed.RenderShort, nil)
	renderB := entryB.Body.Render(hed.RenderShort, nil)
	if renderA != renderB {
		t.Fatalf("expected canonicalized bodies to render identically regardless of source order: %q vs %q", renderA, renderB)
	}
}
