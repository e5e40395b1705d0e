package definitions_test

import (
	"testing"

	"github.com/hed-standard/hed-python-sub005/definitions"
	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
)

func TestGetDefinitionNoValue(t *testing.T) {
	s := newDefSchema()
	defStr := defString(s, "Waving", mustTag(s, "Azure/blue"))
	dict, issues := definitions.CheckForDefinitions(defStr, nil)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	defTag := mustTag(s, "Def/Waving")
	name, body, getIssues := definitions.GetDefinition(dict, defTag)
	if len(getIssues) != 0 {
		t.Fatalf("unexpected issues: %v", getIssues)
	}
	if name != "Waving" {
		t.Fatalf("expanded name = %q, want %q", name, "Waving")
	}
	if len(body.AllTags()) != 1 || body.AllTags()[0].ShortTag() != "Azure/blue" {
		t.Fatalf("unexpected body: %v", body.AllTags())
	}
}

func TestGetDefinitionWithValueSubstitutesPlaceholder(t *testing.T) {
	s := newDefSchema()
	defStr := defString(s, "Trial/#", mustTag(s, "Duration/#"))
	dict, _ := definitions.CheckForDefinitions(defStr, nil)

	defTag := mustTag(s, "Def/Trial/5 s")
	name, body, getIssues := definitions.GetDefinition(dict, defTag)
	if len(getIssues) != 0 {
		t.Fatalf("unexpected issues: %v", getIssues)
	}
	if name != "Trial/5 s" {
		t.Fatalf("expanded name = %q, want %q", name, "Trial/5 s")
	}
	if got := body.AllTags()[0].Extension(); got != "5 s" {
		t.Fatalf("expected placeholder substituted with '5 s', got %q", got)
	}
}

func TestGetDefinitionUnmatchedName(t *testing.T) {
	s := newDefSchema()
	dict := definitions.NewDictionary()
	defTag := mustTag(s, "Def/NoSuchDef")

	_, _, issues := definitions.GetDefinition(dict, defTag)
	if len(issues) != 1 || issues[0].Kind != issue.KindDefUnmatched {
		t.Fatalf("expected a single DefUnmatched issue, got %v", issues)
	}
}

func TestGetDefinitionMissingRequiredValue(t *testing.T) {
	s := newDefSchema()
	defStr := defString(s, "Trial/#", mustTag(s, "Duration/#"))
	dict, _ := definitions.CheckForDefinitions(defStr, nil)

	defTag := mustTag(s, "Def/Trial")
	_, _, issues := definitions.GetDefinition(dict, defTag)
	if len(issues) != 1 || issues[0].Kind != issue.KindDefValueMissing {
		t.Fatalf("expected a single DefValueMissing issue, got %v", issues)
	}
}

func TestGetDefinitionExtraValue(t *testing.T) {
	s := newDefSchema()
	defStr := defString(s, "Waving", mustTag(s, "Azure/blue"))
	dict, _ := definitions.CheckForDefinitions(defStr, nil)

	defTag := mustTag(s, "Def/Waving/extra")
	_, _, issues := definitions.GetDefinition(dict, defTag)
	if len(issues) != 1 || issues[0].Kind != issue.KindDefValueExtra {
		t.Fatalf("expected a single DefValueExtra issue, got %v", issues)
	}
}

func TestExpandDefsReplacesBareDefWithDefExpandPair(t *testing.T) {
	s := newDefSchema()
	defStr := defString(s, "Trial/#", mustTag(s, "Duration/#"))
	dict, _ := definitions.CheckForDefinitions(defStr, nil)

	usage := hed.NewHEDString(span(0, 50), s, dict)
	outer := hed.NewGroup(span(0, 50))
	defTag := mustTag(s, "Def/Trial/5 s")
	outer.Append(defTag)
	usage.Append(outer)

	issues := definitions.ExpandDefs(usage, dict)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	groups := outer.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected the Def tag's enclosing group to hold one nested group after expansion, got %d", len(groups))
	}
	expandGroup := groups[0]
	tags := expandGroup.Tags()
	if len(tags) != 1 || tags[0].ShortBaseTag() != "Def-expand" {
		t.Fatalf("expected the flipped tag to be Def-expand, got %v", tags)
	}
	if tags[0].Extension() != "Trial/5 s" {
		t.Fatalf("expected extension preserved as Trial/5 s, got %q", tags[0].Extension())
	}
	bodies := expandGroup.Groups()
	if len(bodies) != 1 || bodies[0].AllTags()[0].Extension() != "5 s" {
		t.Fatalf("expected the expanded body's placeholder filled with 5 s, got %v", bodies)
	}
}

func TestShrinkDefsIsInverseOfExpand(t *testing.T) {
	s := newDefSchema()
	defStr := defString(s, "Waving", mustTag(s, "Azure/blue"))
	dict, _ := definitions.CheckForDefinitions(defStr, nil)

	usage := hed.NewHEDString(span(0, 50), s, dict)
	outer := hed.NewGroup(span(0, 50))
	defTag := mustTag(s, "Def/Waving")
	outer.Append(defTag)
	usage.Append(outer)

	if issues := definitions.ExpandDefs(usage, dict); len(issues) != 0 {
		t.Fatalf("unexpected expand issues: %v", issues)
	}
	if issues := definitions.ShrinkDefs(usage); len(issues) != 0 {
		t.Fatalf("unexpected shrink issues: %v", issues)
	}

	tags := outer.Tags()
	if len(tags) != 1 || tags[0].ShortBaseTag() != "Def" {
		t.Fatalf("expected the tag to be flipped back to Def, got %v", tags)
	}
	if len(outer.Groups()) != 0 {
		t.Fatalf("expected the expanded body group to be gone after shrink, got %v", outer.Groups())
	}
}

func TestRemoveDefinitionsDropsTopLevelDefinitionGroups(t *testing.T) {
	s := newDefSchema()
	root := hed.NewHEDString(span(0, 100), s, nil)

	defGroup := hed.NewGroup(span(0, 50))
	defGroup.Append(mustTag(s, "Definition/Waving"))
	defBody := hed.NewGroup(span(0, 50))
	defBody.Append(mustTag(s, "Azure/blue"))
	defGroup.Append(defBody)

	other := hed.NewGroup(span(50, 100))
	other.Append(mustTag(s, "Azure/red"))

	root.Append(defGroup)
	root.Append(other)

	issues := definitions.RemoveDefinitions(root)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if len(root.Groups()) != 1 || root.Groups()[0] != other {
		t.Fatalf("expected only the non-definition group to remain, got %v", root.Groups())
	}
}

func TestExpandDefTagsReportsUnmatchedWithoutMutating(t *testing.T) {
	s := newDefSchema()
	dict := definitions.NewDictionary()

	usage := hed.NewHEDString(span(0, 50), s, dict)
	outer := hed.NewGroup(span(0, 50))
	outer.Append(mustTag(s, "Def/NoSuchDef"))
	usage.Append(outer)

	issues := definitions.ExpandDefTags(usage, dict, true)
	if len(issues) != 1 || issues[0].Kind != issue.KindDefUnmatched {
		t.Fatalf("expected a single DefUnmatched issue, got %v", issues)
	}
	if outer.Tags()[0].ShortBaseTag() != "Def" {
		t.Fatalf("ExpandDefTags must not mutate the string")
	}
}

func TestExpandDefTagsValidatesExistingDefExpandBody(t *testing.T) {
	s := newDefSchema()
	defStr := defString(s, "Waving", mustTag(s, "Azure/blue"))
	dict, _ := definitions.CheckForDefinitions(defStr, nil)

	usage := hed.NewHEDString(span(0, 50), s, dict)
	outer := hed.NewGroup(span(0, 50))
	expandGroup := hed.NewGroup(span(0, 50))
	expandGroup.Append(mustTag(s, "Def-expand/Waving"))
	wrongBody := hed.NewGroup(span(0, 50))
	wrongBody.Append(mustTag(s, "Azure/red")) // does not match the registered body
	expandGroup.Append(wrongBody)
	outer.Append(expandGroup)
	usage.Append(outer)

	issues := definitions.ExpandDefTags(usage, dict, true)
	if len(issues) != 1 || issues[0].Kind != issue.KindDefExpandInvalid {
		t.Fatalf("expected a single DefExpandInvalid issue, got %v", issues)
	}
}
