package parser

import (
	"testing"

	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
)

// TestS1ParseShape is the literal scenario from spec.md §8 S1: three
// top-level children, the innermost group holding exactly two tags.
func TestS1ParseShape(t *testing.T) {
	str, issues, err := Parse("Red, (Blue, (Green, Yellow)), Purple", nil, nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	children := str.Children()
	if len(children) != 3 {
		t.Fatalf("want 3 top-level children, got %d", len(children))
	}
	red, ok := children[0].(*hed.Tag)
	if !ok || red.OrgTag() != "Red" {
		t.Fatalf("first child = %#v, want tag Red", children[0])
	}
	purple, ok := children[2].(*hed.Tag)
	if !ok || purple.OrgTag() != "Purple" {
		t.Fatalf("third child = %#v, want tag Purple", children[2])
	}

	outer, ok := children[1].(*hed.Group)
	if !ok {
		t.Fatalf("second child is not a Group: %#v", children[1])
	}
	outerTags := outer.Tags()
	if len(outerTags) != 1 || outerTags[0].OrgTag() != "Blue" {
		t.Fatalf("outer group direct tags = %#v, want [Blue]", outerTags)
	}
	inner := outer.Groups()
	if len(inner) != 1 {
		t.Fatalf("outer group has %d nested groups, want 1", len(inner))
	}
	innerTags := inner[0].Tags()
	if len(innerTags) != 2 || innerTags[0].OrgTag() != "Green" || innerTags[1].OrgTag() != "Yellow" {
		t.Fatalf("inner group tags = %#v, want [Green Yellow]", innerTags)
	}
}

func TestParseRenderRoundTrip(t *testing.T) {
	cases := []string{
		"Red",
		"Red, Blue",
		"(Red, Blue)",
		"Red, (Blue, (Green, Yellow)), Purple",
		"Acceleration/4.5 m-per-s^2",
	}
	for _, s := range cases {
		str, issues, err := Parse(s, nil, nil)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", s, err)
		}
		if len(issues) != 0 {
			t.Fatalf("Parse(%q) issues: %v", s, issues)
		}
		got := str.Render(hed.RenderOriginal, nil)
		if got != s {
			t.Errorf("Render round trip: Parse(%q) -> Render = %q", s, got)
		}
	}
}

func TestParsePermissiveCommas(t *testing.T) {
	str, issues, err := Parse("Red,,, Blue", nil, nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if len(str.AllTags()) != 2 {
		t.Fatalf("want 2 tags, got %d", len(str.AllTags()))
	}
}

func TestParseEmptyGroupDropped(t *testing.T) {
	str, _, err := Parse("Red, (), Blue", nil, nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(str.Children()) != 2 {
		t.Fatalf("want the empty group dropped leaving 2 children, got %d: %#v", len(str.Children()), str.Children())
	}
}

func TestParseUnmatchedClose(t *testing.T) {
	_, issues, err := Parse("Red), Blue", nil, nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(issues) != 1 || issues[0].Kind != issue.KindUnmatchedClose {
		t.Fatalf("issues = %v, want one UnmatchedClose", issues)
	}
}

func TestParseUnmatchedOpen(t *testing.T) {
	str, issues, err := Parse("(Red, (Blue", nil, nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %v, want two UnmatchedOpen (one per unclosed paren)", issues)
	}
	for _, is := range issues {
		if is.Kind != issue.KindUnmatchedOpen {
			t.Fatalf("issue kind = %v, want UnmatchedOpen", is.Kind)
		}
	}
	// Best-effort recovery still produces a usable tree.
	if len(str.AllTags()) != 2 {
		t.Fatalf("want 2 recovered tags, got %d", len(str.AllTags()))
	}
}

func TestParseDefsWithoutSchemaIsInvalidUsage(t *testing.T) {
	_, _, err := Parse("Red", nil, stubDefs{})
	if err == nil {
		t.Fatal("want an error for defs without a schema")
	}
}

type stubDefs struct{}

func (stubDefs) HasDefinition(string) bool { return false }
