package issue_test

import (
	"testing"

	"github.com/hed-standard/hed-python-sub005/issue"
)

func TestContextStackRendersOutermostFirst(t *testing.T) {
	ctx := issue.File("events.tsv").Column("trial_type").Row(12)

	got := ctx.String()
	want := "file: events.tsv > column: trial_type > row: 12"
	if got != want {
		t.Fatalf("Context.String() = %q, want %q", got, want)
	}
}

func TestContextPopUnwindsOneFrame(t *testing.T) {
	ctx := issue.File("events.tsv").Column("trial_type")
	popped := ctx.Pop()

	if popped.String() != "file: events.tsv" {
		t.Fatalf("Pop() = %q, want %q", popped.String(), "file: events.tsv")
	}
}

func TestNilContextIsEmptyRoot(t *testing.T) {
	var ctx *issue.Context
	if ctx.String() != "" {
		t.Fatalf("nil Context.String() = %q, want empty", ctx.String())
	}
	pushed := ctx.Push("file: a.tsv")
	if pushed.String() != "file: a.tsv" {
		t.Fatalf("Push on nil Context = %q, want %q", pushed.String(), "file: a.tsv")
	}
}

func TestIssueErrorIncludesKindAndContext(t *testing.T) {
	ctx := issue.File("events.tsv").Row(3)
	iss := issue.New(issue.KindSidecarKeyMissing, "key %q not found", "unknown").WithContext(ctx)

	got := iss.Error()
	want := `SidecarKeyMissing: key "unknown" not found (file: events.tsv > row: 3)`
	if got != want {
		t.Fatalf("Issue.Error() = %q, want %q", got, want)
	}
}

func TestContextSharedRootSupportsMultipleBranches(t *testing.T) {
	root := issue.File("events.tsv")
	a := root.Column("onset")
	b := root.Column("duration")

	if a.String() == b.String() {
		t.Fatalf("expected independent branches from shared root, got %q == %q", a.String(), b.String())
	}
	if root.String() != "file: events.tsv" {
		t.Fatalf("pushing from root mutated it: %q", root.String())
	}
}
