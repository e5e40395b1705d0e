package query

import (
	"strings"

	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
)

// Evaluate parses queryText per spec.md §4.10's grammar and runs it
// against root (typically a *hed.HEDString's embedded *hed.Group, or
// any Group to scope the search to a subtree). It returns the matching
// items — Tags for a bare primary match, Groups for a bracket clause —
// in the order the tree was walked.
//
// An empty (all-whitespace) query is reported as issue.KindEmptyQuery.
// A malformed query — mismatched brackets/parens, a trailing operator,
// stray input after a complete expression — is reported as
// issue.KindMalformedQuery; Evaluate never returns a bare error for bad
// query text, consistent with every other collector-returning operation
// in this module.
func Evaluate(queryText string, root *hed.Group) ([]hed.Item, []issue.Issue) {
	res, issues := run(queryText, root)
	if issues != nil {
		return nil, issues
	}
	return res.items, nil
}

// Matches reports only whether queryText matches anywhere in root,
// without collecting the matching items — the boolean half of
// spec.md §8 testable property 8 ("a tag matches A and B iff...").
// Matches consults the parsed expression's own matched flag rather than
// Evaluate's item count, since a top-level `~X` can match with no items
// to show for it (see notExpr.eval).
func Matches(queryText string, root *hed.Group) (bool, []issue.Issue) {
	res, issues := run(queryText, root)
	if issues != nil {
		return false, issues
	}
	return res.matched, nil
}

func run(queryText string, root *hed.Group) (evalResult, []issue.Issue) {
	if strings.TrimSpace(queryText) == "" {
		return evalResult{}, []issue.Issue{issue.New(issue.KindEmptyQuery, "query string is empty")}
	}

	toks := lex(queryText)
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return evalResult{}, []issue.Issue{issue.New(issue.KindMalformedQuery, "%v", err).WithSpan(p.cur().span.Start, p.cur().span.End)}
	}
	if p.cur().kind != tokEOF {
		t := p.cur()
		return evalResult{}, []issue.Issue{issue.New(issue.KindMalformedQuery, "unexpected trailing input %q", t.text).WithSpan(t.span.Start, t.span.End)}
	}

	return e.eval(root), nil
}
