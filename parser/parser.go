// Package parser implements the HED string tokenizer (C4): a single
// pass over raw text that produces a hed.HEDString tree, resolving each
// tag against a schema as it goes.
//
// No teacher file in the retrieval pack parses a generic bracketed
// grammar; this is grounded on the span-tracking,
// trim-and-slice idiom EntityDB's own tag_namespace.go uses for its
// (simpler) colon-hierarchy tags, generalized to a three-delimiter
// ('(', ')', ',') state machine, and on the bracket/operator tokenizer
// shape other_examples/91c62ed5_ritamzico-pgraph__internal-dsl-grammar.go
// uses for its own small hand-rolled grammar (reused again, with a
// different alphabet, by the query package's C10 evaluator).
package parser

import (
	"fmt"

	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/logger"
	"github.com/hed-standard/hed-python-sub005/schema"
)

// frame accumulates the children of one open group (or the root) until
// its closing delimiter (or end of input) is reached and its true span
// is known.
type frame struct {
	children []hed.Item
	startPos int // byte offset of the opening '(', -1 for the root frame
}

// Parse tokenizes text into a hed.HEDString. If src is non-nil, every
// tag is resolved against it as it is constructed; defs, if non-nil,
// is attached to the resulting tags and to the returned HEDString for
// later re-resolution, and requires src to be non-nil (hed.NewTag's own
// contract) — passing one without the other is reported as an error,
// not an Issue, since it is a caller mistake rather than malformed input.
//
// Issues returned include UnmatchedOpen/UnmatchedClose for delimiter
// mismatches, plus any per-tag resolution issues (e.g. UnresolvedTag)
// schema lookup produced along the way. Parse never fails on malformed
// delimiters — it recovers by closing unmatched groups at end of input
// and ignoring stray close parens — so the returned tree is always
// usable, even when issues is non-empty.
func Parse(text string, src schema.Source, defs hed.DefinitionLookup) (*hed.HEDString, []issue.Issue, error) {
	if defs != nil && src == nil {
		return nil, nil, fmt.Errorf("%w: parser.Parse given defs without a schema", issue.ErrInvalidUsage)
	}

	var issues []issue.Issue
	stack := []*frame{{startPos: -1}}
	tagStart := -1

	flush := func(end int) {
		if tagStart == -1 {
			return
		}
		start, stop := trimSpan(text, tagStart, end)
		tagStart = -1
		if start >= stop {
			return
		}

		tagText := text[start:stop]
		span := issue.Span{Start: start, End: stop}
		tag, err := hed.NewTag(tagText, span, src, defs)
		if err != nil {
			// hed.NewTag's only failure mode is the same defs-without-
			// schema misuse already checked above; unreachable here.
			return
		}
		issues = append(issues, tag.ResolutionIssues()...)

		top := stack[len(stack)-1]
		top.children = append(top.children, tag)
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			flush(i)
			stack = append(stack, &frame{startPos: i})
		case ')':
			flush(i)
			if len(stack) == 1 {
				issues = append(issues, issue.New(issue.KindUnmatchedClose, "unmatched ')'").WithSpan(i, i+1))
				continue
			}
			closeGroup(&stack, i+1)
		case ',':
			flush(i)
		default:
			if tagStart == -1 {
				tagStart = i
			}
		}
	}
	flush(len(text))

	for len(stack) > 1 {
		top := stack[len(stack)-1]
		issues = append(issues, issue.New(issue.KindUnmatchedOpen, "unmatched '('").WithSpan(top.startPos, top.startPos+1))
		closeGroup(&stack, len(text))
	}

	root := hed.NewHEDString(issue.Span{Start: 0, End: len(text)}, src, defs)
	for _, c := range stack[0].children {
		root.Append(c)
	}
	logger.TraceIf("parser", "parsed %q into %d top-level item(s), %d issue(s)", text, len(root.Children()), len(issues))
	return root, issues, nil
}

// closeGroup pops the innermost frame, builds its Group (span running
// from its opening delimiter to end), and appends that Group to the
// new innermost frame's children — unless it closed with no children
// at all, in which case it is dropped rather than produced as an empty
// Group, per hed.Group's "no empty groups" invariant.
func closeGroup(stack *[]*frame, end int) {
	s := *stack
	top := s[len(s)-1]
	s = s[:len(s)-1]
	*stack = s

	if len(top.children) == 0 {
		return
	}

	g := hed.NewGroup(issue.Span{Start: top.startPos, End: end})
	for _, c := range top.children {
		g.Append(c)
	}
	parent := s[len(s)-1]
	parent.children = append(parent.children, g)
}

// trimSpan narrows [start, end) to exclude leading/trailing whitespace,
// so a tag's span and source text never carry the padding a caller put
// around commas and parentheses.
func trimSpan(text string, start, end int) (int, int) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return start, end
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
