// Package query implements the boolean/structural query engine (C10):
// a small operator-precedence grammar over HED tag trees, with `[X]`/
// `[[X]]` structural containment primitives alongside `~`/`and`/`or`.
//
// Grounded on EntityDB's models/entity_query.go: that file's fluent
// EntityQuery builder (HasTag/HasWildcardTag, AND-combined by
// construction) is re-expressed here as an AST the evaluator walks,
// because the fluent-builder shape has no way to express negation or
// the nested-bracket containment tests spec.md §4.10 asks for. The
// bracket/tilde/and/or tokenizer follows the same hand-rolled,
// span-tracking style parser.Parse (C4) uses for the HED string
// grammar itself — a different alphabet over the same idiom.
package query

import "github.com/hed-standard/hed-python-sub005/hed"

// expr is one node of a parsed query. Every node answers two questions:
// whether it holds globally against an entire tree (eval), and whether
// it holds against the tag population of one particular group (evalPool)
// — the latter is what bracketExpr uses to test candidate groups without
// re-walking the whole tree per candidate.
type expr interface {
	eval(root *hed.Group) evalResult
	evalPool(root, g *hed.Group, recursive bool) bool
}

// evalResult is what eval returns: whether the expression matched
// anywhere in the tree, and the items (Tags for a bare primary, Groups
// for a bracket clause) that satisfied it.
type evalResult struct {
	matched bool
	items   []hed.Item
}

// primaryExpr is a bare tag name: "Red", "Event/Sensory-event". It
// matches short_base_tag case-insensitively against any descendant tag,
// delegating to hed.Group.FindTags so the fallback-to-source-text
// behavior for unresolved tags (see Tag.matchKey) is shared rather than
// re-implemented here.
type primaryExpr struct {
	name string
}

func (p *primaryExpr) eval(root *hed.Group) evalResult {
	found := root.FindTags([]string{p.name}, true, hed.IncludeGroupsNone)
	items := make([]hed.Item, len(found))
	for i, f := range found {
		items[i] = f.Tag
	}
	return evalResult{matched: len(found) > 0, items: items}
}

func (p *primaryExpr) evalPool(root, g *hed.Group, recursive bool) bool {
	return len(g.FindTags([]string{p.name}, recursive, hed.IncludeGroupsNone)) > 0
}

// notExpr is unary `~`: negation. Its matched result is the logical
// complement of its operand; it contributes no items of its own, since
// "everything that is not X" has no natural enumeration as matched
// groups or tags.
type notExpr struct {
	x expr
}

func (n *notExpr) eval(root *hed.Group) evalResult {
	return evalResult{matched: !n.x.eval(root).matched}
}

func (n *notExpr) evalPool(root, g *hed.Group, recursive bool) bool {
	return !n.x.evalPool(root, g, recursive)
}

// andExpr is binary `and`/`,`. Per spec.md §8 testable property 8, it
// matches iff both operands match; when it does, its items are the
// union of both operands' items (spec.md §4.10 S8: "[[a]] and [[d]]"
// matches both inner groups, one satisfying each operand).
type andExpr struct {
	left, right expr
}

func (a *andExpr) eval(root *hed.Group) evalResult {
	l := a.left.eval(root)
	r := a.right.eval(root)
	res := evalResult{matched: l.matched && r.matched}
	if res.matched {
		res.items = append(append([]hed.Item(nil), l.items...), r.items...)
	}
	return res
}

func (a *andExpr) evalPool(root, g *hed.Group, recursive bool) bool {
	return a.left.evalPool(root, g, recursive) && a.right.evalPool(root, g, recursive)
}

// orExpr is binary `or`. It matches iff either operand matches; its
// items are the union of whichever operand(s) actually matched.
type orExpr struct {
	left, right expr
}

func (o *orExpr) eval(root *hed.Group) evalResult {
	l := o.left.eval(root)
	r := o.right.eval(root)
	res := evalResult{matched: l.matched || r.matched}
	if l.matched {
		res.items = append(res.items, l.items...)
	}
	if r.matched {
		res.items = append(res.items, r.items...)
	}
	return res
}

func (o *orExpr) evalPool(root, g *hed.Group, recursive bool) bool {
	return o.left.evalPool(root, g, recursive) || o.right.evalPool(root, g, recursive)
}

// bracketExpr is `[X]` (direct=false) or `[[X]]` (direct=true): "X is
// contained within any group" vs. "X is contained directly in a group,
// no interposed groups." Candidate groups are every Group in the tree
// (hed.Group.AllGroups, includeSelf=true); a candidate qualifies if its
// tag pool — all descendant tags when direct is false, only direct Tag
// children when direct is true — satisfies inner.
type bracketExpr struct {
	inner  expr
	direct bool
}

func (b *bracketExpr) eval(root *hed.Group) evalResult {
	var items []hed.Item
	for _, g := range root.AllGroups(true) {
		if b.inner.evalPool(root, g, !b.direct) {
			items = append(items, g)
		}
	}
	return evalResult{matched: len(items) > 0, items: items}
}

// evalPool lets a bracket clause appear nested inside another bracket's
// tag list, e.g. "[[a, [b]]]" — not exercised by any spec.md scenario,
// but the grammar in §4.10 is recursive in X, so this falls back to a
// global re-evaluation against root rather than rejecting the nesting.
func (b *bracketExpr) evalPool(root, g *hed.Group, recursive bool) bool {
	return b.eval(root).matched
}
