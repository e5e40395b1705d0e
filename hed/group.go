package hed

import (
	"fmt"

	"github.com/hed-standard/hed-python-sub005/issue"
)

// Group is a parenthesized collection of Tags and nested Groups. Group
// identity is Go pointer identity: content equality never substitutes
// for it. children is never returned directly from an exported method
// — Children/Tags/Groups always hand back a fresh slice — so callers
// cannot mutate a Group's membership except through Append/Replace/
// Remove.
type Group struct {
	parent   *Group
	children []Item
	span     issue.Span
}

// NewGroup returns an empty Group spanning span.
func NewGroup(span issue.Span) *Group {
	return &Group{span: span}
}

// Span returns the group's location in the HED string it was parsed from.
func (g *Group) Span() issue.Span { return g.span }

// Parent returns the enclosing Group, or nil if g is a root.
func (g *Group) Parent() *Group { return g.parent }

// Append adds child as a new last member of g.
func (g *Group) Append(child Item) {
	if sub, ok := child.(*Group); ok {
		sub.parent = g
	}
	g.children = append(g.children, child)
}

// Replace substitutes newItem for old, matched by identity. It returns
// ItemNotFound if old is not a current member of g.
func (g *Group) Replace(old, newItem Item) error {
	for i, c := range g.children {
		if c == old {
			g.children[i] = newItem
			if sub, ok := old.(*Group); ok {
				sub.parent = nil
			}
			if sub, ok := newItem.(*Group); ok {
				sub.parent = g
			}
			return nil
		}
	}
	return fmt.Errorf("%w: group has no such child", issue.ErrItemNotFound)
}

// Remove deletes each of toRemove from g, matched by identity, then
// prunes any ancestor Group left with no children as a result. It
// returns ItemNotFound (without partial removal of later arguments) on
// the first item not found among g's members.
func (g *Group) Remove(toRemove ...Item) error {
	for _, target := range toRemove {
		if err := g.removeOne(target); err != nil {
			return err
		}
	}
	g.pruneEmptyAncestors()
	return nil
}

func (g *Group) removeOne(target Item) error {
	for i, c := range g.children {
		if c == target {
			g.children = append(g.children[:i], g.children[i+1:]...)
			if sub, ok := target.(*Group); ok {
				sub.parent = nil
			}
			return nil
		}
	}
	return fmt.Errorf("%w: group has no such child", issue.ErrItemNotFound)
}

// pruneEmptyAncestors removes g, and any ancestor left empty in turn,
// from its parent's children.
func (g *Group) pruneEmptyAncestors() {
	cur := g
	for cur.parent != nil && len(cur.children) == 0 {
		parent := cur.parent
		for i, c := range parent.children {
			if gc, ok := c.(*Group); ok && gc == cur {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
		cur.parent = nil
		cur = parent
	}
}

// Children returns a copy of g's direct members, tags and groups mixed
// in source order.
func (g *Group) Children() []Item {
	out := make([]Item, len(g.children))
	copy(out, g.children)
	return out
}

// Tags returns g's direct Tag children, in source order.
func (g *Group) Tags() []*Tag {
	var out []*Tag
	for _, c := range g.children {
		if t, ok := c.(*Tag); ok {
			out = append(out, t)
		}
	}
	return out
}

// Groups returns g's direct Group children, in source order.
func (g *Group) Groups() []*Group {
	var out []*Group
	for _, c := range g.children {
		if sub, ok := c.(*Group); ok {
			out = append(out, sub)
		}
	}
	return out
}

// AllTags returns every Tag in g's subtree, depth-first.
func (g *Group) AllTags() []*Tag {
	var out []*Tag
	for _, c := range g.children {
		switch v := c.(type) {
		case *Tag:
			out = append(out, v)
		case *Group:
			out = append(out, v.AllTags()...)
		}
	}
	return out
}

// AllGroups returns every descendant Group, depth-first. If includeSelf
// is true, g itself is the first element.
func (g *Group) AllGroups(includeSelf bool) []*Group {
	var out []*Group
	if includeSelf {
		out = append(out, g)
	}
	for _, c := range g.children {
		if v, ok := c.(*Group); ok {
			out = append(out, v.AllGroups(true)...)
		}
	}
	return out
}

// IncludeGroups selects what FindTags/FindDefTags/FindTopLevelTags
// populate in a FoundTag result.
type IncludeGroups int

const (
	// IncludeGroupsNone returns only the matched Tag.
	IncludeGroupsNone IncludeGroups = iota
	// IncludeGroupsEnclosing returns only the enclosing Group.
	IncludeGroupsEnclosing
	// IncludeGroupsBoth returns both the Tag and its enclosing Group.
	IncludeGroupsBoth
)

// FoundTag is one match from FindTags or FindTopLevelTags. Which
// fields are populated is controlled by the IncludeGroups argument;
// unrequested fields are left nil.
type FoundTag struct {
	Tag   *Tag
	Group *Group
}

// FindTags returns every Tag in g's subtree whose short base tag
// case-insensitively matches one of shortBaseTags. If recursive is
// false, only g's direct Tag children are considered.
func (g *Group) FindTags(shortBaseTags []string, recursive bool, include IncludeGroups) []FoundTag {
	want := make(map[string]bool, len(shortBaseTags))
	for _, s := range shortBaseTags {
		want[fold(s)] = true
	}

	var results []FoundTag
	var walk func(group *Group)
	walk = func(group *Group) {
		for _, c := range group.children {
			switch v := c.(type) {
			case *Tag:
				if want[fold(v.matchKey())] {
					results = append(results, makeFoundTag(v, group, include))
				}
			case *Group:
				if recursive {
					walk(v)
				}
			}
		}
	}
	walk(g)
	return results
}

func makeFoundTag(t *Tag, enclosing *Group, include IncludeGroups) FoundTag {
	f := FoundTag{}
	if include == IncludeGroupsNone || include == IncludeGroupsBoth {
		f.Tag = t
	}
	if include == IncludeGroupsEnclosing || include == IncludeGroupsBoth {
		f.Group = enclosing
	}
	return f
}

// DefTagInclude selects what FindDefTags populates, matching
// IncludeGroups but with a fourth level that asks for everything at once.
type DefTagInclude int

const (
	DefTagIncludeDefOnly DefTagInclude = iota
	DefTagIncludeWithExpand
	DefTagIncludeWithEnclosing
	DefTagIncludeAll
)

// FoundDefTag is one Def or Def-expand usage found by FindDefTags.
type FoundDefTag struct {
	// DefTag is the Def/Def-expand tag itself.
	DefTag *Tag
	// DefExpandGroupOrTag is DefTag for a bare "Def/name" usage, or the
	// whole enclosing def-expand Group for "(Def-expand/name, body)".
	DefExpandGroupOrTag Item
	// EnclosingGroup is the Group directly containing this usage.
	EnclosingGroup *Group
}

// FindDefTags returns every Def and Def-expand usage in g's subtree.
func (g *Group) FindDefTags(recursive bool, include DefTagInclude) []FoundDefTag {
	var results []FoundDefTag
	var walk func(group *Group)
	walk = func(group *Group) {
		for _, c := range group.children {
			switch v := c.(type) {
			case *Tag:
				if fold(v.ShortBaseTag()) == "def" {
					results = append(results, makeFoundDefTag(v, v, group, include))
				}
			case *Group:
				if defTag := defExpandTagIn(v); defTag != nil {
					results = append(results, makeFoundDefTag(defTag, v, group, include))
				}
				if recursive {
					walk(v)
				}
			}
		}
	}
	walk(g)
	return results
}

func defExpandTagIn(g *Group) *Tag {
	tags := g.Tags()
	if len(tags) == 0 {
		return nil
	}
	first := g.children[0]
	tag, ok := first.(*Tag)
	if !ok || fold(tag.ShortBaseTag()) != "def-expand" {
		return nil
	}
	return tag
}

func makeFoundDefTag(defTag *Tag, expand Item, enclosing *Group, include DefTagInclude) FoundDefTag {
	f := FoundDefTag{DefTag: defTag}
	if include >= DefTagIncludeWithExpand {
		f.DefExpandGroupOrTag = expand
	}
	if include >= DefTagIncludeWithEnclosing {
		f.EnclosingGroup = enclosing
	}
	return f
}

// FindTopLevelTags scans each of g's direct Group children for at most
// one direct Tag child whose short base tag matches anchorTags
// (case-insensitive); the first match in source order wins per group.
func (g *Group) FindTopLevelTags(anchorTags []string, include IncludeGroups) []FoundTag {
	want := make(map[string]bool, len(anchorTags))
	for _, a := range anchorTags {
		want[fold(a)] = true
	}

	var results []FoundTag
	for _, c := range g.children {
		sub, ok := c.(*Group)
		if !ok {
			continue
		}
		for _, gc := range sub.children {
			if tag, ok := gc.(*Tag); ok && want[fold(tag.matchKey())] {
				results = append(results, makeFoundTag(tag, sub, include))
				break
			}
		}
	}
	return results
}

// DeepCopy returns a new Group tree with cloned Tags (schema entries
// shared, since they are immutable and owned by the schema) and fresh
// Group identities; parent back-links in the copy point within the copy.
func (g *Group) DeepCopy() *Group {
	clone := &Group{span: g.span}
	for _, c := range g.children {
		switch v := c.(type) {
		case *Tag:
			clone.children = append(clone.children, v.clone())
		case *Group:
			sub := v.DeepCopy()
			sub.parent = clone
			clone.children = append(clone.children, sub)
		}
	}
	return clone
}

// Reorder replaces g's children with the same items in a new order. It
// exists for internal canonicalization passes — the Definition
// Dictionary sorts a definition body into a deterministic order so two
// definitions compare by value — that need to permute a group's
// children without exercising the identity-checked Append/Replace/
// Remove edit primitives. newOrder must contain exactly the same items
// as g's current children, each exactly once; Reorder panics otherwise,
// since that signals a caller bug rather than an ordinary edit.
func (g *Group) Reorder(newOrder []Item) {
	if len(newOrder) != len(g.children) {
		panic("hed: Reorder given the wrong number of children")
	}
	remaining := make(map[Item]int, len(g.children))
	for _, c := range g.children {
		remaining[c]++
	}
	for _, c := range newOrder {
		if remaining[c] == 0 {
			panic("hed: Reorder given an item that is not a current child")
		}
		remaining[c]--
	}
	g.children = append([]Item(nil), newOrder...)
}
