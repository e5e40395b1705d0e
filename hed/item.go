// Package hed implements the HED tag tree: Tag and Group nodes, the HED
// String root, parsing targets, and the tree-editing/traversal contract
// the rest of the annotation core builds on.
//
// Group identity is Go pointer identity, never content: two Groups with
// identical children are still different nodes, matching the "two
// groups with identical contents are not the same group" invariant.
// Edits are mutable by default; DeepCopy is how a subtree is safely
// shared across more than one containing structure. Parent back-links
// are plain *Group pointers (a weak reference in spirit, since a tree
// is short-lived, single-owner, and small enough that an arena index
// buys nothing), the same judgment EntityDB's relationship graph makes
// by linking entities through plain ID strings rather than an index.
package hed

// Item is the tagged union of a Group's children: either a *Tag or a
// *Group. The marker method is unexported so no type outside this
// package can implement Item.
type Item interface {
	itemNode()
}

func (*Tag) itemNode()   {}
func (*Group) itemNode() {}

// DefinitionLookup is the minimal view of a definition dictionary that
// Tag construction needs: just enough to reject an invalid combination
// of schema and defs at construction time. The definitions package's
// Dictionary satisfies this interface; hed never imports definitions,
// avoiding an import cycle.
type DefinitionLookup interface {
	HasDefinition(name string) bool
}
