// Package schema defines the query-only contract the rest of the
// annotation core uses to resolve HED tags against a vocabulary.
//
// A real schema is a large, versioned vocabulary tree loaded from a
// MediaWiki/XML export; loading one is out of scope for this module.
// What every other package needs from a schema is small and read-only —
// resolve a slash path to an entry, ask it for attributes, and look up
// its unit/value classes — so that surface is captured here as the
// Source interface, generalized from the namespaced-path lookups in
// EntityDB's tag_namespace.go (ParseTag/IsNamespace/GetTagPath) from a
// colon-separated permission hierarchy to a slash-separated schema
// hierarchy with case-folded node matching.
package schema

import "github.com/hed-standard/hed-python-sub005/issue"

// Entry is a single resolved node in a schema's vocabulary tree. It is
// immutable and opaque to callers beyond this interface: the schema
// format (XML, MediaWiki, in-memory) is free to change without
// affecting anything built on Source.
type Entry interface {
	// ShortName is the node's own name, in its original case.
	ShortName() string

	// LongName is the full slash-separated path from the schema root
	// to this node, in original case.
	LongName() string

	// Ancestors returns the short names of every node from the
	// immediate parent up to (but not including) the schema root,
	// lowercased, closest ancestor first.
	Ancestors() []string

	// Attributes returns the node's own attribute set (e.g.
	// "takesValue", "extensionAllowed", "unitClass", "valueClass")
	// mapped to their string value; boolean attributes are present
	// with an empty string value.
	Attributes() map[string]string

	// UnitClass is the name of this node's unit class, or "" if none.
	UnitClass() string

	// ValueClass is the name of this node's value class, or "" if none.
	ValueClass() string
}

// UnitAttributes carries the per-unit flags C2 needs to parse a
// placeholder's "<value> <unit>" extension correctly.
type UnitAttributes struct {
	// Symbol units (e.g. "$", "°") match case-sensitively and never
	// pluralize; non-symbol units (e.g. "meter", "hour") match
	// case-insensitively and accept plural/prefix permutations.
	Symbol bool

	// Prefix units precede the value in the extension text instead of
	// following it (currency-style: "$5" rather than "5 m").
	Prefix bool
}

// UnitClassEntry groups the permutations of one unit class's units —
// plural, case, and SI-prefix variants — so C2 can match an
// arbitrarily-cased, possibly-prefixed, possibly-pluralized unit
// string back to its canonical unit in one lookup.
type UnitClassEntry interface {
	// Name is the unit class's own name (e.g. "time", "currency").
	Name() string

	// DerivativeUnits maps every accepted surface form of a unit
	// (e.g. "second", "seconds", "s", "ms", "milliseconds") to the
	// attributes of its canonical unit.
	DerivativeUnits() map[string]UnitAttributes
}

// ValueClassEntry describes a value class's own validation attributes
// (e.g. the "#" Value tag's numeric-range constants); the core treats
// it as opaque beyond its name and attribute set.
type ValueClassEntry interface {
	Name() string
	Attributes() map[string]string
}

// Source is the read-only vocabulary a schema exposes to the rest of
// the annotation core. Every method is safe for concurrent use; no
// Source implementation mutates an Entry once returned.
type Source interface {
	// FindTagEntry walks text as a slash-separated path and returns
	// the longest matching prefix as entry, with the unmatched
	// remainder (original case preserved) returned as extension. Node
	// matching is case-insensitive. namespace selects among multiple
	// loaded schemas and must end in ":"; pass "" for the
	// unnamespaced default schema. If no prefix of text resolves,
	// entry is nil and issues explains why (UnresolvedTag or
	// InvalidNamespace).
	FindTagEntry(text, namespace string) (entry Entry, remainder string, issues []issue.Issue)

	// GetTagEntry looks up a node directly by its short or long name,
	// without any extension splitting. ok is false if no such node
	// exists in namespace.
	GetTagEntry(name, namespace string) (entry Entry, ok bool)

	// HasAttribute reports whether entry itself carries attr.
	HasAttribute(entry Entry, attr string) bool

	// AnyParentHasAttribute reports whether any ancestor of entry
	// (not entry itself) carries attr.
	AnyParentHasAttribute(entry Entry, attr string) bool

	// AttributeValue returns attr's string value on entry, if present.
	AttributeValue(entry Entry, attr string) (value string, ok bool)

	// UnitClasses returns the unit classes entry's node declares,
	// keyed by class name.
	UnitClasses(entry Entry) map[string]UnitClassEntry

	// ValueClasses returns the value classes entry's node declares,
	// keyed by class name.
	ValueClasses(entry Entry) map[string]ValueClassEntry
}
