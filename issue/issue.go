// Package issue provides the stable error-kind taxonomy and diagnostic
// reporting contract shared by every component of the HED annotation core.
//
// Most operations in this module never return a bare Go error for data
// problems — a malformed HED string, an unresolved tag, a missing sidecar
// column — because those are expected, recoverable conditions that a
// caller collects and reports, not programmer mistakes. Those conditions
// are reported as a slice of Issue values instead. The two exceptions,
// InvalidUsage and ItemNotFound, are "fatal programming errors" per the
// annotation core's error handling design and are returned as ordinary Go
// errors so that a misuse surfaces immediately instead of being silently
// collected.
package issue

import (
	"errors"
	"fmt"
)

// Fatal programming errors. These are never collected into an Issue list;
// they indicate the caller violated an API contract (e.g. constructing a
// Tag with definitions but no schema, or replacing a child that isn't
// actually a member of the group).
var (
	// ErrInvalidUsage is returned when an operation is called in a way
	// the API contract disallows outright, e.g. passing a Definition
	// Dictionary to Tag construction without a schema.
	ErrInvalidUsage = errors.New("hed: invalid usage")

	// ErrItemNotFound is returned when Group.Replace or Group.Remove is
	// given a child that is not a member of the group by identity.
	ErrItemNotFound = errors.New("hed: item not found")
)

// Kind is a stable, enumerated identifier for a diagnostic condition.
// Kind values are part of the module's contract: callers may switch on
// them and should not need to parse Message text.
type Kind string

// Parse-kind issues.
const (
	KindUnmatchedOpen  Kind = "UnmatchedOpen"
	KindUnmatchedClose Kind = "UnmatchedClose"
	KindEmptyQuery     Kind = "EmptyQuery"
	KindMalformedQuery Kind = "MalformedQuery"
)

// Schema resolution issues.
const (
	KindUnresolvedTag    Kind = "UnresolvedTag"
	KindSchemaMissing    Kind = "SchemaMissing"
	KindInvalidNamespace Kind = "InvalidNamespace"
)

// Unit/value issues.
const (
	KindInvalidUnit        Kind = "InvalidUnit"
	KindInvalidValueClass  Kind = "InvalidValueClass"
	KindExtensionNotAllowed Kind = "ExtensionNotAllowed"
)

// Definition issues.
const (
	KindDefinitionMissingBody     Kind = "DefinitionMissingBody"
	KindDefinitionTooManyGroups   Kind = "DefinitionTooManyGroups"
	KindDefinitionExtraTag        Kind = "DefinitionExtraTag"
	KindInvalidDefinitionName     Kind = "InvalidDefinitionName"
	KindPlaceholderCount          Kind = "PlaceholderCount"
	KindPlaceholderNotTakesValue  Kind = "PlaceholderNotTakesValue"
	KindNestedDefinition          Kind = "NestedDefinition"
	KindDefinitionBadAttribute    Kind = "DefinitionBadAttribute"
	KindDuplicateDefinition       Kind = "DuplicateDefinition"
	KindAmbiguousDefinition       Kind = "AmbiguousDefinition"
)

// Def usage issues.
const (
	KindDefUnmatched            Kind = "DefUnmatched"
	KindDefValueMissing         Kind = "DefValueMissing"
	KindDefValueExtra           Kind = "DefValueExtra"
	KindDefExpandInvalid        Kind = "DefExpandInvalid"
	KindPlaceholderArityMismatch Kind = "PlaceholderArityMismatch"
)

// Temporal issues.
const (
	KindUnmatchedOffset   Kind = "UnmatchedOffset"
	KindOnsetsNotOrdered  Kind = "OnsetsNotOrdered"
	KindDurationNegative  Kind = "DurationNegative"
	KindDurationUnitInvalid Kind = "DurationUnitInvalid"
)

// Sidecar/column issues.
const (
	KindMissingColumn    Kind = "MissingColumn"
	KindUnknownColumn    Kind = "UnknownColumn"
	KindSidecarKeyMissing Kind = "SidecarKeyMissing"
	KindCircularColumnRef Kind = "CircularColumnRef"
	KindUnknownColumnRef  Kind = "UnknownColumnRef"
	KindWrongPoundSigns   Kind = "WrongPoundSigns"
	KindBlankHEDString    Kind = "BlankHEDString"
	KindWrongHEDDataType  Kind = "WrongHEDDataType"
)

// Span identifies a byte range in an originating HED string.
type Span struct {
	Start int
	End   int
}

// Issue is a single diagnostic record: a stable Kind, a human-readable
// message, an optional source Span, and the Context stack accumulated by
// the caller at the point the issue was raised.
type Issue struct {
	Kind    Kind
	Message string
	Span    *Span
	Context *Context
}

// Error implements the error interface so Issue values interoperate with
// %v/%w formatting and log calls, even though most code paths carry Issues
// as data rather than through Go's error-return convention.
func (i Issue) Error() string {
	if i.Context == nil {
		return fmt.Sprintf("%s: %s", i.Kind, i.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", i.Kind, i.Message, i.Context.String())
}

// New constructs an Issue with no span and no context.
func New(kind Kind, format string, args ...any) Issue {
	return Issue{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithSpan returns a copy of the issue with the given span attached.
func (i Issue) WithSpan(start, end int) Issue {
	i.Span = &Span{Start: start, End: end}
	return i
}

// WithContext returns a copy of the issue with the given context attached.
func (i Issue) WithContext(ctx *Context) Issue {
	i.Context = ctx
	return i
}

// Context is an immutable, linked diagnostic context stack: the file,
// sidecar column, sidecar key, HED string, or row index an operation was
// working on when it raised an Issue. Context is modeled on EntityDB's
// OperationContext (models/operation_tracking.go) generalized from
// "track one running operation's metadata" to "accumulate a nested
// description of where in a larger job this diagnostic occurred."
//
// Context is immutable: Push returns a new *Context built on top of the
// receiver, so a single shared root context can safely be reused as the
// starting point for many concurrent pushes (e.g. one per Tabular Input
// worker in assembler.AssembleFiles) without synchronization.
type Context struct {
	parent *Context
	label  string
}

// Push returns a new Context with label appended as the innermost frame.
// A nil receiver is treated as an empty root context, so the first Push
// in a call chain can be written (*Context)(nil).Push("file: events.tsv").
func (c *Context) Push(label string) *Context {
	return &Context{parent: c, label: label}
}

// Pop returns the enclosing context, or nil if c is the root.
func (c *Context) Pop() *Context {
	if c == nil {
		return nil
	}
	return c.parent
}

// String renders the context stack outermost-first, e.g.
// "file: events.tsv > column: trial_type > row: 12".
func (c *Context) String() string {
	if c == nil {
		return ""
	}
	frames := c.frames()
	out := frames[0]
	for _, f := range frames[1:] {
		out += " > " + f
	}
	return out
}

func (c *Context) frames() []string {
	if c == nil {
		return nil
	}
	return append(c.parent.frames(), c.label)
}

// File returns a root Context labeled with a file name, the common
// starting point for a Tabular Input's diagnostic stack.
func File(name string) *Context {
	return (*Context)(nil).Push("file: " + name)
}

// Column pushes a sidecar/tabular column frame.
func (c *Context) Column(name string) *Context {
	return c.Push("column: " + name)
}

// Row pushes a row-index frame.
func (c *Context) Row(index int) *Context {
	return c.Push(fmt.Sprintf("row: %d", index))
}

// SidecarKey pushes a sidecar categorical-value key frame.
func (c *Context) SidecarKey(key string) *Context {
	return c.Push("sidecar key: " + key)
}

// HEDString pushes a frame identifying the HED string under evaluation.
func (c *Context) HEDString(s string) *Context {
	return c.Push("HED string: " + s)
}
