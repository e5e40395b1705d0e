package hed

import (
	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/schema"
)

// HEDString is the top-level Group produced by parsing one HED string:
// a Group like any other, plus a weak reference to the schema and
// definition dictionary used at parse time, so later passes (expansion,
// search) can re-resolve tags or look up definitions without the
// caller re-threading them through every call.
type HEDString struct {
	*Group
	schema schema.Source
	defs   DefinitionLookup
}

// NewHEDString returns an empty HED String rooted at span, carrying src
// and defs for later re-resolution.
func NewHEDString(span issue.Span, src schema.Source, defs DefinitionLookup) *HEDString {
	return &HEDString{Group: NewGroup(span), schema: src, defs: defs}
}

// Schema returns the schema this string was parsed against, or nil.
func (h *HEDString) Schema() schema.Source { return h.schema }

// Definitions returns the definition dictionary in effect when this
// string was parsed, or nil.
func (h *HEDString) Definitions() DefinitionLookup { return h.defs }

// DeepCopy returns a new HEDString whose Group tree is an independent
// copy, sharing the same schema and definition dictionary references.
func (h *HEDString) DeepCopy() *HEDString {
	return &HEDString{Group: h.Group.DeepCopy(), schema: h.schema, defs: h.defs}
}
