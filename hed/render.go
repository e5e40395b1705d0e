package hed

import "strings"

// RenderMode selects which of a Tag's forms Render uses.
type RenderMode int

const (
	// RenderShort renders each tag as its short name plus extension.
	RenderShort RenderMode = iota
	// RenderLong renders each tag as its full schema path plus extension.
	RenderLong
	// RenderOriginal renders each tag as its original source text.
	RenderOriginal
)

// Transformer overrides the rendered text of a single Tag; Render falls
// back to mode when it returns "".
type Transformer func(t *Tag) string

// Render serializes g to its canonical textual form: "(" "," ")" around
// nested groups, no wrapping parens around g itself (so a HED String's
// Render never adds an outer "(...)"). transform, if non-nil, is
// consulted for every tag before mode is applied.
func (g *Group) Render(mode RenderMode, transform Transformer) string {
	parts := make([]string, 0, len(g.children))
	for _, c := range g.children {
		switch v := c.(type) {
		case *Tag:
			parts = append(parts, renderTag(v, mode, transform))
		case *Group:
			parts = append(parts, "("+v.Render(mode, transform)+")")
		}
	}
	return strings.Join(parts, ", ")
}

func renderTag(t *Tag, mode RenderMode, transform Transformer) string {
	if transform != nil {
		if out := transform(t); out != "" {
			return out
		}
	}
	switch mode {
	case RenderLong:
		if long := t.LongTag(); long != "" {
			return long
		}
		return t.OrgTag()
	case RenderOriginal:
		return t.OrgTag()
	default:
		if short := t.ShortTag(); short != "" {
			return short
		}
		return t.OrgTag()
	}
}
