package definitions_test

import (
	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/schema"
)

func span(start, end int) issue.Span { return issue.Span{Start: start, End: end} }

// newDefSchema builds a small vocabulary covering the Definition/Def/
// Def-expand organizational tags plus one value-taking tag (Duration)
// and one plain extension-allowed tag (Azure), enough to exercise the
// Definition Dictionary's validation rules.
func newDefSchema() *schema.StaticSchema {
	s := schema.NewStaticSchema()
	s.AddNode("", "Property/Organizational-property/Definition", nil, "", "")
	s.AddNode("", "Property/Organizational-property/Def", nil, "", "")
	s.AddNode("", "Property/Organizational-property/Def-expand", nil, "", "")
	s.AddNode("", "Property/Sensory-property/Sensory-attribute/Visual-attribute/Color/CSS-color/Azure",
		map[string]string{"extensionAllowed": ""}, "", "")
	s.AddNode("", "Property/Data-property/Data-value/Spatiotemporal-value/Temporal-value/Duration",
		map[string]string{"takesValue": "", "unitClass": "time"}, "time", "")
	s.AddNode("", "Property/Agent-property/Agent-trait/Age",
		map[string]string{"takesValue": ""}, "", "")
	s.AddNode("", "Property/Organizational-property/Required-tag",
		map[string]string{"required": ""}, "", "")
	s.AddUnitClass("time", map[string]schema.UnitAttributes{
		"s": {Symbol: true},
	})
	return s
}

func mustTag(s schema.Source, text string) *hed.Tag {
	tag, err := hed.NewTag(text, span(0, len(text)), s, nil)
	if err != nil {
		panic(err)
	}
	return tag
}

// defString builds "(Definition/<extension>, (<body...>))" — the shape
// CheckForDefinitions scans for: a top-level group anchored by a single
// Definition tag, holding exactly one body group.
func defString(s schema.Source, extension string, body ...*hed.Tag) *hed.HEDString {
	root := hed.NewHEDString(span(0, 100), s, nil)
	outer := hed.NewGroup(span(0, 100))
	outer.Append(mustTag(s, "Definition/"+extension))
	bodyGroup := hed.NewGroup(span(0, 100))
	for _, t := range body {
		bodyGroup.Append(t)
	}
	outer.Append(bodyGroup)
	root.Append(outer)
	return root
}

// hedStringWithBareDefinition builds "(Definition/<extension>)" — a
// Definition anchor with no body group at all.
func hedStringWithBareDefinition(s schema.Source, extension string) *hed.HEDString {
	root := hed.NewHEDString(span(0, 100), s, nil)
	outer := hed.NewGroup(span(0, 100))
	outer.Append(mustTag(s, "Definition/"+extension))
	root.Append(outer)
	return root
}

// hedStringWithTwoDefinitions builds two top-level "Definition/Waving"
// groups with different bodies, to exercise duplicate-name handling.
func hedStringWithTwoDefinitions(s schema.Source) *hed.HEDString {
	root := hed.NewHEDString(span(0, 200), s, nil)

	first := hed.NewGroup(span(0, 100))
	first.Append(mustTag(s, "Definition/Waving"))
	firstBody := hed.NewGroup(span(0, 100))
	firstBody.Append(mustTag(s, "Azure/blue"))
	first.Append(firstBody)

	second := hed.NewGroup(span(100, 200))
	second.Append(mustTag(s, "Definition/Waving"))
	secondBody := hed.NewGroup(span(100, 200))
	secondBody.Append(mustTag(s, "Azure/red"))
	second.Append(secondBody)

	root.Append(first)
	root.Append(second)
	return root
}
