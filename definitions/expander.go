package definitions

import (
	"strings"

	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
)

// GetDefinition resolves a Def/Def-expand tag's extension ("name" or
// "name/value") against dict and returns the expanded definition name
// and a fresh body with its placeholder, if any, substituted.
func GetDefinition(dict *Dictionary, defTag *hed.Tag) (expandedName string, body *hed.Group, issues []issue.Issue) {
	raw := defTag.Extension()
	parts := strings.SplitN(raw, "/", 2)
	name := parts[0]
	value := ""
	if len(parts) > 1 {
		value = parts[1]
	}

	entry, ok := dict.Get(name)
	if !ok {
		return "", nil, []issue.Issue{issue.New(issue.KindDefUnmatched, "no definition named %q", name)}
	}

	if entry.PlaceholderArity == 1 {
		if value == "" {
			return "", nil, []issue.Issue{issue.New(issue.KindDefValueMissing, "definition %q requires a value", name)}
		}
		expanded := entry.Body.DeepCopy()
		for _, t := range expanded.AllTags() {
			if t.IsPlaceholder() {
				t.ReplacePlaceholder(value)
			}
		}
		return name + "/" + value, expanded, nil
	}

	if value != "" {
		return "", nil, []issue.Issue{issue.New(issue.KindDefValueExtra, "definition %q does not take a value but %q was supplied", name, value)}
	}
	return name, entry.Body.DeepCopy(), nil
}

// ExpandDefs replaces every bare "Def/name(/value)?" tag in str with
// the pair "(Def-expand/name(/value)?, <body-with-#-filled>)": the Def
// tag is flipped to Def-expand and re-parented as the first child of a
// new enclosing group holding the expanded body as its second child.
// Tags that fail to resolve against dict are left untouched and
// reported.
func ExpandDefs(str *hed.HEDString, dict *Dictionary) []issue.Issue {
	var issues []issue.Issue

	for _, found := range str.FindDefTags(true, hed.DefTagIncludeAll) {
		if _, already := found.DefExpandGroupOrTag.(*hed.Group); already {
			continue // already a Def-expand usage
		}

		_, body, getIssues := GetDefinition(dict, found.DefTag)
		if len(getIssues) > 0 {
			issues = append(issues, getIssues...)
			continue
		}

		newGroup := hed.NewGroup(found.DefTag.Span())
		newGroup.Append(found.DefTag)
		newGroup.Append(body)

		if err := found.DefTag.SetShortTag("Def-expand"); err != nil {
			issues = append(issues, issue.New(issue.KindDefExpandInvalid, "%v", err))
			continue
		}
		if err := found.EnclosingGroup.Replace(found.DefTag, newGroup); err != nil {
			issues = append(issues, issue.New(issue.KindDefExpandInvalid, "%v", err))
		}
	}

	return issues
}

// ShrinkDefs is the inverse of ExpandDefs: every
// "(Def-expand/name(/value)?, body)" group in str is replaced by a bare
// "Def/name(/value)?" tag. No validity check of the body is performed.
func ShrinkDefs(str *hed.HEDString) []issue.Issue {
	var issues []issue.Issue

	for _, found := range str.FindDefTags(true, hed.DefTagIncludeAll) {
		expandGroup, ok := found.DefExpandGroupOrTag.(*hed.Group)
		if !ok {
			continue // already a bare Def usage
		}

		if err := found.DefTag.SetShortTag("Def"); err != nil {
			issues = append(issues, issue.New(issue.KindDefExpandInvalid, "%v", err))
			continue
		}
		if err := found.EnclosingGroup.Replace(expandGroup, found.DefTag); err != nil {
			issues = append(issues, issue.New(issue.KindDefExpandInvalid, "%v", err))
		}
	}

	return issues
}

// RemoveDefinitions destructively removes every top-level
// "Definition/..." group from str.
func RemoveDefinitions(str *hed.HEDString) []issue.Issue {
	var issues []issue.Issue
	for _, found := range str.FindTopLevelTags([]string{"Definition"}, hed.IncludeGroupsEnclosing) {
		if err := str.Remove(found.Group); err != nil {
			issues = append(issues, issue.New(issue.KindDefExpandInvalid, "%v", err))
		}
	}
	return issues
}

// ExpandDefTags reports diagnostics for every Def/Def-expand usage in
// str without mutating it: DefUnmatched, DefValueMissing,
// DefValueExtra, and — if validateBody is true — DefExpandInvalid when
// an existing Def-expand group's body does not match the body its
// definition specifies after canonicalization.
func ExpandDefTags(str *hed.HEDString, dict *Dictionary, validateBody bool) []issue.Issue {
	var issues []issue.Issue

	for _, found := range str.FindDefTags(true, hed.DefTagIncludeAll) {
		raw := found.DefTag.Extension()
		parts := strings.SplitN(raw, "/", 2)
		name := parts[0]
		value := ""
		if len(parts) > 1 {
			value = parts[1]
		}

		entry, ok := dict.Get(name)
		if !ok {
			issues = append(issues, issue.New(issue.KindDefUnmatched, "no definition named %q", name))
			continue
		}
		if entry.PlaceholderArity == 1 && value == "" {
			issues = append(issues, issue.New(issue.KindDefValueMissing, "definition %q requires a value", name))
			continue
		}
		if entry.PlaceholderArity == 0 && value != "" {
			issues = append(issues, issue.New(issue.KindDefValueExtra, "definition %q does not take a value but %q was supplied", name, value))
			continue
		}

		if !validateBody {
			continue
		}
		expandGroup, isGroup := found.DefExpandGroupOrTag.(*hed.Group)
		if !isGroup {
			continue
		}
		bodies := expandGroup.Groups()
		if len(bodies) != 1 {
			issues = append(issues, issue.New(issue.KindDefExpandInvalid, "def-expand group for %q does not have exactly one body group", name))
			continue
		}

		expectedDigest := entry.Digest
		if entry.PlaceholderArity == 1 {
			expectedBody := entry.Body.DeepCopy()
			for _, t := range expectedBody.AllTags() {
				if t.IsPlaceholder() {
					t.ReplacePlaceholder(value)
				}
			}
			expectedDigest = digestOf(expectedBody)
		}
		if expectedDigest != digestOf(bodies[0]) {
			issues = append(issues, issue.New(issue.KindDefExpandInvalid, "def-expand body for %q does not match its definition", name))
		}
	}

	return issues
}
