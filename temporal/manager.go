package temporal

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hed-standard/hed-python-sub005/hed"
	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/logger"
)

// manager holds the running state of the Onset/Offset/Inset/Duration
// state machine: one open Event per active definition name, plus every
// still-pending auto-closing Duration interval whose end row is not yet
// known.
type manager struct {
	active   map[string]*Event // keyed by case-folded anchor name ("" bucket holds anonymous intervals by a unique key below)
	anonSeq  int
	done     []*Event
	lastResult RowResult
}

// closeAtEnd closes every still-Active interval at end of input: its
// EndRow is set to the final row index with no EndTime recorded, per
// spec.md's "all still-Active intervals are closed at the final row
// with no end time recorded" (mirroring the Python event manager's
// `item.set_end(len(self.onsets), None)`).
func (m *manager) closeAtEnd(finalRow int) {
	for _, ev := range m.active {
		if ev.EndRow == nil {
			endRow := finalRow
			ev.EndRow = &endRow
		}
	}
}

func (m *manager) allEvents() []Event {
	out := make([]Event, 0, len(m.done)+len(m.active))
	for _, e := range m.done {
		out = append(out, *e)
	}
	for _, e := range m.active {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartRow < out[j].StartRow })
	return out
}

type markerKind int

const (
	markerOnset markerKind = iota
	markerOffset
	markerInset
	markerDuration
)

type markerOccurrence struct {
	kind  markerKind
	tag   *hed.Tag
	group *hed.Group
}

// tagKind returns a resolved tag's short base tag, or — for an
// unresolved tag — the text before its first '/', both case-folded.
// Temporal markers are schema tags in real HED vocabularies, but this
// fallback keeps the manager usable against an unresolved parse tree
// the way the rest of this module tolerates a missing schema.
func tagKind(t *hed.Tag) string {
	if base := t.ShortBaseTag(); base != "" {
		return fold(base)
	}
	raw := t.OrgTag()
	if idx := strings.IndexByte(raw, '/'); idx != -1 {
		raw = raw[:idx]
	}
	return fold(raw)
}

func findMarkers(root *hed.Group) []markerOccurrence {
	var out []markerOccurrence
	if root == nil {
		return out
	}
	for _, c := range root.Children() {
		g, ok := c.(*hed.Group)
		if !ok {
			continue
		}
		for _, gc := range g.Children() {
			tag, ok := gc.(*hed.Tag)
			if !ok {
				continue
			}
			switch tagKind(tag) {
			case "onset":
				out = append(out, markerOccurrence{markerOnset, tag, g})
			case "offset":
				out = append(out, markerOccurrence{markerOffset, tag, g})
			case "inset":
				out = append(out, markerOccurrence{markerInset, tag, g})
			case "duration":
				out = append(out, markerOccurrence{markerDuration, tag, g})
			}
		}
	}
	return out
}

// anchorOf identifies the Def/Def-expand reference sharing occ's group,
// returning its case-folded name and the body items to carry into
// context (everything in the group besides the marker tag itself).
func anchorOf(occ markerOccurrence) (name string, body []hed.Item) {
	for _, c := range occ.group.Children() {
		if c == hed.Item(occ.tag) {
			continue
		}
		body = append(body, c)
		switch v := c.(type) {
		case *hed.Tag:
			if tagKind(v) == "def" {
				name = fold(baseDefName(v.Extension()))
			}
		case *hed.Group:
			if first := firstTag(v); first != nil && tagKind(first) == "def-expand" {
				name = fold(baseDefName(first.Extension()))
			}
		}
	}
	return name, body
}

func firstTag(g *hed.Group) *hed.Tag {
	children := g.Children()
	if len(children) == 0 {
		return nil
	}
	t, _ := children[0].(*hed.Tag)
	return t
}

func baseDefName(extension string) string {
	if idx := strings.IndexByte(extension, '/'); idx != -1 {
		return extension[:idx]
	}
	return extension
}

// pendingAuto is a Duration-originated interval whose EndTime is known
// immediately but whose EndRow must wait for the first row whose onset
// reaches it.
type pendingAuto struct {
	event *Event
	key   string
}

func (m *manager) processRow(row Row, ctx *issue.Context) []issue.Issue {
	var issues []issue.Issue
	rowCtx := ctx.Row(row.Index)

	// Close any open interval (named or anonymous) whose computed end
	// time has been reached as of this row, before this row's context is
	// computed — the closing row itself does not see the interval as
	// active (spec.md §8 S6).
	for key, ev := range m.active {
		if ev.EndTime != nil && row.Time >= *ev.EndTime && ev.EndRow == nil {
			endRow := row.Index
			ev.EndRow = &endRow
			m.done = append(m.done, ev)
			delete(m.active, key)
		}
	}

	markers := findMarkers(row.Tree)
	markerGroups := make(map[*hed.Group]bool, len(markers))
	for _, occ := range markers {
		markerGroups[occ.group] = true
	}

	var base []string
	startedHere := map[string]bool{}

	for _, occ := range markers {
		name, body := anchorOf(occ)
		switch occ.kind {
		case markerOnset:
			if prior, active := m.activeFor(name); active {
				endRow := row.Index
				prior.EndRow = &endRow
				endTime := row.Time
				prior.EndTime = &endTime
				m.done = append(m.done, prior)
				m.deactivate(name)
			}
			ev := &Event{Name: name, Body: body, StartRow: row.Index, StartTime: row.Time}
			m.activate(name, ev)
			startedHere[activeKey(name, ev)] = true

		case markerOffset:
			prior, active := m.activeFor(name)
			if !active {
				logger.Warn("row %d: Offset for %q has no active Onset", row.Index, name)
				issues = append(issues, issue.New(issue.KindUnmatchedOffset,
					"row %d: Offset for %q with no active Onset", row.Index, name).WithContext(rowCtx))
				continue
			}
			endRow := row.Index
			prior.EndRow = &endRow
			endTime := row.Time
			prior.EndTime = &endTime
			m.done = append(m.done, prior)
			m.deactivate(name)

		case markerInset:
			// Inset stays within Active; a stray Inset with nothing
			// currently active is tolerated since spec.md names no
			// dedicated diagnostic for it.

		case markerDuration:
			seconds, parseErr := parseDuration(occ.tag.Extension())
			if parseErr != nil {
				issues = append(issues, issue.New(issue.KindDurationUnitInvalid,
					"row %d: %v", row.Index, parseErr).WithContext(rowCtx))
				continue
			}
			if seconds < 0 {
				issues = append(issues, issue.New(issue.KindDurationNegative,
					"row %d: duration %v s is negative", row.Index, seconds).WithContext(rowCtx))
				continue
			}
			endTime := row.Time + seconds
			ev := &Event{Name: name, Body: body, StartRow: row.Index, StartTime: row.Time, EndTime: &endTime}
			key := name
			if key == "" {
				m.anonSeq++
				key = anonKey(m.anonSeq)
			}
			m.active[key] = ev
			startedHere[key] = true
			base = append(base, renderItems(body))
		}
	}

	hedText := renderWithout(row.Tree, markerGroups)
	context := m.renderContext(startedHere)

	m.lastResult = RowResult{Index: row.Index, HED: hedText, Base: strings.Join(base, ", "), Context: context}
	return issues
}

func (m *manager) activeFor(name string) (*Event, bool) {
	ev, ok := m.active[name]
	return ev, ok
}

func (m *manager) activate(name string, ev *Event) {
	key := name
	if key == "" {
		m.anonSeq++
		key = anonKey(m.anonSeq)
	}
	m.active[key] = ev
}

func (m *manager) deactivate(name string) {
	delete(m.active, name)
}

func activeKey(name string, ev *Event) string {
	if name != "" {
		return name
	}
	return ev.Name
}

func anonKey(seq int) string {
	return "~anon~" + strconv.Itoa(seq)
}

// renderContext renders the union of bodies of every still-open
// interval that did not start on the row just processed.
func (m *manager) renderContext(startedHere map[string]bool) string {
	var parts []string
	for key, ev := range m.active {
		if startedHere[key] {
			continue
		}
		parts = append(parts, renderItems(ev.Body))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func renderItems(items []hed.Item) string {
	g := hed.NewGroup(issue.Span{})
	for _, it := range items {
		g.Append(it)
	}
	return g.Render(hed.RenderShort, nil)
}

func renderWithout(root *hed.Group, exclude map[*hed.Group]bool) string {
	if root == nil {
		return ""
	}
	g := hed.NewGroup(issue.Span{})
	for _, c := range root.Children() {
		if sub, ok := c.(*hed.Group); ok && exclude[sub] {
			continue
		}
		g.Append(c)
	}
	return g.Render(hed.RenderShort, nil)
}

// parseDuration parses a Duration tag's extension, "<number> <unit>",
// into a count of seconds.
func parseDuration(extension string) (float64, error) {
	fields := strings.Fields(extension)
	if len(fields) != 2 {
		return 0, errInvalidDuration(extension)
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, errInvalidDuration(extension)
	}
	mult, ok := secondsPerUnit[fold(fields[1])]
	if !ok {
		return 0, errInvalidDuration(extension)
	}
	return n * mult, nil
}

type durationError struct{ extension string }

func (e durationError) Error() string {
	return "invalid Duration extension " + strconv.Quote(e.extension)
}

func errInvalidDuration(extension string) error { return durationError{extension} }
