package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/parser"
	"github.com/hed-standard/hed-python-sub005/schema"
)

// newMarkerSchema builds a small vocabulary covering the Onset/Offset/Def
// organizational tags, a value-taking Duration, and a few plain terms —
// enough for the Event Manager to read real Tag.Extension() values
// instead of falling back to tagKind's unresolved-text heuristic.
func newMarkerSchema() *schema.StaticSchema {
	s := schema.NewStaticSchema()
	s.AddNode("", "Onset", nil, "", "")
	s.AddNode("", "Offset", nil, "", "")
	s.AddNode("", "Def", nil, "", "")
	s.AddNode("", "Duration", map[string]string{"takesValue": "", "unitClass": "time"}, "time", "")
	s.AddNode("", "Black", nil, "", "")
	s.AddNode("", "Red", nil, "", "")
	s.AddNode("", "Blue", nil, "", "")
	s.AddNode("", "Green", nil, "", "")
	s.AddUnitClass("time", map[string]schema.UnitAttributes{"s": {Symbol: true}})
	return s
}

func mustRow(t *testing.T, s *schema.StaticSchema, index int, time float64, text string) Row {
	t.Helper()
	str, issues, err := parser.Parse(text, s, nil)
	if err != nil || len(issues) != 0 {
		t.Fatalf("parse %q failed: %v %v", text, err, issues)
	}
	return Row{Index: index, Time: time, Tree: str.Group}
}

// TestS6AnonymousDurationContext is the literal scenario from spec.md §8
// S6: an anonymous Duration/3.0 s interval opened on row 0 with body
// (Black) should appear in the Context of every row strictly inside
// [1.0, 4.0) and be absent once the interval has closed.
func TestS6AnonymousDurationContext(t *testing.T) {
	s := newMarkerSchema()
	rows := []Row{
		mustRow(t, s, 0, 1.0, "(Duration/3.0 s, (Black))"),
		mustRow(t, s, 1, 2.0, "Red"),
		mustRow(t, s, 2, 3.0, "Blue"),
		mustRow(t, s, 3, 5.0, "Green"),
	}

	result, issues := Process(rows, nil)
	require.Empty(t, issues)
	require.Len(t, result.Rows, 4)

	row0 := result.Rows[0]
	assert.Equal(t, "", row0.HED, "marker group should be removed")
	assert.Equal(t, "(Black)", row0.Base)
	assert.Equal(t, "", row0.Context, "interval starts here, should not see itself")

	row1 := result.Rows[1]
	assert.Equal(t, "Red", row1.HED)
	assert.Equal(t, "(Black)", row1.Context, "interval still open at t=2.0")

	row2 := result.Rows[2]
	assert.Equal(t, "Blue", row2.HED)
	assert.Equal(t, "(Black)", row2.Context, "interval still open at t=3.0")

	row3 := result.Rows[3]
	assert.Equal(t, "Green", row3.HED)
	assert.Equal(t, "", row3.Context, "interval closed by t=5.0 >= 4.0")
}

// TestS7UnmatchedOffset is the literal scenario from spec.md §8 S7: an
// Offset naming a definition with no active Onset is reported rather
// than silently ignored or treated as a crash.
func TestS7UnmatchedOffset(t *testing.T) {
	s := newMarkerSchema()
	rows := []Row{
		mustRow(t, s, 0, 1.0, "(Offset, Def/Blink)"),
	}

	_, issues := Process(rows, issue.File("events.tsv"))
	require.Len(t, issues, 1)
	assert.Equal(t, issue.KindUnmatchedOffset, issues[0].Kind)
}

// TestOnsetOffsetConservation checks spec.md §8 testable property 7: for
// every definition name, the number of Onset occurrences equals the
// number of Offset occurrences plus the number of intervals still open
// at the end of input.
func TestOnsetOffsetConservation(t *testing.T) {
	s := newMarkerSchema()
	rows := []Row{
		mustRow(t, s, 0, 1.0, "(Onset, Def/Blink)"),
		mustRow(t, s, 1, 2.0, "(Offset, Def/Blink)"),
		mustRow(t, s, 2, 3.0, "(Onset, Def/Wink)"),
	}

	result, issues := Process(rows, nil)
	require.Empty(t, issues)

	wantOnsets := map[string]int{"blink": 1, "wink": 1}
	wantOffsets := map[string]int{"blink": 1, "wink": 0}
	wantOpen := map[string]int{"blink": 0, "wink": 1}

	// EndRow is set on every event once Process returns — still-open
	// intervals are closed at the final row with no EndTime recorded, per
	// spec.md's end-of-input closure rule — so "closed by an explicit
	// Offset" (EndTime set) is what distinguishes gotOffsets from
	// gotOpen here, not EndRow's nilness.
	finalRow := rows[len(rows)-1].Index
	gotOnsets := map[string]int{}
	gotOffsets := map[string]int{}
	gotOpen := map[string]int{}
	for _, ev := range result.Events {
		gotOnsets[ev.Name]++
		require.NotNil(t, ev.EndRow, "%s: EndRow must be set at end of input", ev.Name)
		if ev.EndTime != nil {
			gotOffsets[ev.Name]++
		} else {
			gotOpen[ev.Name]++
			assert.Equal(t, finalRow, *ev.EndRow, "%s: still-open interval closes at the final row", ev.Name)
		}
	}

	for _, name := range []string{"blink", "wink"} {
		assert.Equal(t, wantOnsets[name], gotOnsets[name], "%s: onsets", name)
		assert.Equal(t, gotOffsets[name]+gotOpen[name], gotOnsets[name], "%s: onsets != offsets + still-open", name)
		assert.Equal(t, wantOffsets[name], gotOffsets[name], "%s: offsets", name)
		assert.Equal(t, wantOpen[name], gotOpen[name], "%s: still-open", name)
	}
}
