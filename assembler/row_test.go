package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed-standard/hed-python-sub005/issue"
	"github.com/hed-standard/hed-python-sub005/sidecar"
)

func newFinalizedMapper(t *testing.T, sidecarJSON string, known []string) *sidecar.Mapper {
	t.Helper()
	mapper := sidecar.NewMapper(known)
	if sidecarJSON != "" {
		sc, issues := sidecar.LoadSidecar([]byte(sidecarJSON), nil, nil)
		require.Empty(t, issues, "LoadSidecar issues")
		mapper.SetSidecar(sc)
	}
	require.Empty(t, mapper.Finalize(), "Finalize issues")
	return mapper
}

// TestS5ColumnReference is the literal scenario from spec.md §8 S5: an
// empty referenced column collapses its enclosing group away entirely.
func TestS5ColumnReference(t *testing.T) {
	raw := `{
		"column2": {"HED": {"go": "Red"}},
		"column3": {"HED": {"stop": "Blue"}},
		"column4": {"HED": {"stop": "Green"}}
	}`
	mapper := newFinalizedMapper(t, raw, []string{"HED", "column2", "column3", "column4"})

	a := NewAssembler(mapper, nil, nil)
	cells := map[string]string{
		"HED":     "({column2}, ({column3}, {column4})), Event",
		"column2": "go",
		"column3": "n/a",
		"column4": "n/a",
	}
	row, issues := a.AssembleRow(0, cells, nil)
	require.Empty(t, issues)
	assert.Equal(t, "(Red), Event", row.HED)
}

func TestCircularColumnRef(t *testing.T) {
	mapper := sidecar.NewMapper([]string{"a", "b"})
	mapper.SetTagColumns("a", "b")
	require.Empty(t, mapper.Finalize())
	a := NewAssembler(mapper, nil, nil)

	_, issues := a.AssembleRow(0, map[string]string{"a": "{b}", "b": "{a}"}, nil)
	found := false
	for _, is := range issues {
		if is.Kind == issue.KindCircularColumnRef {
			found = true
		}
	}
	assert.True(t, found, "issues = %v, want a CircularColumnRef", issues)
}

func TestUnknownColumnRef(t *testing.T) {
	mapper := sidecar.NewMapper([]string{"a"})
	mapper.SetTagColumns("a")
	require.Empty(t, mapper.Finalize())
	a := NewAssembler(mapper, nil, nil)

	_, issues := a.AssembleRow(0, map[string]string{"a": "{nope}"}, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, issue.KindUnknownColumnRef, issues[0].Kind)
}

func TestOnsetDurationParsed(t *testing.T) {
	mapper := newFinalizedMapper(t, "", []string{"onset", "duration", "HED"})
	a := NewAssembler(mapper, nil, nil)

	row, issues := a.AssembleRow(0, map[string]string{"onset": "1.5", "duration": "0.25", "HED": "Red"}, nil)
	require.Empty(t, issues)
	require.NotNil(t, row.Onset)
	assert.Equal(t, 1.5, *row.Onset)
	require.NotNil(t, row.Duration)
	assert.Equal(t, 0.25, *row.Duration)
	assert.Equal(t, "Red", row.HED)
}

func TestOnsetNotNumeric(t *testing.T) {
	mapper := newFinalizedMapper(t, "", []string{"onset", "HED"})
	a := NewAssembler(mapper, nil, nil)

	row, issues := a.AssembleRow(0, map[string]string{"onset": "soon", "HED": "Red"}, nil)
	assert.Nil(t, row.Onset)
	require.Len(t, issues, 1)
	assert.Equal(t, issue.KindWrongHEDDataType, issues[0].Kind)
}

func TestDurationNegative(t *testing.T) {
	mapper := newFinalizedMapper(t, "", []string{"duration", "HED"})
	a := NewAssembler(mapper, nil, nil)

	_, issues := a.AssembleRow(0, map[string]string{"duration": "-1", "HED": "Red"}, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, issue.KindDurationNegative, issues[0].Kind)
}

func TestAssembleTabularAndOnsetOrder(t *testing.T) {
	mapper := newFinalizedMapper(t, "", []string{"onset", "HED"})
	a := NewAssembler(mapper, nil, nil)

	input := &TabularInput{
		Name:   "events.tsv",
		Header: []string{"onset", "HED"},
		Rows: [][]string{
			{"1.0", "Red"},
			{"0.5", "Blue"},
		},
	}
	rows, issues := AssembleTabular(a, input, nil)
	require.Len(t, rows, 2)
	found := false
	for _, is := range issues {
		if is.Kind == issue.KindOnsetsNotOrdered {
			found = true
		}
	}
	assert.True(t, found, "issues = %v, want an OnsetsNotOrdered", issues)

	sorted := SortByOnset(rows)
	require.Len(t, sorted, 2)
	assert.Equal(t, "Blue", sorted[0].HED)
	assert.Equal(t, "Red", sorted[1].HED)
}

func TestWriteAssembledTSV(t *testing.T) {
	rows := []Row{
		{Index: 0, Onset: floatPtr(0), HED: "Red", Attributes: map[string]string{"response_time": "1.2"}},
		{Index: 1, Onset: floatPtr(1), HED: "Blue", Attributes: map[string]string{}},
	}
	var buf strings.Builder
	require.NoError(t, WriteAssembledTSV(&buf, rows))
	out := buf.String()
	assert.Contains(t, out, "response_time")
	assert.Contains(t, out, "n/a")
}

func floatPtr(v float64) *float64 { return &v }
