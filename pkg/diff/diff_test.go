package diff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redcap-tools/connector-redcap/pkg/config"
	"github.com/redcap-tools/connector-redcap/pkg/table"
)

func snapshot(t *testing.T, header []string, rows ...[]string) *table.Snapshot {
	t.Helper()
	snap, err := table.NewSnapshot(header, rows)
	require.NoError(t, err)
	return snap
}

var header = []string{"record_id", "redcap_event_name", "v", "w"}

func TestDiffAgainstItselfIsEmpty(t *testing.T) {
	require := require.New(t)

	snap := snapshot(t, header,
		[]string{"1", "scr", "10", "x"},
		[]string{"2", "scr", "20", "y"},
	)
	changes, newBaseline, err := Diff(snap, snap, config.DefaultFields())
	require.NoError(err)
	require.True(changes.Empty())
	require.Equal(0, changes.Len())
	require.Same(snap, newBaseline)
}

func TestDiffSingleChangedCell(t *testing.T) {
	require := require.New(t)

	baseline := snapshot(t, header,
		[]string{"1", "scr", "10", "x"},
		[]string{"2", "scr", "20", "y"},
	)
	current := snapshot(t, header,
		[]string{"1", "scr", "10", "x"},
		[]string{"2", "scr", "99", "y"},
	)

	changes, newBaseline, err := Diff(baseline, current, config.DefaultFields())
	require.NoError(err)
	require.Same(current, newBaseline)
	require.Equal(1, changes.Len())
	require.Equal([]string{"record_id", "redcap_event_name", "v"}, changes.Header())

	records := changes.Records()
	require.Len(records, 1)
	require.Equal(map[string]string{
		"record_id":         "2",
		"redcap_event_name": "scr",
		"v":                 "99",
	}, records[0])
}

func TestDiffDistinguishesEmptyFromUnchanged(t *testing.T) {
	require := require.New(t)

	baseline := snapshot(t, header, []string{"1", "scr", "10", "x"})
	current := snapshot(t, header, []string{"1", "scr", "", "x"})

	changes, _, err := Diff(baseline, current, config.DefaultFields())
	require.NoError(err)

	records := changes.Records()
	require.Len(records, 1)
	// v changed to the empty string and is present; w is unchanged and absent
	v, ok := records[0]["v"]
	require.True(ok)
	require.Equal("", v)
	_, ok = records[0]["w"]
	require.False(ok)
}

func TestDiffAlignsByKeyNotPosition(t *testing.T) {
	require := require.New(t)

	baseline := snapshot(t, header,
		[]string{"1", "scr", "10", "x"},
		[]string{"2", "scr", "20", "y"},
	)
	reordered := snapshot(t, header,
		[]string{"2", "scr", "20", "y"},
		[]string{"1", "scr", "10", "x"},
	)

	changes, _, err := Diff(baseline, reordered, config.DefaultFields())
	require.NoError(err)
	require.True(changes.Empty())
}

func TestDiffShapeMismatch(t *testing.T) {
	require := require.New(t)
	fields := config.DefaultFields()

	base := snapshot(t, header, []string{"1", "scr", "10", "x"})

	extraColumn := snapshot(t, []string{"record_id", "redcap_event_name", "v", "w", "z"},
		[]string{"1", "scr", "10", "x", "q"})
	_, _, err := Diff(base, extraColumn, fields)
	var shape *ShapeMismatchError
	require.ErrorAs(err, &shape)

	renamed := snapshot(t, []string{"record_id", "redcap_event_name", "v", "other"},
		[]string{"1", "scr", "10", "x"})
	_, _, err = Diff(base, renamed, fields)
	require.ErrorAs(err, &shape)

	moreRows := snapshot(t, header,
		[]string{"1", "scr", "10", "x"},
		[]string{"2", "scr", "20", "y"})
	_, _, err = Diff(base, moreRows, fields)
	require.ErrorAs(err, &shape)
}

func TestDiffAlignmentError(t *testing.T) {
	require := require.New(t)

	baseline := snapshot(t, header,
		[]string{"1", "scr", "10", "x"},
		[]string{"2", "scr", "20", "y"},
	)
	// same shape, but record 3 replaces record 2
	current := snapshot(t, header,
		[]string{"1", "scr", "10", "x"},
		[]string{"3", "scr", "20", "y"},
	)

	_, _, err := Diff(baseline, current, config.DefaultFields())
	var alignment *AlignmentError
	require.ErrorAs(err, &alignment)
	require.Equal("3", alignment.Key.Record)
}

func TestDiffDuplicateKey(t *testing.T) {
	require := require.New(t)

	dup := snapshot(t, header,
		[]string{"1", "scr", "10", "x"},
		[]string{"1", "scr", "20", "y"},
	)
	_, _, err := Diff(dup, dup, config.DefaultFields())
	var dupErr *table.DuplicateKeyError
	require.ErrorAs(err, &dupErr)
}

func TestDiffSparseHeaderAndSnapshot(t *testing.T) {
	require := require.New(t)

	baseline := snapshot(t, header,
		[]string{"1", "scr", "10", "x"},
		[]string{"2", "scr", "20", "y"},
		[]string{"3", "scr", "30", "z"},
	)
	current := snapshot(t, header,
		[]string{"1", "scr", "11", "x"},
		[]string{"2", "scr", "20", "q"},
		[]string{"3", "scr", "30", "z"},
	)

	changes, _, err := Diff(baseline, current, config.DefaultFields())
	require.NoError(err)
	// only changed columns join the sparse schema, in source-header order
	require.Equal([]string{"record_id", "redcap_event_name", "v", "w"}, changes.Header())
	require.Equal(2, changes.Len())

	flat, err := changes.Snapshot()
	require.NoError(err)
	require.Equal(2, flat.Len())
	require.Equal([]string{"1", "scr", "11", ""}, flat.Row(0))
	require.Equal([]string{"2", "scr", "", "q"}, flat.Row(1))
}

func TestDiffScenario(t *testing.T) {
	require := require.New(t)

	baseline := snapshot(t, []string{"id", "redcap_event_name", "v"},
		[]string{"1", "scr", "10"},
		[]string{"2", "scr", "20"},
	)
	current := snapshot(t, []string{"id", "redcap_event_name", "v"},
		[]string{"1", "scr", "10"},
		[]string{"2", "scr", "99"},
	)

	changes, _, err := Diff(baseline, current, config.DefaultFields())
	require.NoError(err)
	require.Equal(1, changes.Len())
	require.Equal([]map[string]string{{
		"id":                "2",
		"redcap_event_name": "scr",
		"v":                 "99",
	}}, changes.Records())
}
