package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redcap-tools/connector-redcap/pkg/config"
)

func mustSnapshot(t *testing.T, header []string, rows ...[]string) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(header, rows)
	require.NoError(t, err)
	return snap
}

func TestMergeReplacesMatchingKeysAndAppendsNew(t *testing.T) {
	require := require.New(t)
	fields := config.DefaultFields()

	base := mustSnapshot(t, []string{"record_id", "redcap_event_name", "v"},
		[]string{"1", "scr", "10"},
		[]string{"2", "scr", "20"},
	)
	inc := mustSnapshot(t, []string{"record_id", "redcap_event_name", "v"},
		[]string{"2", "scr", "99"},
		[]string{"3", "scr", "30"},
	)

	merged, err := Merge(base, inc, fields)
	require.NoError(err)
	require.Equal(3, merged.Len())
	// existing rows keep their position, replacements included
	require.Equal([]string{"1", "scr", "10"}, merged.Row(0))
	require.Equal([]string{"2", "scr", "99"}, merged.Row(1))
	require.Equal([]string{"3", "scr", "30"}, merged.Row(2))
}

func TestMergeAppendsNewColumnsWithEmptyFill(t *testing.T) {
	require := require.New(t)
	fields := config.DefaultFields()

	base := mustSnapshot(t, []string{"record_id", "redcap_event_name", "v"},
		[]string{"1", "scr", "10"},
	)
	inc := mustSnapshot(t, []string{"record_id", "redcap_event_name", "v", "w"},
		[]string{"2", "scr", "20", "new"},
	)

	merged, err := Merge(base, inc, fields)
	require.NoError(err)
	require.Equal([]string{"record_id", "redcap_event_name", "v", "w"}, merged.Header())
	require.Equal([]string{"1", "scr", "10", ""}, merged.Row(0))
	require.Equal([]string{"2", "scr", "20", "new"}, merged.Row(1))
}

func TestMergeRejectsDroppedColumns(t *testing.T) {
	require := require.New(t)
	fields := config.DefaultFields()

	base := mustSnapshot(t, []string{"record_id", "redcap_event_name", "v"},
		[]string{"1", "scr", "10"},
	)
	inc := mustSnapshot(t, []string{"record_id", "redcap_event_name"},
		[]string{"1", "scr"},
	)

	_, err := Merge(base, inc, fields)
	require.Error(err)
	require.Contains(err.Error(), "missing columns")
	require.Contains(err.Error(), "v")
}
