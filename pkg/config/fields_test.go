package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadFields(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(os.WriteFile(path, []byte("event: visit_name\n"), 0o644))

	fields, err := ReadFields(path)
	require.NoError(err)
	require.Equal("visit_name", fields.Event)
	// unset names keep their defaults
	require.Equal("redcap_repeat_instrument", fields.Instrument)
	require.Equal("redcap_repeat_instance", fields.Instance)
}

func TestReadFieldsMissingFile(t *testing.T) {
	_, err := ReadFields(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
