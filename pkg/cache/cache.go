package cache

import (
	"os"
	"path/filepath"

	"github.com/redcap-tools/connector-redcap/pkg/table"
)

// The cache holds the last state known to be in sync between the local files
// and the remote project. It is always replaced as a whole artifact: a run
// either finishes and swaps the new state in, or fails and leaves the
// previous state untouched.

// LoadSnapshot reads a cached Snapshot from path.
func LoadSnapshot(path string) (*table.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return table.ReadCSV(f)
}

// ReplaceSnapshot atomically replaces the artifact at path with snap. The
// new contents land in a temp file in the same directory and are renamed
// into place, so readers never observe a partial write.
func ReplaceSnapshot(path string, snap *table.Snapshot) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := snap.WriteCSV(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
