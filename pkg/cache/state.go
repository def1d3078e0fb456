package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redcap-tools/connector-redcap/pkg/table"
)

const (
	stateDirName      = ".incremental"
	baseFileName      = "base.csv"
	timestampFileName = ".last_download"
)

// State is the on-disk bookkeeping for incremental downloads, stored in a
// .incremental/ directory beside the output file: the accumulated base
// dataset plus the timestamp of the last successful download. Deleting the
// directory forces a full re-download.
type State struct {
	dir string
}

// StateFor returns the incremental State for an output file, creating the
// state directory if needed.
func StateFor(outputFile string) (*State, error) {
	dir := filepath.Join(filepath.Dir(outputFile), stateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &State{dir: dir}, nil
}

// BasePath returns the path of the accumulated base dataset.
func (s *State) BasePath() string {
	return filepath.Join(s.dir, baseFileName)
}

// Base loads the accumulated base dataset.
func (s *State) Base() (*table.Snapshot, error) {
	return LoadSnapshot(s.BasePath())
}

// WriteBase atomically replaces the accumulated base dataset.
func (s *State) WriteBase(snap *table.Snapshot) error {
	return ReplaceSnapshot(s.BasePath(), snap)
}

// WriteRawBase stores raw export bytes as the base dataset, used for the
// first full download where no merge is needed.
func (s *State) WriteRawBase(data []byte) error {
	return os.WriteFile(s.BasePath(), data, 0o644)
}

// LastDownload returns the timestamp of the last successful download, or a
// zero time if no download has happened yet.
func (s *State) LastDownload() (time.Time, error) {
	contents, err := os.ReadFile(filepath.Join(s.dir, timestampFileName))
	if os.IsNotExist(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, strings.TrimSpace(string(contents)))
}

// WriteLastDownload records the timestamp of a successful download.
func (s *State) WriteLastDownload(ts time.Time) error {
	return os.WriteFile(filepath.Join(s.dir, timestampFileName), []byte(ts.Format(time.RFC3339)), 0o644)
}
