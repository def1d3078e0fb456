package table

import (
	"fmt"
	"strings"

	"github.com/redcap-tools/connector-redcap/pkg/config"
)

// Snapshot is one state of a tabular dataset: an ordered header plus rows
// aligned positionally to it. Transformations never modify a Snapshot in
// place; they build new ones.
type Snapshot struct {
	header []string
	rows   [][]string
}

// NewSnapshot builds a Snapshot, checking that every row has exactly one
// value per header column.
func NewSnapshot(header []string, rows [][]string) (*Snapshot, error) {
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d values, header has %d columns", i, len(row), len(header))
		}
	}
	return &Snapshot{header: header, rows: rows}, nil
}

// Header returns the ordered column names.
func (s *Snapshot) Header() []string {
	return s.header
}

// Len returns the number of rows.
func (s *Snapshot) Len() int {
	return len(s.rows)
}

// Row returns the values of row i, aligned to the header.
func (s *Snapshot) Row(i int) []string {
	return s.rows[i]
}

// Column returns the index of the named column, or -1 if absent.
func (s *Snapshot) Column(name string) int {
	for i, h := range s.header {
		if h == name {
			return i
		}
	}
	return -1
}

// Value returns the value of the named column in row i, or "" if the column
// is absent.
func (s *Snapshot) Value(i int, name string) string {
	col := s.Column(name)
	if col < 0 {
		return ""
	}
	return s.rows[i][col]
}

// RecordKey identifies one record/event/instance combination. Within a
// Snapshot no two rows share a RecordKey; it is the alignment key for
// diffing and the partition key for splitting.
type RecordKey struct {
	Record     string
	Event      string
	Instrument string
	Instance   string
}

func (k RecordKey) String() string {
	parts := []string{k.Record, k.Event}
	if k.Instrument != "" || k.Instance != "" {
		parts = append(parts, k.Instrument, k.Instance)
	}
	return strings.Join(parts, "/")
}

// DuplicateKeyError reports two rows sharing a RecordKey.
type DuplicateKeyError struct {
	Key RecordKey
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate record key %q", e.Key)
}

// Key derives the RecordKey of row i. The record identifier is the first
// column; the structural components come from whichever of the reserved
// columns are present.
func (s *Snapshot) Key(i int, fields config.Fields) RecordKey {
	row := s.rows[i]
	k := RecordKey{Record: row[0]}
	if col := s.Column(fields.Event); col >= 0 {
		k.Event = row[col]
	}
	if col := s.Column(fields.Instrument); col >= 0 {
		k.Instrument = row[col]
	}
	if col := s.Column(fields.Instance); col >= 0 {
		k.Instance = row[col]
	}
	return k
}

// KeyFields returns the names of the key columns present in the header, in
// header order: the record identifier plus any reserved structural columns.
func (s *Snapshot) KeyFields(fields config.Fields) []string {
	out := []string{s.header[0]}
	for _, name := range []string{fields.Event, fields.Instrument, fields.Instance} {
		if s.Column(name) > 0 {
			out = append(out, name)
		}
	}
	return out
}

// KeyIndex maps each RecordKey in the Snapshot to its row index. Fails with
// DuplicateKeyError when the uniqueness invariant does not hold.
func (s *Snapshot) KeyIndex(fields config.Fields) (map[RecordKey]int, error) {
	index := make(map[RecordKey]int, len(s.rows))
	for i := range s.rows {
		k := s.Key(i, fields)
		if _, ok := index[k]; ok {
			return nil, &DuplicateKeyError{Key: k}
		}
		index[k] = i
	}
	return index, nil
}
