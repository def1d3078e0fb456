package table

import (
	"fmt"
	"strings"

	"github.com/redcap-tools/connector-redcap/pkg/config"
)

// Merge folds an incremental export into an accumulated base. Rows in inc
// replace base rows with the same RecordKey; new keys append in inc order.
// Columns that appear only in inc are added to the end of the header, with
// base rows filled with "". A column present in base but missing from inc is
// an error: silently dropping it could lose data that was already synced.
func Merge(base, inc *Snapshot, fields config.Fields) (*Snapshot, error) {
	var dropped []string
	for _, name := range base.header {
		if inc.Column(name) < 0 {
			dropped = append(dropped, name)
		}
	}
	if len(dropped) > 0 {
		return nil, fmt.Errorf("incremental download is missing columns present in base: %s", strings.Join(dropped, ", "))
	}

	header := make([]string, len(base.header))
	copy(header, base.header)
	for _, name := range inc.header {
		if base.Column(name) < 0 {
			header = append(header, name)
		}
	}

	widen := func(s *Snapshot, i int) []string {
		row := make([]string, len(header))
		for j, name := range header {
			if col := s.Column(name); col >= 0 {
				row[j] = s.rows[i][col]
			}
		}
		return row
	}

	incIndex, err := inc.KeyIndex(fields)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, base.Len()+inc.Len())
	seen := make(map[RecordKey]bool, inc.Len())
	for i := range base.rows {
		k := base.Key(i, fields)
		if j, ok := incIndex[k]; ok {
			rows = append(rows, widen(inc, j))
			seen[k] = true
			continue
		}
		rows = append(rows, widen(base, i))
	}
	for i := range inc.rows {
		if seen[inc.Key(i, fields)] {
			continue
		}
		rows = append(rows, widen(inc, i))
	}
	return NewSnapshot(header, rows)
}
