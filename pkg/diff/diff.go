package diff

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/redcap-tools/connector-redcap/pkg/config"
	"github.com/redcap-tools/connector-redcap/pkg/table"
)

// ShapeMismatchError reports baseline and current Snapshots that disagree on
// header or row count. The diff never runs on mismatched shapes; row
// insertion and deletion are structural changes, not value updates.
type ShapeMismatchError struct {
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	return "snapshot shapes differ: " + e.Reason
}

// AlignmentError reports a RecordKey present in one Snapshot but not the
// other.
type AlignmentError struct {
	Key table.RecordKey
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("record key %q present in only one snapshot", e.Key)
}

// Diff computes the minimal set of cell changes that transform baseline into
// current. Rows are aligned by RecordKey, so the same rows may appear
// reordered between the two Snapshots. The returned Snapshot is current,
// handed back as the baseline the caller should persist for the next run;
// the engine itself keeps no state.
func Diff(baseline, current *table.Snapshot, fields config.Fields) (*ChangeSet, *table.Snapshot, error) {
	if err := checkShape(baseline, current); err != nil {
		return nil, nil, err
	}

	baseIndex, err := baseline.KeyIndex(fields)
	if err != nil {
		return nil, nil, err
	}

	keyFields := current.KeyFields(fields)
	keySet := make(map[string]bool, len(keyFields))
	for _, name := range keyFields {
		keySet[name] = true
	}

	header := current.Header()
	changedCols := make([]bool, len(header))
	type rowChange struct {
		keyVals []string
		changed map[string]string
	}
	var rowChanges []rowChange

	seen := make(map[table.RecordKey]bool, current.Len())
	for i := 0; i < current.Len(); i++ {
		k := current.Key(i, fields)
		if seen[k] {
			return nil, nil, &table.DuplicateKeyError{Key: k}
		}
		seen[k] = true
		j, ok := baseIndex[k]
		if !ok {
			return nil, nil, &AlignmentError{Key: k}
		}

		var changed map[string]string
		for col, name := range header {
			if keySet[name] {
				continue
			}
			// Exact textual equality is the only equivalence; "" is a real
			// value, not a missing one.
			if current.Row(i)[col] == baseline.Row(j)[col] {
				continue
			}
			if changed == nil {
				changed = make(map[string]string)
			}
			changed[name] = current.Row(i)[col]
			changedCols[col] = true
		}
		if changed != nil {
			keyVals := make([]string, len(keyFields))
			for n, name := range keyFields {
				keyVals[n] = current.Value(i, name)
			}
			rowChanges = append(rowChanges, rowChange{keyVals: keyVals, changed: changed})
		}
	}

	sparse := make([]string, 0, len(header))
	sparse = append(sparse, keyFields...)
	for col, name := range header {
		if changedCols[col] {
			sparse = append(sparse, name)
		}
	}

	cs := &ChangeSet{header: sparse, keyFields: keyFields}
	for _, rc := range rowChanges {
		cs.rows = append(cs.rows, changeRow{keyVals: rc.keyVals, values: rc.changed})
	}
	log.Debug().Int("rows", len(cs.rows)).Int("columns", len(sparse)).Msg("computed change set")
	return cs, current, nil
}

func checkShape(baseline, current *table.Snapshot) error {
	bh, ch := baseline.Header(), current.Header()
	if len(bh) != len(ch) {
		return &ShapeMismatchError{Reason: fmt.Sprintf("%d columns vs %d", len(bh), len(ch))}
	}
	for i := range bh {
		if bh[i] != ch[i] {
			return &ShapeMismatchError{Reason: fmt.Sprintf("column %d is %q vs %q", i, bh[i], ch[i])}
		}
	}
	if baseline.Len() != current.Len() {
		return &ShapeMismatchError{Reason: fmt.Sprintf("%d rows vs %d", baseline.Len(), current.Len())}
	}
	return nil
}
