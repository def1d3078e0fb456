package diff

import (
	"github.com/redcap-tools/connector-redcap/pkg/table"
)

// ChangeSet is the sparse output of a diff: one row per RecordKey with at
// least one changed field, carrying the key fields plus only the changed
// values. Unchanged fields are absent, not empty; a field changed to "" stays
// distinguishable from one that did not change.
type ChangeSet struct {
	header    []string
	keyFields []string
	rows      []changeRow
}

type changeRow struct {
	// keyVals aligns positionally with the ChangeSet's keyFields.
	keyVals []string
	values  map[string]string
}

// Header returns the sparse schema: the key fields followed by every field
// that changed in at least one row, in source-header order.
func (c *ChangeSet) Header() []string {
	return c.header
}

// Len returns the number of changed records.
func (c *ChangeSet) Len() int {
	return len(c.rows)
}

// Empty reports whether no record changed.
func (c *ChangeSet) Empty() bool {
	return len(c.rows) == 0
}

// Records materializes the change set as the import payload: one map per
// changed record, holding the key fields plus only that record's changed
// fields. This is the lossless form; absence here means "do not touch".
func (c *ChangeSet) Records() []map[string]string {
	records := make([]map[string]string, 0, len(c.rows))
	for _, row := range c.rows {
		record := make(map[string]string, len(c.keyFields)+len(row.values))
		for i, name := range c.keyFields {
			record[name] = row.keyVals[i]
		}
		for name, value := range row.values {
			record[name] = value
		}
		records = append(records, record)
	}
	return records
}

// Snapshot flattens the change set to a Snapshot for display or delimited
// output. Absent cells become ""; that makes this form lossy ("" may mean
// unchanged or changed-to-empty), so it is for inspection, not for import.
func (c *ChangeSet) Snapshot() (*table.Snapshot, error) {
	rows := make([][]string, 0, len(c.rows))
	for _, record := range c.Records() {
		row := make([]string, len(c.header))
		for i, name := range c.header {
			row[i] = record[name]
		}
		rows = append(rows, row)
	}
	return table.NewSnapshot(c.header, rows)
}
