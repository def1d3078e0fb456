package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV reads a delimited-text export into a Snapshot. The first record is
// the header; every value is kept as text, so "" stays "" rather than
// becoming a missing-value marker.
func ReadCSV(r io.Reader) (*Snapshot, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	return NewSnapshot(records[0], records[1:])
}

// WriteCSV serializes a Snapshot as delimited text, header first.
func (s *Snapshot) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(s.header); err != nil {
		return err
	}
	for _, row := range s.rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
