package split

import (
	"fmt"
	"io"
	"os"

	"github.com/redcap-tools/connector-redcap/pkg/table"
)

// EventMap renames raw REDCap event names (usually carrying the automatic
// _arm_N suffix) to the canonical names used for output grouping. Events
// missing from the map pass through unrenamed. Several raw events may map to
// the same canonical name; that is how arms are condensed together.
type EventMap map[string]string

// Canonical resolves a raw event name, falling back to identity.
func (m EventMap) Canonical(raw string) string {
	if canonical, ok := m[raw]; ok {
		return canonical
	}
	return raw
}

const (
	eventMapRawColumn       = "redcap_event"
	eventMapCanonicalColumn = "filename_event"
)

// ReadEventMap loads an event map from delimited text with "redcap_event"
// and "filename_event" columns.
func ReadEventMap(r io.Reader) (EventMap, error) {
	snap, err := table.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	rawCol := snap.Column(eventMapRawColumn)
	canonicalCol := snap.Column(eventMapCanonicalColumn)
	if rawCol < 0 || canonicalCol < 0 {
		return nil, fmt.Errorf("event map needs %q and %q columns", eventMapRawColumn, eventMapCanonicalColumn)
	}
	m := make(EventMap, snap.Len())
	for i := 0; i < snap.Len(); i++ {
		row := snap.Row(i)
		m[row[rawCol]] = row[canonicalCol]
	}
	return m, nil
}

// ReadEventMapFile loads an event map from a file path.
func ReadEventMapFile(path string) (EventMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEventMap(f)
}
