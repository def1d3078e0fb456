package split

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/redcap-tools/connector-redcap/pkg/config"
	"github.com/redcap-tools/connector-redcap/pkg/table"
)

// Key identifies one output group. Event is the canonical (renamed) event
// label; Instrument is set for repeated-instrument groups. RawEvent is set
// only when condensing is disabled, keeping raw events with the same
// canonical label in separate groups.
type Key struct {
	Event      string
	RawEvent   string
	Instrument string
}

// Name joins the non-empty label parts with "__", matching the shape the
// shell uses for filenames. RawEvent does not participate; it exists to keep
// group identities distinct, not to name files.
func (k Key) Name() string {
	parts := make([]string, 0, 2)
	for _, part := range []string{k.Event, k.Instrument} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "__")
}

// Group pairs an output key with the rows that belong to it.
type Group struct {
	Key      Key
	Snapshot *table.Snapshot
}

// Options configures splitting.
type Options struct {
	// EventMap renames raw events; nil means identity.
	EventMap EventMap
	// Condense merges raw events that share a canonical name into one group.
	Condense bool
}

// DefaultOptions returns the options the CLI defaults to: no renaming,
// condensing on.
func DefaultOptions() Options {
	return Options{Condense: true}
}

// MalformedRowError reports a row that cannot be attributed to any group.
type MalformedRowError struct {
	RowIndex int
	Reason   string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowIndex, e.Reason)
}

// Split partitions a source Snapshot into one group per canonical event plus
// one per (canonical event, repeated instrument). Every produced Snapshot
// keeps the full source column set, and rows keep their input order within a
// group. Groups are emitted deterministically: main-event groups in
// first-seen order, then instrument groups in first-seen order.
func Split(snap *table.Snapshot, fields config.Fields, opts Options) ([]Group, error) {
	eventCol := snap.Column(fields.Event)
	instrumentCol := snap.Column(fields.Instrument)

	type bucket struct {
		key  Key
		rows [][]string
	}
	var mains, repeats []*bucket
	buckets := make(map[Key]*bucket)

	for i := 0; i < snap.Len(); i++ {
		row := snap.Row(i)

		// A header without the event column is a non-longitudinal export;
		// every row lands in a single unnamed main group. With the column
		// present, an empty value means the row belongs nowhere.
		rawEvent := ""
		if eventCol >= 0 {
			rawEvent = row[eventCol]
			if rawEvent == "" {
				return nil, &MalformedRowError{RowIndex: i, Reason: fmt.Sprintf("empty %s value", fields.Event)}
			}
		}

		key := Key{Event: opts.EventMap.Canonical(rawEvent)}
		if !opts.Condense {
			key.RawEvent = rawEvent
		}
		if instrumentCol >= 0 {
			key.Instrument = row[instrumentCol]
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key}
			buckets[key] = b
			if key.Instrument == "" {
				mains = append(mains, b)
			} else {
				repeats = append(repeats, b)
			}
		}
		b.rows = append(b.rows, row)
	}

	groups := make([]Group, 0, len(buckets))
	for _, b := range append(mains, repeats...) {
		grouped, err := table.NewSnapshot(snap.Header(), b.rows)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("group", b.key.Name()).Int("rows", grouped.Len()).Msg("built split group")
		groups = append(groups, Group{Key: b.key, Snapshot: grouped})
	}
	return groups, nil
}
