package write

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/redcap-tools/connector-redcap/pkg/redcap"
)

// Record is one sparse record for import: key fields plus only the fields
// being changed.
type Record = map[string]string

// RecordWriter writes sparse records to a REDCap project
type RecordWriter interface {
	Write(context.Context, []Record) error
}

// NewRecordWriter returns a record writer based on the current config. It
// will configure trace logging if the current log level is trace, and will
// dry-run if no client is passed.
func NewRecordWriter(client *redcap.Client) RecordWriter {
	if client == nil {
		return NewDryRunRecordWriter()
	}
	w := StdRecordWriter{client: client}
	if zerolog.GlobalLevel() == zerolog.TraceLevel {
		return LoggingRecordWriter{writer: w, level: zerolog.TraceLevel}
	}
	return w
}

// NewBatchingRecordWriter will write records in batches of size batchSize
func NewBatchingRecordWriter(writer RecordWriter, batchSize int) RecordWriter {
	if batchSize == 0 {
		return writer
	}
	return &BatchingRecordWriter{
		writer:    writer,
		batchSize: batchSize,
	}
}

// StdRecordWriter writes via a redcap client, no-frills.
type StdRecordWriter struct {
	client *redcap.Client
}

func (w StdRecordWriter) Write(ctx context.Context, records []Record) error {
	count, err := w.client.ImportRecords(ctx, records)
	if err != nil {
		return err
	}
	log.Info().Int("count", count).Msg("imported records")
	return nil
}

// BatchingRecordWriter writes in batches of batchSize
type BatchingRecordWriter struct {
	writer    RecordWriter
	batchSize int
}

func (w BatchingRecordWriter) Write(ctx context.Context, records []Record) error {
	for start := 0; start < len(records); start += w.batchSize {
		end := start + w.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := w.writer.Write(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// LoggingRecordWriter will log each record before delegating to an
// underlying RecordWriter
type LoggingRecordWriter struct {
	writer RecordWriter
	level  zerolog.Level
}

func (w LoggingRecordWriter) Write(ctx context.Context, records []Record) error {
	for _, r := range records {
		log.WithLevel(w.level).Fields(map[string]interface{}{"record": r}).Msg("write")
	}
	return w.writer.Write(ctx, records)
}

// NewDryRunRecordWriter constructs a new record writer that logs but doesn't
// write.
func NewDryRunRecordWriter() RecordWriter {
	return LoggingRecordWriter{
		writer: DiscardingRecordWriter{},
		level:  zerolog.InfoLevel,
	}
}

// DiscardingRecordWriter does nothing but satisfy RecordWriter
type DiscardingRecordWriter struct{}

func (w DiscardingRecordWriter) Write(ctx context.Context, records []Record) error {
	return nil
}
