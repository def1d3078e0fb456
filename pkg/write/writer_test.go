package write

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type capturingWriter struct {
	batches [][]Record
}

func (w *capturingWriter) Write(ctx context.Context, records []Record) error {
	w.batches = append(w.batches, records)
	return nil
}

func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{"record_id": string(rune('a' + i))}
	}
	return out
}

func TestBatchingWriterSplitsEvenly(t *testing.T) {
	require := require.New(t)
	inner := &capturingWriter{}

	w := NewBatchingRecordWriter(inner, 2)
	require.NoError(w.Write(context.Background(), records(5)))
	require.Len(inner.batches, 3)
	require.Len(inner.batches[0], 2)
	require.Len(inner.batches[1], 2)
	require.Len(inner.batches[2], 1)
}

func TestBatchingWriterZeroIsPassthrough(t *testing.T) {
	require := require.New(t)
	inner := &capturingWriter{}

	w := NewBatchingRecordWriter(inner, 0)
	require.Same(RecordWriter(inner), w)
}

func TestNewRecordWriterWithoutClientDryRuns(t *testing.T) {
	require := require.New(t)

	w := NewRecordWriter(nil)
	require.NoError(w.Write(context.Background(), records(3)))
}
