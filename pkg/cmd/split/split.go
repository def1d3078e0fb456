package split

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/redcap-tools/connector-redcap/pkg/config"
	"github.com/redcap-tools/connector-redcap/pkg/split"
	"github.com/redcap-tools/connector-redcap/pkg/streams"
	"github.com/redcap-tools/connector-redcap/pkg/table"
	"github.com/redcap-tools/connector-redcap/pkg/util"
)

// NewSplitCmd configures a new cobra command that splits a REDCap export
// into per-event and per-repeated-instrument files
func NewSplitCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:     "split <input_file> <output_directory>",
		Short:   "split a REDCap export into one file per event and per repeated instrument",
		Example: "  connector-redcap split --event-map=events.csv --prefix=study export.csv out/",
		Args:    cobra.ExactArgs(2),
		PreRunE: util.ZeroLogPreRunEFunc(o.IO.Out),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(args); err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&o.EventMapFile, "event-map", "", "path to a file mapping redcap events to file events")
	cmd.Flags().StringVar(&o.Prefix, "prefix", "redcap", "filename prefix for the output files")
	cmd.Flags().BoolVar(&o.NoCondense, "no-condense", false, "keep each raw event in its own output file even when the event map merges them")
	cmd.Flags().StringVar(&o.FieldsFile, "fields", "", "path to a file overriding the reserved structural column names")
	cobrautil.RegisterZeroLogFlags(cmd.Flags())

	return cmd
}

// Options holds options for the split command
type Options struct {
	streams.IO

	EventMapFile string
	Prefix       string
	NoCondense   bool
	FieldsFile   string

	inputFile string
	outputDir string
	fields    config.Fields
	splitOpts split.Options
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		IO: ioStreams,
	}
}

// Complete fills out default values before running
func (o *Options) Complete(args []string) error {
	o.inputFile = args[0]
	o.outputDir = args[1]

	o.fields = config.DefaultFields()
	if o.FieldsFile != "" {
		fields, err := config.ReadFields(o.FieldsFile)
		if err != nil {
			return err
		}
		o.fields = fields
	}

	o.splitOpts = split.DefaultOptions()
	o.splitOpts.Condense = !o.NoCondense
	if o.EventMapFile != "" {
		eventMap, err := split.ReadEventMapFile(o.EventMapFile)
		if err != nil {
			return err
		}
		o.splitOpts.EventMap = eventMap
	}
	return nil
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	f, err := os.Open(o.inputFile)
	if err != nil {
		return err
	}
	defer f.Close()
	snap, err := table.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", o.inputFile, err)
	}

	groups, err := split.Split(snap, o.fields, o.splitOpts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return err
	}
	for _, group := range groups {
		name := o.Prefix
		if groupName := fileName(group.Key); groupName != "" {
			name += "__" + groupName
		}
		outPath := filepath.Join(o.outputDir, name+".csv")
		log.Info().Str("file", outPath).Int("rows", group.Snapshot.Len()).Msg("saving split group")
		if err := writeSnapshot(outPath, group.Snapshot); err != nil {
			return err
		}
	}
	return nil
}

// fileName picks the event label for a group's filename. Without
// condensation, groups sharing a canonical label would collide as files, so
// the raw event name is used instead.
func fileName(key split.Key) string {
	if key.RawEvent != "" {
		key.Event = key.RawEvent
	}
	return key.Name()
}

func writeSnapshot(path string, snap *table.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := snap.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
