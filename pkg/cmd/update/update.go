package update

import (
	"context"
	"fmt"
	"os"

	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/redcap-tools/connector-redcap/pkg/cache"
	"github.com/redcap-tools/connector-redcap/pkg/config"
	"github.com/redcap-tools/connector-redcap/pkg/diff"
	"github.com/redcap-tools/connector-redcap/pkg/options"
	"github.com/redcap-tools/connector-redcap/pkg/streams"
	"github.com/redcap-tools/connector-redcap/pkg/table"
	"github.com/redcap-tools/connector-redcap/pkg/util"
	"github.com/redcap-tools/connector-redcap/pkg/write"
)

// NewUpdateCmd configures a new cobra command that pushes the minimal set of
// changed cells between two local snapshots to REDCap
func NewUpdateCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:     "update <base_csv> <updated_csv>",
		Short:   "import only the cells that changed between two exports",
		Example: "  connector-redcap update --cache=.redcap-sync.csv base.csv edited.csv",
		Args:    cobra.ExactArgs(2),
		PreRunE: util.ZeroLogPreRunEFunc(o.IO.Out),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(args); err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&o.Redcap.APIURL, "api-url", "", "REDCap API endpoint (default: REDCAP_API_URL)")
	cmd.Flags().StringVar(&o.Redcap.APIToken, "api-token", "", "REDCap API token (default: REDCAP_API_TOKEN)")
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "log the records that would be imported without calling redcap")
	cmd.Flags().StringVar(&o.CacheFile, "cache", "", "path to the last-synchronized snapshot; read as the baseline when present and replaced after a successful import")
	cmd.Flags().IntVar(&o.BatchSize, "batch-size", 0, "import records in batches of this size (0 imports everything in one call)")
	cmd.Flags().StringVar(&o.FieldsFile, "fields", "", "path to a file overriding the reserved structural column names")
	cobrautil.RegisterZeroLogFlags(cmd.Flags())

	return cmd
}

// Options holds options for the update command
type Options struct {
	streams.IO
	Redcap options.RedcapOptions

	DryRun     bool
	CacheFile  string
	BatchSize  int
	FieldsFile string

	baseFile    string
	updatedFile string
	fields      config.Fields
	writer      write.RecordWriter
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		IO: ioStreams,
	}
}

// Complete fills out default values before running
func (o *Options) Complete(args []string) error {
	o.baseFile = args[0]
	o.updatedFile = args[1]

	o.fields = config.DefaultFields()
	if o.FieldsFile != "" {
		fields, err := config.ReadFields(o.FieldsFile)
		if err != nil {
			return err
		}
		o.fields = fields
	}

	if o.writer != nil {
		log.Debug().Msg("record writer already configured, skipping connection option validation")
		return nil
	}
	if err := o.Redcap.Complete(o.DryRun); err != nil {
		return err
	}
	w := write.NewRecordWriter(o.Redcap.Client)
	if o.DryRun {
		w = write.NewDryRunRecordWriter()
	}
	o.writer = write.NewBatchingRecordWriter(w, o.BatchSize)
	return nil
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	baseline, err := o.loadBaseline()
	if err != nil {
		return err
	}
	current, err := readSnapshot(o.updatedFile)
	if err != nil {
		return err
	}

	changes, newBaseline, err := diff.Diff(baseline, current, o.fields)
	if err != nil {
		return err
	}
	if changes.Empty() {
		log.Info().Msg("no changes to make")
		return nil
	}
	log.Info().Int("records", changes.Len()).Msg("importing changed records")

	if o.DryRun {
		log.Warn().Msg("dry run, not updating anything")
	}
	if err := o.writer.Write(ctx, changes.Records()); err != nil {
		return err
	}

	if o.CacheFile != "" && !o.DryRun {
		log.Debug().Str("cache", o.CacheFile).Msg("replacing cached baseline")
		if err := cache.ReplaceSnapshot(o.CacheFile, newBaseline); err != nil {
			return fmt.Errorf("import succeeded but replacing the cache failed: %w", err)
		}
	}
	return nil
}

// loadBaseline prefers an existing cache file over the base csv: the cache
// is the state the remote last confirmed, which the base file may lag.
func (o *Options) loadBaseline() (*table.Snapshot, error) {
	if o.CacheFile != "" {
		snap, err := cache.LoadSnapshot(o.CacheFile)
		if err == nil {
			log.Debug().Str("cache", o.CacheFile).Msg("using cached baseline")
			return snap, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		log.Debug().Str("cache", o.CacheFile).Msg("no cache yet, using base file")
	}
	return readSnapshot(o.baseFile)
}

func readSnapshot(path string) (*table.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return table.ReadCSV(f)
}
