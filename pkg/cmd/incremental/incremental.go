package incremental

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/redcap-tools/connector-redcap/pkg/cache"
	"github.com/redcap-tools/connector-redcap/pkg/config"
	"github.com/redcap-tools/connector-redcap/pkg/options"
	"github.com/redcap-tools/connector-redcap/pkg/redcap"
	"github.com/redcap-tools/connector-redcap/pkg/streams"
	"github.com/redcap-tools/connector-redcap/pkg/table"
	"github.com/redcap-tools/connector-redcap/pkg/util"
)

// NewIncrementalCmd configures a new cobra command that downloads records
// changed since the last run and merges them into an accumulated export.
// State lives in a .incremental/ directory beside the output file; deleting
// it forces a full re-download.
func NewIncrementalCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:     "incremental <output_file>",
		Short:   "download only records changed since the last run and merge them into the output",
		Args:    cobra.ExactArgs(1),
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
	cmd.Flags().StringVar(&o.Overlap, "overlap", "24h", "overlap window for missed-change protection (60s, 5m, 24h, 3d, or bare seconds)")
	cmd.Flags().StringVar(&o.FieldsFile, "fields", "", "path to a file overriding the reserved structural column names")
	cobrautil.RegisterZeroLogFlags(cmd.Flags())

	return cmd
}

// Options holds options for the incremental command
type Options struct {
	streams.IO
	Redcap options.RedcapOptions

	Overlap    string
	FieldsFile string

	// Clock is swappable so tests control the recorded timestamps.
	Clock clockwork.Clock

	outputFile string
	overlap    time.Duration
	fields     config.Fields
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		IO:    ioStreams,
		Clock: clockwork.NewRealClock(),
	}
}

// Complete fills out default values before running
func (o *Options) Complete(args []string) error {
	o.outputFile = args[0]

	overlap, err := ParseOverlap(o.Overlap)
	if err != nil {
		return err
	}
	o.overlap = overlap

	o.fields = config.DefaultFields()
	if o.FieldsFile != "" {
		fields, err := config.ReadFields(o.FieldsFile)
		if err != nil {
			return err
		}
		o.fields = fields
	}
	return o.Redcap.Complete(false)
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	state, err := cache.StateFor(o.outputFile)
	if err != nil {
		return err
	}
	lastDownload, err := state.LastDownload()
	if err != nil {
		return err
	}
	downloadStart := o.Clock.Now()

	if lastDownload.IsZero() {
		if err := o.fullDownload(ctx, state); err != nil {
			return err
		}
	} else {
		if err := o.incrementalDownload(ctx, state, lastDownload); err != nil {
			return err
		}
	}

	if err := state.WriteLastDownload(downloadStart); err != nil {
		return err
	}
	base, err := os.ReadFile(state.BasePath())
	if err != nil {
		return err
	}
	return os.WriteFile(o.outputFile, base, 0o644)
}

func (o *Options) fullDownload(ctx context.Context, state *cache.State) error {
	log.Info().Msg("no previous download found, performing full base download")
	raw, err := o.Redcap.Client.ExportRecords(ctx, redcap.ExportOptions{})
	if err != nil {
		return err
	}
	log.Info().Int("bytes", len(raw)).Msg("base download complete")
	return state.WriteRawBase(raw)
}

func (o *Options) incrementalDownload(ctx context.Context, state *cache.State, lastDownload time.Time) error {
	dateBegin := lastDownload.Add(-o.overlap)
	log.Info().Time("since", dateBegin).Dur("overlap", o.overlap).Msg("downloading changed records")

	raw, err := o.Redcap.Client.ExportRecords(ctx, redcap.ExportOptions{DateBegin: dateBegin})
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		log.Info().Msg("no new records found")
		return nil
	}
	inc, err := table.ReadCSV(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if inc.Len() == 0 {
		log.Info().Msg("no new records found")
		return nil
	}

	base, err := state.Base()
	if err != nil {
		return err
	}
	log.Info().Int("rows", inc.Len()).Msg("merging incremental rows into base")
	merged, err := table.Merge(base, inc, o.fields)
	if err != nil {
		return err
	}
	log.Info().Int("rows", merged.Len()).Msg("merge complete")
	return state.WriteBase(merged)
}
