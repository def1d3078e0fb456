package report

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/redcap-tools/connector-redcap/pkg/options"
	"github.com/redcap-tools/connector-redcap/pkg/streams"
	"github.com/redcap-tools/connector-redcap/pkg/util"
)

// NewReportCmd configures a new cobra command that downloads REDCap reports
// to csv files. This is a pass-through: a report that fails to download is
// logged and skipped so the remaining reports still land.
func NewReportCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:     "report <output_dir>",
		Short:   "download the project's reports to csv files",
		Example: "  connector-redcap report --id=32001 --id=32004 out/",
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
	cmd.Flags().StringSliceVar(&o.ReportIDs, "id", nil, "report ID to download; repeatable")
	cmd.Flags().StringVar(&o.IDsFile, "file", "", "a file listing report IDs, one per line")
	cmd.Flags().StringVar(&o.Prefix, "prefix", "redcap", "filename prefix for the output files")
	cobrautil.RegisterZeroLogFlags(cmd.Flags())

	return cmd
}

// Options holds options for the report command
type Options struct {
	streams.IO
	Redcap options.RedcapOptions

	ReportIDs []string
	IDsFile   string
	Prefix    string

	outputDir string
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		IO: ioStreams,
	}
}

// Complete fills out default values before running
func (o *Options) Complete(args []string) error {
	o.outputDir = args[0]
	if o.IDsFile != "" {
		ids, err := linesOf(o.IDsFile)
		if err != nil {
			return err
		}
		o.ReportIDs = append(o.ReportIDs, ids...)
	}
	if len(o.ReportIDs) == 0 {
		return fmt.Errorf("no report IDs provided; use --id or --file")
	}
	return o.Redcap.Complete(false)
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return err
	}
	for _, id := range o.ReportIDs {
		log.Debug().Str("report", id).Msg("downloading report")
		data, err := o.Redcap.Client.ExportReport(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("report", id).Msg("report not found, skipping")
			continue
		}
		outFile := filepath.Join(o.outputDir, fmt.Sprintf("%s__report_%s.csv", o.Prefix, id))
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return err
		}
		log.Info().Str("report", id).Str("file", outFile).Msg("report downloaded")
	}
	return nil
}

func linesOf(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, scanner.Err()
}
