package export

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/redcap-tools/connector-redcap/pkg/options"
	"github.com/redcap-tools/connector-redcap/pkg/redcap"
	"github.com/redcap-tools/connector-redcap/pkg/streams"
	"github.com/redcap-tools/connector-redcap/pkg/util"
)

// NewExportCmd configures a new cobra command that downloads a full project
// export to a local file
func NewExportCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:     "export <output_file>",
		Short:   "download the project's records to a csv file",
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
	cmd.Flags().StringVar(&o.FormsFile, "forms", "", "a file listing the instruments to download, one per line; all when unset")
	cmd.Flags().BoolVar(&o.SurveyFields, "survey-fields", false, "include survey timestamps in the output")
	cobrautil.RegisterZeroLogFlags(cmd.Flags())

	return cmd
}

// Options holds options for the export command
type Options struct {
	streams.IO
	Redcap options.RedcapOptions

	FormsFile    string
	SurveyFields bool

	outputFile string
	forms      []string
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		IO: ioStreams,
	}
}

// Complete fills out default values before running
func (o *Options) Complete(args []string) error {
	o.outputFile = args[0]
	if o.FormsFile != "" {
		forms, err := linesOf(o.FormsFile)
		if err != nil {
			return err
		}
		o.forms = forms
	}
	return o.Redcap.Complete(false)
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	log.Info().EmbedObject(util.LoggedAPIConfig{APIURL: o.Redcap.APIURL}).Msg("exporting records")

	data, err := o.Redcap.Client.ExportRecords(ctx, redcap.ExportOptions{
		Forms:        o.forms,
		SurveyFields: o.SurveyFields,
	})
	if err != nil {
		return err
	}
	log.Info().Str("file", o.outputFile).Int("bytes", len(data)).Msg("saving export")
	return os.WriteFile(o.outputFile, data, 0o644)
}

// linesOf reads a file into a slice of non-empty trimmed lines
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
