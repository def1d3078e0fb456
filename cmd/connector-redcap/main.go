package main

import (
	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/redcap-tools/connector-redcap/pkg/cmd/export"
	"github.com/redcap-tools/connector-redcap/pkg/cmd/incremental"
	"github.com/redcap-tools/connector-redcap/pkg/cmd/report"
	"github.com/redcap-tools/connector-redcap/pkg/cmd/split"
	"github.com/redcap-tools/connector-redcap/pkg/cmd/update"
	"github.com/redcap-tools/connector-redcap/pkg/signals"
	"github.com/redcap-tools/connector-redcap/pkg/streams"
)

func main() {
	s := streams.NewStdIO()
	ctx := signals.Context()
	rootCmd := &cobra.Command{
		Use:               "connector-redcap",
		Short:             "Sync tabular study data between local csv files and a REDCap project",
		PersistentPreRunE: cobrautil.SyncViperPreRunE("connector-redcap"),
	}

	rootCmd.AddCommand(split.NewSplitCmd(ctx, s))
	rootCmd.AddCommand(update.NewUpdateCmd(ctx, s))
	rootCmd.AddCommand(export.NewExportCmd(ctx, s))
	rootCmd.AddCommand(incremental.NewIncrementalCmd(ctx, s))
	rootCmd.AddCommand(report.NewReportCmd(ctx, s))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Send()
	}
}
