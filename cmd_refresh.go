package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Extract warehouse metadata and rebuild the graph, corpus and vector index",
	Long: "Runs one refresh and prints the report as JSON. Stages after extraction are " +
		"best effort; their status is in the report. The command fails only when no " +
		"warehouse session can be opened or every primary metadata query fails.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer shutdown(a)

		report, err := a.Refresh.Refresh(cmd.Context())
		if err != nil {
			a.Logger.Error("Refresh failed", zap.Error(err))
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}
