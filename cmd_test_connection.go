package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-insight/pkg/handlers"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Check the warehouse and model provider credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer shutdown(a)

		response := handlers.ConnectionTestResponse{
			Warehouse: handlers.TestWarehouse(cmd.Context(), a.Opener),
			LLM:       a.ConnectionTester().Test(cmd.Context()),
		}
		if err := printJSON(cmd.OutOrStdout(), response); err != nil {
			return err
		}
		if !response.Warehouse.Success {
			return errors.New("warehouse connection failed")
		}
		return nil
	},
}
