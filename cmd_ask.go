package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

var runSuggestedSQL bool

type askOutput struct {
	*services.Synthesis
	Result *models.QueryResult `json:"result,omitempty"`
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question and print the insight, SQL and chart hint",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer shutdown(a)

		synthesis, err := a.Synthesizer.Synthesize(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := askOutput{Synthesis: synthesis}

		if runSuggestedSQL && synthesis.Answer.SQL != nil {
			result, err := a.Runner.Run(cmd.Context(), *synthesis.Answer.SQL)
			if err != nil {
				return err
			}
			out.Result = result
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	askCmd.Flags().BoolVar(&runSuggestedSQL, "run", false, "Execute the suggested SQL and include the rows")
}
