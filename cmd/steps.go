// -- cmd/steps.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollowpoint9/retrace-cli/internal/artifacts"
	"github.com/hollowpoint9/retrace-cli/internal/scriptgen"
)

func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps <action-log>",
		Short: "Prints a recorded action log as a numbered step list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actions, err := artifacts.LoadActions(args[0])
			if err != nil {
				return err
			}
			fmt.Print(scriptgen.FormatSteps(actions))
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newStepsCmd())
}
