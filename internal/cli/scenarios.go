package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilesim/pkg/scenario"
)

// scenariosCommand creates the command listing the built-in scenarios.
func (c *CLI) scenariosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, StyleTitle.Render("Scenarios"))
			for _, sc := range scenario.All() {
				printKeyValue(w, sc.Name, sc.Description)
			}
			return nil
		},
	}
}
