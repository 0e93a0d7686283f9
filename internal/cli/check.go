package cli

import (
	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/shiftsched/pkg/io"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [graph] [order]",
		Short: "Validate an order and report its liveness",
		Long: `Check that an order is a valid schedule of a graph and print its sum and
peak liveness.

The order file is either a result written by 'schedule -o' or the order
lines that 'schedule' prints.`,
		Example: `  shiftsched schedule model.json > order.txt
  shiftsched check model.json order.txt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			g, err := pkgio.ImportGraph(args[0])
			if err != nil {
				return err
			}
			order, err := pkgio.ImportOrder(args[1])
			if err != nil {
				return err
			}
			logger.Debug("loaded order", "ops", len(order))
			if err := shift.ValidateOrder(g, order); err != nil {
				printError("Invalid order")
				return err
			}
			printSuccess("Valid order of %d ops", len(order))
			printLiveness(shift.SumLiveness(g, order), shift.MaxLiveness(g, order))
			return nil
		},
	}
}
