package cli

import (
	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/shiftsched/pkg/io"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// generateCommand creates the generate command for random test graphs.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		output string
		format string
	)
	opts := shift.DefaultGenerateOptions()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a random schedulable graph",
		Long: `Write a random graph for experiments and benchmarks.

Constraints always point from lower to higher addresses, so every generated
graph can be scheduled. The same flags always produce the same graph.`,
		Example: `  shiftsched generate --ops 500 --allocs 400 -o big.json
  shiftsched generate --seed 7 --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			g, err := shift.Generate(opts)
			if err != nil {
				return err
			}
			logger.Debug("generated graph", "ops", g.NOps(), "allocs", g.NAllocs(), "edges", g.NEdges())

			if output == "" {
				f, err := pkgio.ParseFormat(format)
				if err != nil {
					return err
				}
				return pkgio.WriteGraph(cmd.OutOrStdout(), g, f)
			}
			if err := pkgio.ExportGraph(output, g); err != nil {
				return err
			}
			printSuccess("Generated graph")
			printGraphStats(g)
			printFile(output)
			printNextStep("Schedule it", "shiftsched schedule "+output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, format from its extension (stdout if empty)")
	cmd.Flags().StringVar(&format, "format", string(pkgio.FormatJSON), "stdout format: json, yaml")
	cmd.Flags().IntVar(&opts.Ops, "ops", opts.Ops, "number of ops")
	cmd.Flags().IntVar(&opts.Allocs, "allocs", opts.Allocs, "number of allocs")
	cmd.Flags().Float64Var(&opts.EdgeProb, "edge-prob", opts.EdgeProb, "probability of a constraint between two ops")
	cmd.Flags().Float64Var(&opts.LinkProb, "link-prob", opts.LinkProb, "probability of linking an op to its successor")
	cmd.Flags().IntVar(&opts.MaxWeight, "max-weight", opts.MaxWeight, "largest alloc weight")
	cmd.Flags().IntVar(&opts.MaxUsers, "max-users", opts.MaxUsers, "most ops using one alloc")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")

	return cmd
}
