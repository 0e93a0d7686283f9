package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/shiftsched/pkg/errors"
	pkgio "github.com/matzehuels/shiftsched/pkg/io"
	"github.com/matzehuels/shiftsched/pkg/pipeline"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// scheduleOpts holds the flags of the schedule command that are not
// scheduler settings.
type scheduleOpts struct {
	output     string
	formats    string
	allocs     bool
	refresh    bool
	bestOf     int
	noProgress bool
}

// scheduleCommand creates the schedule command.
func (c *CLI) scheduleCommand() *cobra.Command {
	var (
		opts     scheduleOpts
		settings settingsFlags
		cacheF   cacheFlag
	)

	cmd := &cobra.Command{
		Use:   "schedule [graph]",
		Short: "Compute a low-liveness order for a graph",
		Long: `Compute a topological order of the ops in a graph file (JSON or YAML) that
keeps the summed weight of live allocs low.

The order is printed as "position address name" lines unless --output
names a JSON file, which then receives the full result. Artifacts
requested with --format are written next to the output, or as
<graph>.schedule.<format> next to the input.

Results are cached by graph and settings; --refresh recomputes them.`,
		Example: `  shiftsched schedule model.json
  shiftsched schedule model.yaml --kahn random --best-of 8 -o order.json
  shiftsched schedule model.json --max-seconds 5 -f svg --allocs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := settings.apply(cmd.Flags(), &cfg.Settings); err != nil {
				return err
			}
			if err := cacheF.apply(cmd.Flags(), &cfg); err != nil {
				return err
			}

			popts := pipeline.Options{
				Settings: cfg.Settings,
				Formats:  parseFormats(opts.formats),
				Allocs:   opts.allocs,
				Refresh:  opts.refresh,
			}
			if err := pipeline.ValidateFormats(popts.Formats); err != nil {
				return err
			}
			if opts.bestOf < 0 {
				return errors.New(errors.ErrCodeInvalidSetting, "--best-of must not be negative, got %d", opts.bestOf)
			}

			runner := c.newRunner(cmd.Context(), cfg.Cache)
			defer runner.Close()
			return c.runSchedule(cmd, runner, args[0], popts, &opts)
		},
	}

	settings.register(cmd.Flags())
	cacheF.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result as JSON to this file instead of printing the order")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "artifacts to write: json, dot, svg, png (comma-separated)")
	cmd.Flags().BoolVar(&opts.allocs, "allocs", false, "draw allocs in graph artifacts")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().IntVar(&opts.bestOf, "best-of", 0, "run this many seeds concurrently, starting at --seed, and keep the best")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the live search view")

	return cmd
}

// runSchedule loads the graph, runs the search and writes its outputs.
func (c *CLI) runSchedule(cmd *cobra.Command, runner *pipeline.Runner, input string, popts pipeline.Options, opts *scheduleOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	g, err := pkgio.ImportGraph(input)
	if err != nil {
		return err
	}
	printGraphStats(g)

	interactive := !opts.noProgress && !c.verbose && isTerminal(os.Stderr)
	popts.Logger = logger
	if interactive {
		popts.Logger = quietLogger(logger)
	}

	seeds := seedRange(popts.Settings.Seed, opts.bestOf)
	title := fmt.Sprintf("Scheduling %d ops...", g.NOps())
	s := newStep(logger)
	res, err := runSearch(ctx, title, interactive, func(ctx context.Context, obs shift.RoundObserver) (*pipeline.Result, error) {
		run := popts
		run.Settings.Observer = obs
		if len(seeds) > 0 {
			return runner.BestOf(ctx, g, run, seeds)
		}
		return runner.Execute(ctx, g, run)
	})
	if err != nil {
		return err
	}
	s.done("scheduled", "source", res.Source, "ops", g.NOps())

	if opts.output != "" {
		if err := pkgio.ExportResult(opts.output, res.Result); err != nil {
			return err
		}
	} else if err := pkgio.WriteOrder(cmd.OutOrStdout(), g, res.Order); err != nil {
		return err
	}

	printSummary(res)
	if opts.output != "" {
		printFile(opts.output)
	}
	base := basePath(opts.output, input)
	if opts.output == "" {
		base += ".schedule"
	}
	if base+"."+pipeline.FormatJSON == opts.output {
		// Already written above.
		delete(res.Artifacts, pipeline.FormatJSON)
	}
	paths, err := writeArtifacts(res.Artifacts, base)
	for _, p := range paths {
		printFile(p)
	}
	return err
}

// seedRange returns n consecutive seeds starting at first, or nil when n is
// zero.
func seedRange(first uint32, n int) []uint32 {
	if n <= 0 {
		return nil
	}
	seeds := make([]uint32, n)
	for i := range seeds {
		seeds[i] = first + uint32(i)
	}
	return seeds
}
