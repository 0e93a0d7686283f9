package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/shiftsched/pkg/errors"
	pkgio "github.com/matzehuels/shiftsched/pkg/io"
	"github.com/matzehuels/shiftsched/pkg/pipeline"
	"github.com/matzehuels/shiftsched/pkg/render/dot"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // base path of the written files
	order   string // order file drawn into the graph
	formats string // dot, svg, png
	allocs  bool   // draw allocs
	title   string
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [graph]",
		Short: "Draw a graph with Graphviz",
		Long: `Draw the precedence graph of a graph file as DOT, SVG or PNG.

With --order the ops are labelled with their position and laid out in
schedule order. The order file is a result from 'schedule -o' or the order
lines 'schedule' prints. Graphviz is embedded, no installation is needed.`,
		Example: `  shiftsched render model.json -f svg
  shiftsched render model.json --order order.txt --allocs -f svg,png -o drawing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(opts.formats)
			if len(formats) == 0 {
				formats = []string{pipeline.FormatSVG}
			}
			for _, f := range formats {
				if f == pipeline.FormatJSON {
					return errors.New(errors.ErrCodeInvalidSetting, "render draws dot, svg or png; use 'schedule -f json' for results")
				}
			}
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			return runRender(cmd.Context(), args[0], formats, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "base path of the output files (input name if empty)")
	cmd.Flags().StringVar(&opts.order, "order", "", "order file to draw")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), dot, png (comma-separated)")
	cmd.Flags().BoolVar(&opts.allocs, "allocs", false, "draw allocs")
	cmd.Flags().StringVar(&opts.title, "title", "", "title drawn above the graph")

	return cmd
}

// runRender loads the graph and the optional order and writes one file per
// format.
func runRender(ctx context.Context, input string, formats []string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	s := newStep(logger)

	g, err := pkgio.ImportGraph(input)
	if err != nil {
		return err
	}
	printGraphStats(g)

	var order []shift.OpAddress
	if opts.order != "" {
		if order, err = pkgio.ImportOrder(opts.order); err != nil {
			return err
		}
		if err := shift.ValidateOrder(g, order); err != nil {
			return fmt.Errorf("order %s: %w", opts.order, err)
		}
	}

	src := dot.ToDOT(g, dot.Options{Order: order, Allocs: opts.allocs, Title: opts.title})
	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		var data []byte
		switch format {
		case pipeline.FormatDOT:
			data = []byte(src)
		case pipeline.FormatSVG:
			data, err = dot.RenderSVG(ctx, src)
		case pipeline.FormatPNG:
			data, err = dot.RenderPNG(ctx, src)
		}
		if err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}
		logger.Debugf("generated %s: %d bytes", format, len(data))
		artifacts[format] = data
	}

	paths, err := writeArtifacts(artifacts, basePath(opts.output, input))
	if err != nil {
		return err
	}
	s.done("rendered", "formats", len(paths))
	printSuccess("Rendered %s", input)
	for _, p := range paths {
		printFile(p)
	}
	return nil
}
