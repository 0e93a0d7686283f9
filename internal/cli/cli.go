// Package cli implements the shiftsched command-line interface.
//
// The commands read graph files, run the scheduler behind the solution
// cache, render schedules and serve the HTTP API. The CLI is built with
// cobra and logs through charmbracelet/log.
//
// # Commands
//
//   - schedule: compute a low-liveness order for a graph file
//   - generate: write a random graph for experiments
//   - check: validate an order against a graph and report its liveness
//   - render: draw a graph, optionally in schedule order
//   - serve: run the HTTP API
//   - cache: inspect and clear the solution cache
//   - completion, version
//
// # Configuration
//
// Settings come from built-in defaults, then the TOML file named by
// --config, then SHIFTSCHED_* environment variables, then flags.
package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/shiftsched/pkg/buildinfo"
	"github.com/matzehuels/shiftsched/pkg/cache"
	"github.com/matzehuels/shiftsched/pkg/config"
	"github.com/matzehuels/shiftsched/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "shiftsched"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "shiftsched orders DAG operations to keep live memory low",
		Long: `shiftsched computes a topological order of a graph of operations that
keeps the total weight of live allocations small, using a greedy Kahn sort
followed by a shift-based local search.`,
		Version:       buildinfo.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "settings file (TOML)")

	root.AddCommand(c.scheduleCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// =============================================================================
// Configuration and Runner Factory
// =============================================================================

// loadConfig layers the settings file and the environment over the
// defaults. Flags are applied by each command afterwards.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, cfg.Validate()
}

// newRunner opens the configured cache and wraps it in a pipeline runner.
// A cache that cannot be opened is reported and replaced by no cache.
func (c *CLI) newRunner(ctx context.Context, cfg cache.Config) *pipeline.Runner {
	logger := loggerFromContext(ctx)
	cfg.Logger = logger
	store, err := cache.Open(ctx, cfg)
	if err != nil {
		printWarning("Cache disabled: %v", err)
		store = cache.NewNullCache()
	}
	logger.Debug("cache opened", "backend", cfg.Backend, "namespace", cfg.Namespace)
	return pipeline.NewRunner(store, cache.NewKeyer(cfg), logger)
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats splits a comma-separated format list, dropping blanks.
func parseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, strings.ToLower(f))
		}
	}
	return out
}
