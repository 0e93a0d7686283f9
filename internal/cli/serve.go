package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/shiftsched/internal/api"
	"github.com/matzehuels/shiftsched/pkg/observability"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr   string
		cacheF cacheFlag
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the scheduler over HTTP.

  POST /v1/schedule   schedule a graph (JSON body with "graph", "settings", "formats")
  GET  /healthz       build information
  GET  /metrics       Prometheus metrics

Request settings are layered over the configured settings. The [server]
section of the settings file bounds request size, request time and search
time. The server stops gracefully on SIGINT or SIGTERM.`,
		Example: `  shiftsched serve --addr :9090 --cache redis`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := cacheF.apply(cmd.Flags(), &cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			metrics := observability.NewMetrics()
			observability.SetSchedulerHooks(metrics)
			observability.SetCacheHooks(metrics)
			observability.SetServerHooks(metrics)
			defer observability.Reset()

			runner := c.newRunner(ctx, cfg.Cache)
			defer runner.Close()

			h := api.NewHandlers(runner, cfg.Settings, cfg.Server, logger)
			router := api.NewRouter(cfg.Server, h, metrics.Handler(), observability.Server())
			logger.Info("starting server", "cache", cfg.Cache.Backend, "max_seconds", cfg.Server.MaxSeconds)
			return api.ListenAndServe(ctx, api.NewServer(cfg.Server, router), logger)
		},
	}

	cacheF.register(cmd.Flags())
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from settings, :8080)")

	return cmd
}
