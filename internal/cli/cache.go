package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/shiftsched/pkg/cache"
	"github.com/matzehuels/shiftsched/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the solution cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var cacheF cacheFlag
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop all cached schedules and drawings",
		Long: `Drop every entry of the configured cache backend.

The Redis backend only clears keys under its configured prefix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := cacheF.apply(cmd.Flags(), &cfg); err != nil {
				return err
			}
			cfg.Cache.Logger = loggerFromContext(ctx)

			store, err := cache.Open(ctx, cfg.Cache)
			if err != nil {
				return err
			}
			defer store.Close()

			clearer, ok := store.(cache.Clearer)
			if !ok {
				return errors.New(errors.ErrCodeInvalidSetting, "the %s cache cannot be cleared", cfg.Cache.Backend)
			}
			if err := clearer.Clear(ctx); err != nil {
				return fmt.Errorf("clear %s cache: %w", cfg.Cache.Backend, err)
			}
			printSuccess("Cleared the %s cache", cfg.Cache.Backend)
			if dir, err := cacheDir(cfg.Cache); err == nil && dir != "" {
				printDetail("Directory: %s", dir)
			}
			return nil
		},
	}
	cacheF.register(cmd.Flags())
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := cacheDir(cfg.Cache)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// cacheDir returns the directory of the file and badger backends: the
// configured one, or the per-user default.
func cacheDir(cfg cache.Config) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	switch cfg.Backend {
	case cache.BackendFile, "":
		return cache.DefaultDir()
	case cache.BackendBadger:
		dir, err := cache.DefaultDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "badger"), nil
	}
	return "", nil
}
