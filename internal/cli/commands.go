package cli

import (
	"fmt"
	"os"

	"blockcanvas/internal/app"
	"blockcanvas/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the canvas HTTP API",
		Long:  "Serve the block gateway, uploads and page state over HTTP. With SQLite storage the database file is watched for writes from other processes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			a, err := app.Open(ctx, cfg, loggerFrom(ctx))
			if err != nil {
				return err
			}
			defer a.Close()
			return a.ServeHTTP(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFrom(ctx)
			if remote != "" {
				return app.ServeMCPRemote(remote, version, logger)
			}
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			a, err := app.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.ServeMCP(version)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "base URL of a running API to use instead of local storage")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the storage schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			// Opening storage applies the migrations.
			a, err := app.Open(ctx, cfg, loggerFrom(ctx))
			if err != nil {
				return err
			}
			loggerFrom(ctx).Info("storage up to date", "driver", cfg.Storage.Driver)
			return a.Close()
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				return fmt.Errorf("no config path")
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(path, config.Defaults()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			return nil
		},
	})
	return cmd
}
