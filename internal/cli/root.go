// Package cli implements the blockcanvas command line: serve the HTTP
// API, run the stdio MCP server, or migrate the storage schema.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"blockcanvas/internal/config"
	"blockcanvas/internal/logging"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion sets the version reported by --version and the MCP server.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

type ctxKey int

const cfgKey ctxKey = iota

// Execute builds the command tree and runs it with ctx.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		verbose bool
	)

	root := &cobra.Command{
		Use:          "blockcanvas",
		Short:        "Free-form block canvas server",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}
			// stdout belongs to the MCP transport, so logs always go to stderr.
			logger := logging.New(os.Stderr, logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				File:   cfg.Logging.File,
			})
			ctx := logging.WithLogger(cmd.Context(), logger)
			ctx = context.WithValue(ctx, cfgKey, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath(), "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMCPCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newConfigCmd())
	return root
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "blockcanvas", "config.yaml")
}

func configFrom(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(cfgKey).(config.Config)
	if !ok {
		return cfg, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

func loggerFrom(ctx context.Context) *log.Logger {
	return logging.FromContext(ctx)
}
