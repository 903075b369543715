// Package cmd implements the gapfinder command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
)

// Version is set at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands
	debug bool
)

// NewRootCommand builds the gapfinder command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gapfinder",
		Short: "Find service/location pages a site does not have yet",
		Long: `gapfinder compares every service x location combination against a site's URLs
and reports the combinations no page covers (research gaps).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newDetectCommand(),
		newHTTPDCommand(),
		newMigrateCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	// Load .env early so environment variables are available to every command
	_ = godotenv.Load()

	return NewRootCommand().ExecuteContext(ctx)
}

// setup loads configuration and creates the logger for a command run.
func setup() (*config.Config, infralogger.Logger, error) {
	cfg, err := bootstrap.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}

	logger, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}
