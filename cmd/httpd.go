package cmd

import (
	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/profiling"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/bootstrap"
)

func newHTTPDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Start the HTTP API",
		Long:  `Serve the research gap API until SIGINT or SIGTERM, then shut down gracefully.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if pprofSrv := profiling.StartPprofServer(cfg.Profiling, logger); pprofSrv != nil {
				defer func() { _ = pprofSrv.Close() }()
			}
			profiler, err := profiling.StartPyroscope(cfg.Service.Name, cfg.Service.Version, cfg.Profiling, logger)
			if err != nil {
				logger.Warn("Continuous profiling unavailable", infralogger.Error(err))
			}
			defer func() { _ = profiler.Stop() }()

			comps, err := bootstrap.NewHTTPComponents(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("Failed to initialize HTTP components", infralogger.Error(err))
				return err
			}
			defer comps.Close()

			logger.Info("Starting gapfinder API",
				infralogger.Int("port", cfg.Service.Port),
				infralogger.String("version", cfg.Service.Version),
			)
			return comps.Server.RunWithGracefulShutdown(cmd.Context())
		},
	}
}
