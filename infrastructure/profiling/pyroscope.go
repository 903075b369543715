package profiling

import (
	"fmt"
	"os"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
)

// PyroscopeProfiler holds the Pyroscope profiler instance
type PyroscopeProfiler struct {
	profiler *pyroscope.Profiler
}

// StartPyroscope starts continuous profiling for serviceName.
// Returns nil if continuous profiling is disabled.
func StartPyroscope(serviceName, version string, cfg Config, log logger.Logger) (*PyroscopeProfiler, error) {
	if !cfg.PyroscopeEnabled {
		return nil, nil
	}
	cfg.SetDefaults()

	pcfg := pyroscope.Config{
		ApplicationName: serviceName,
		ServerAddress:   cfg.PyroscopeURL,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
		Tags: map[string]string{
			"environment": cfg.Environment,
			"version":     version,
			"hostname":    hostname(),
			"go_version":  runtime.Version(),
		},
	}

	profiler, err := pyroscope.Start(pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}

	log.Info("Pyroscope continuous profiling started",
		logger.String("application", pcfg.ApplicationName),
		logger.String("server", cfg.PyroscopeURL),
		logger.String("environment", cfg.Environment),
	)
	return &PyroscopeProfiler{profiler: profiler}, nil
}

// Stop gracefully stops the Pyroscope profiler
func (p *PyroscopeProfiler) Stop() error {
	if p == nil || p.profiler == nil {
		return nil
	}
	return p.profiler.Stop()
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
