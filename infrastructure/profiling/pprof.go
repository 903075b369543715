// Package profiling exposes pprof endpoints and optional Pyroscope continuous profiling.
package profiling

import (
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
)

const pprofReadHeaderTimeout = 5 * time.Second

// Config selects the profilers to start. Everything is off by default.
type Config struct {
	PprofEnabled bool   `env:"ENABLE_PROFILING" yaml:"pprof_enabled"`
	PprofPort    string `env:"PPROF_PORT"       yaml:"pprof_port"`

	PyroscopeEnabled bool   `env:"ENABLE_CONTINUOUS_PROFILING" yaml:"pyroscope_enabled"`
	PyroscopeURL     string `env:"PYROSCOPE_SERVER_URL"        yaml:"pyroscope_url"`
	Environment      string `env:"PYROSCOPE_ENVIRONMENT"       yaml:"environment"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.PprofPort == "" {
		c.PprofPort = "6060"
	}
	if c.PyroscopeURL == "" {
		c.PyroscopeURL = "http://pyroscope:4040"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// PprofHandler serves the standard /debug/pprof/ endpoints.
func PprofHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// StartPprofServer serves pprof on localhost:<port> in the background when enabled.
// The returned server is nil when pprof is disabled.
func StartPprofServer(cfg Config, log logger.Logger) *http.Server {
	if !cfg.PprofEnabled {
		return nil
	}
	cfg.SetDefaults()

	// localhost only
	srv := &http.Server{
		Addr:              "localhost:" + cfg.PprofPort,
		Handler:           PprofHandler(),
		ReadHeaderTimeout: pprofReadHeaderTimeout,
	}

	go func() {
		log.Info("Starting pprof server", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof server error", logger.Error(err))
		}
	}()
	return srv
}
