package gin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus is the status reported by health endpoints.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

const healthCheckTimeout = 3 * time.Second

// HealthResponse is the body of /health and /health/ready.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker checks one dependency.
type HealthChecker func(ctx context.Context) CheckResult

// PingChecker adapts a ping function. Failures of a required dependency are unhealthy,
// failures of an optional one are degraded.
func PingChecker(ping func(ctx context.Context) error, required bool) HealthChecker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		err := ping(ctx)
		latency := time.Since(start).Round(time.Millisecond).String()
		if err == nil {
			return CheckResult{Status: HealthStatusHealthy, Latency: latency}
		}
		status := HealthStatusDegraded
		if required {
			status = HealthStatusUnhealthy
		}
		return CheckResult{Status: status, Message: err.Error(), Latency: latency}
	}
}

// RegisterHealthRoutes adds GET/HEAD /health (liveness) and GET /health/ready (runs checks).
func RegisterHealthRoutes(router *gin.Engine, name, version string, checks map[string]HealthChecker) {
	started := time.Now()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  HealthStatusHealthy,
			Service: name,
			Version: version,
			Uptime:  time.Since(started).Round(time.Second).String(),
		})
	})
	router.HEAD("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		resp := HealthResponse{
			Status:  HealthStatusHealthy,
			Service: name,
			Version: version,
			Uptime:  time.Since(started).Round(time.Second).String(),
			Checks:  make(map[string]CheckResult, len(checks)),
		}
		for checkName, check := range checks {
			result := check(ctx)
			resp.Checks[checkName] = result
			switch {
			case result.Status == HealthStatusUnhealthy:
				resp.Status = HealthStatusUnhealthy
			case result.Status == HealthStatusDegraded && resp.Status == HealthStatusHealthy:
				resp.Status = HealthStatusDegraded
			}
		}

		code := http.StatusOK
		if resp.Status == HealthStatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	})
}
