package api

import (
	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/telemetry"
)

// SetupServiceRoutes configures service-specific API routes (not health routes).
// Health routes are handled by the infrastructure gin package.
func SetupServiceRoutes(router *gin.Engine, handler *Handler, cfg *config.Config, tel *telemetry.Provider) {
	if tel != nil {
		router.GET("/metrics", gin.WrapH(tel.Handler()))
	}

	// API v1 routes - protected with JWT
	v1 := infragin.ProtectedGroup(router, "/api/v1", cfg.Auth.JWTSecret)

	gaps := v1.Group("/research-gaps")
	gaps.POST("/analyze", handler.AnalyzeResearchGaps) // POST /api/v1/research-gaps/analyze
	gaps.GET("", handler.ListResearchGaps)             // GET /api/v1/research-gaps

	v1.POST("/match", handler.Match) // POST /api/v1/match
}
