package gin

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	maxRequestIDLen = 128
)

// RequestIDLoggerMiddleware assigns a request ID (reusing a sane inbound X-Request-ID) and
// stores a logger carrying it in the request context.
func RequestIDLoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)

		reqLog := log.With(logger.String(requestIDKey, id))
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))
		c.Next()
	}
}

// LoggerMiddleware logs one entry per request.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		if id, ok := c.Get(requestIDKey); ok {
			fields = append(fields, logger.Any(requestIDKey, id))
		}

		if len(c.Errors) > 0 {
			log.Error("HTTP request with errors", append(fields, logger.Strings("errors", c.Errors.Errors()))...)
			return
		}
		if strings.HasPrefix(path, "/health") || path == "/metrics" {
			log.Debug("HTTP request", fields...)
			return
		}
		log.Info("HTTP request", fields...)
	}
}

// RecoveryMiddleware converts panics into 500 responses.
func RecoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Panic recovered",
					logger.Any("panic", rec),
					logger.String("path", c.Request.URL.Path),
					logger.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware answers cross-origin requests from allowed origins.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	anyOrigin := slices.Contains(allowed, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || (!anyOrigin && !slices.Contains(allowed, origin)) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		h.Set("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
