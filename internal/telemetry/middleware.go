package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const unmatchedRoute = "unmatched"

// GinMiddleware records request count, latency and in-flight requests. Routes are labelled by
// their registered pattern so path parameters do not explode cardinality.
func (p *Provider) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil {
			c.Next()
			return
		}

		start := time.Now()
		p.Metrics.HTTPActiveRequests.Inc()
		defer p.Metrics.HTTPActiveRequests.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		p.Metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		p.Metrics.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
