package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jonesrussell/north-cloud/gapfinder/internal/telemetry"
)

func TestGinMiddleware_RecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := telemetry.NewProvider()

	router := gin.New()
	router.Use(provider.GinMiddleware())
	router.GET("/gaps/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/gaps/1", "/gaps/2", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(provider.Metrics.HTTPRequests.WithLabelValues("GET", "/gaps/:id", "204")); got != 2 {
		t.Errorf("route requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(provider.Metrics.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(provider.Metrics.HTTPActiveRequests); got != 0 {
		t.Errorf("active requests = %v, want 0", got)
	}
}

func TestGinMiddleware_NilProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var provider *telemetry.Provider

	router := gin.New()
	router.Use(provider.GinMiddleware())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
