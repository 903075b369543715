package profiling_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/profiling"
)

func TestDisabledProfilersAreNil(t *testing.T) {
	assert.Nil(t, profiling.StartPprofServer(profiling.Config{}, logger.NewNop()))

	p, err := profiling.StartPyroscope("gapfinder", "test", profiling.Config{}, logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, p.Stop())
}

func TestPprofHandler_ServesIndex(t *testing.T) {
	w := httptest.NewRecorder()
	profiling.PprofHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutine")
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := profiling.Config{PprofPort: "7070"}
	cfg.SetDefaults()

	assert.Equal(t, "7070", cfg.PprofPort)
	assert.Equal(t, "http://pyroscope:4040", cfg.PyroscopeURL)
	assert.Equal(t, "development", cfg.Environment)
}
