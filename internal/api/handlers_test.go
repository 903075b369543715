package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"

	infragin "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/jwt"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/gapdetector"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/matcher"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/telemetry"
)

// memoryStore implements GapStore for testing
type memoryStore struct {
	gaps       []domain.ResearchGap
	replaceErr error
	listErr    error
	replaced   int
}

func (m *memoryStore) ReplaceAll(_ context.Context, gaps []domain.ResearchGap) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced++
	m.gaps = gaps
	return nil
}

func (m *memoryStore) List(_ context.Context) ([]domain.ResearchGap, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.gaps, nil
}

// staticSource implements urlsource.Source for testing
type staticSource struct {
	urls      []string
	err       error
	lastLimit int
}

func (s *staticSource) Load(_ context.Context, limit int) ([]string, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && limit < len(s.urls) {
		return s.urls[:limit], nil
	}
	return s.urls, nil
}

func (s *staticSource) Name() string { return "static" }

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.SetDefaults(cfg)
	return cfg
}

// setupTestRouter creates a router with a comprehensive pipeline and no oracle
func setupTestRouter(t *testing.T, store GapStore, source *staticSource, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pipeline, err := matcher.NewPipeline(matcher.ModeComprehensive)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	detector := gapdetector.New(pipeline, gapdetector.WithConcurrency(2))

	var handler *Handler
	if source == nil {
		handler = NewHandler(detector, store, nil, 0, nil)
	} else {
		handler = NewHandler(detector, store, source, 0, nil)
	}
	handler.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	router := gin.New()
	SetupServiceRoutes(router, handler, cfg, nil)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAnalyzeResearchGaps_WithRequestURLs(t *testing.T) {
	store := &memoryStore{}
	router := setupTestRouter(t, store, nil, testConfig())

	w := doJSON(t, router, http.MethodPost, "/api/v1/research-gaps/analyze", AnalyzeRequest{
		Services:  []string{"Paving", "Roofing"},
		Locations: []string{"Leeds"},
		URLs:      []string{"https://example.com/paving-in-leeds/", "https://example.com/about/"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if !resp.Success {
		t.Error("success = false, want true")
	}
	if resp.TotalCombinations != 2 || resp.TotalURLsProcessed != 2 {
		t.Errorf("totals = (%d, %d), want (2, 2)", resp.TotalCombinations, resp.TotalURLsProcessed)
	}
	if resp.MatchesFound != 1 || resp.ResearchGapsFound != 1 {
		t.Errorf("found = (%d matches, %d gaps), want (1, 1)", resp.MatchesFound, resp.ResearchGapsFound)
	}
	if got := resp.Matches["Paving in Leeds"]; got.Method != domain.MethodExactPhrase {
		t.Errorf("match method = %q, want %q", got.Method, domain.MethodExactPhrase)
	}
	if len(resp.Gaps) != 1 || resp.Gaps[0] != "Roofing in Leeds" {
		t.Errorf("gaps = %v, want [Roofing in Leeds]", resp.Gaps)
	}

	if store.replaced != 1 || len(store.gaps) != 1 {
		t.Fatalf("store replaced %d times with %d gaps, want 1 and 1", store.replaced, len(store.gaps))
	}
	stored := store.gaps[0]
	if stored.Service != "Roofing" || stored.Location != "Leeds" || stored.Combination != "Roofing in Leeds" {
		t.Errorf("stored gap = %+v", stored)
	}
	if stored.ID == "" {
		t.Error("stored gap has no id")
	}
}

func TestAnalyzeResearchGaps_LoadsFromSource(t *testing.T) {
	source := &staticSource{urls: []string{
		"https://example.com/roofing-leeds/",
		"https://example.com/paving-in-leeds/",
	}}
	router := setupTestRouter(t, nil, source, testConfig())

	w := doJSON(t, router, http.MethodPost, "/api/v1/research-gaps/analyze", AnalyzeRequest{
		Services:  []string{"paving"},
		Locations: []string{"leeds"},
		Limit:     1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if source.lastLimit != 1 {
		t.Errorf("source limit = %d, want 1", source.lastLimit)
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// only the first url is loaded, so the paving page is never seen
	if resp.TotalURLsProcessed != 1 || resp.ResearchGapsFound != 1 {
		t.Errorf("response = %+v, want 1 url and 1 gap", resp)
	}
}

func TestAnalyzeResearchGaps_DefaultAPILimit(t *testing.T) {
	source := &staticSource{urls: []string{"https://example.com/paving-in-leeds/"}}
	router := setupTestRouter(t, nil, source, testConfig())

	w := doJSON(t, router, http.MethodPost, "/api/v1/research-gaps/analyze", AnalyzeRequest{
		Services:  []string{"paving"},
		Locations: []string{"leeds"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if source.lastLimit != 50 {
		t.Errorf("source limit = %d, want 50", source.lastLimit)
	}
}

func TestAnalyzeResearchGaps_Errors(t *testing.T) {
	tests := []struct {
		name       string
		store      GapStore
		source     *staticSource
		body       any
		wantStatus int
		wantError  string
	}{
		{
			name:       "empty services",
			body:       AnalyzeRequest{Locations: []string{"leeds"}, URLs: []string{"https://x.com/a/"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "services",
		},
		{
			name:       "blank locations",
			body:       AnalyzeRequest{Services: []string{"paving"}, Locations: []string{"  "}, URLs: []string{"https://x.com/a/"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "locations",
		},
		{
			name:       "no urls and no source",
			body:       AnalyzeRequest{Services: []string{"paving"}, Locations: []string{"leeds"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "no url source configured",
		},
		{
			name:       "empty source",
			source:     &staticSource{},
			body:       AnalyzeRequest{Services: []string{"paving"}, Locations: []string{"leeds"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "urls",
		},
		{
			name:       "source failure",
			source:     &staticSource{err: errors.New("disk on fire")},
			body:       AnalyzeRequest{Services: []string{"paving"}, Locations: []string{"leeds"}},
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to load urls",
		},
		{
			name:       "unknown pipeline",
			body:       AnalyzeRequest{Services: []string{"paving"}, Locations: []string{"leeds"}, Pipeline: "psychic"},
			wantStatus: http.StatusBadRequest,
			wantError:  "psychic",
		},
		{
			name:       "threshold out of range",
			body:       AnalyzeRequest{Services: []string{"paving"}, Locations: []string{"leeds"}, FuzzyThreshold: 1.5},
			wantStatus: http.StatusBadRequest,
			wantError:  "threshold",
		},
		{
			name:       "malformed json",
			body:       "not an object",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "store failure",
			store: &memoryStore{replaceErr: errors.New("connection reset")},
			body: AnalyzeRequest{
				Services: []string{"paving"}, Locations: []string{"leeds"}, URLs: []string{"https://x.com/a/"},
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to store research gaps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t, tt.store, tt.source, testConfig())
			w := doJSON(t, router, http.MethodPost, "/api/v1/research-gaps/analyze", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantError == "" {
				return
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if !strings.Contains(body["error"], tt.wantError) {
				t.Errorf("error = %q, want it to contain %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestAnalyzeResearchGaps_PipelineOverride(t *testing.T) {
	router := setupTestRouter(t, nil, nil, testConfig())
	req := AnalyzeRequest{
		Services:  []string{"teaching"},
		Locations: []string{"manchester"},
		URLs:      []string{"https://x.com/teaching_manchester_services/"},
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/research-gaps/analyze", req)
	var comprehensive AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &comprehensive); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if comprehensive.MatchesFound != 1 {
		t.Errorf("comprehensive matches = %d, want 1", comprehensive.MatchesFound)
	}

	req.Pipeline = "strict"
	w = doJSON(t, router, http.MethodPost, "/api/v1/research-gaps/analyze", req)
	var strict AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &strict); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if strict.MatchesFound != 0 || strict.ResearchGapsFound != 1 {
		t.Errorf("strict = %+v, want the combination reported as a gap", strict)
	}
}

func TestListResearchGaps(t *testing.T) {
	foundAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryStore{gaps: []domain.ResearchGap{
		{ID: "a", Service: "roofing", Location: "leeds", Combination: "roofing in leeds", FoundAt: foundAt},
		{ID: "b", Service: "paving", Location: "york", Combination: "paving in york", FoundAt: foundAt},
	}}
	router := setupTestRouter(t, store, nil, testConfig())

	w := doJSON(t, router, http.MethodGet, "/api/v1/research-gaps", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ResearchGapsListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.ResearchGaps) != 2 {
		t.Fatalf("total = %d with %d gaps, want 2", resp.Total, len(resp.ResearchGaps))
	}
	if resp.ResearchGaps[0].Combination != "roofing in leeds" {
		t.Errorf("first gap = %q, want store order preserved", resp.ResearchGaps[0].Combination)
	}
}

func TestListResearchGaps_EmptyIsArray(t *testing.T) {
	router := setupTestRouter(t, &memoryStore{}, nil, testConfig())

	w := doJSON(t, router, http.MethodGet, "/api/v1/research-gaps", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"research_gaps":[]`) {
		t.Errorf("body = %s, want an empty array", w.Body.String())
	}
}

func TestListResearchGaps_Unavailable(t *testing.T) {
	tests := []struct {
		name       string
		store      GapStore
		wantStatus int
	}{
		{name: "no store", store: nil, wantStatus: http.StatusServiceUnavailable},
		{name: "store error", store: &memoryStore{listErr: errors.New("boom")}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t, tt.store, nil, testConfig())
			w := doJSON(t, router, http.MethodGet, "/api/v1/research-gaps", nil)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name       string
		body       MatchRequest
		wantSlug   string
		wantMatch  bool
		wantMethod domain.MatchMethod
	}{
		{
			name:       "exact phrase",
			body:       MatchRequest{Service: "Paving", Location: "Leeds", URL: "https://x.com/services/Paving-In-Leeds/"},
			wantSlug:   "paving in leeds",
			wantMatch:  true,
			wantMethod: domain.MethodExactPhrase,
		},
		{
			name:       "token boundary",
			body:       MatchRequest{Service: "spa", Location: "bath", URL: "https://x.com/spacious-bathroom-remodel/"},
			wantSlug:   "spacious bathroom remodel",
			wantMatch:  false,
			wantMethod: domain.MethodNoMatch,
		},
		{
			name:       "strict override",
			body:       MatchRequest{Service: "teaching", Location: "manchester", URL: "https://x.com/teaching_manchester/", Pipeline: "strict"},
			wantSlug:   "teaching manchester",
			wantMatch:  false,
			wantMethod: domain.MethodNoMatch,
		},
	}

	router := setupTestRouter(t, nil, nil, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/match", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}

			var resp MatchResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Slug != tt.wantSlug {
				t.Errorf("slug = %q, want %q", resp.Slug, tt.wantSlug)
			}
			if resp.IsMatch != tt.wantMatch || resp.Method != tt.wantMethod {
				t.Errorf("result = (%v, %q), want (%v, %q)", resp.IsMatch, resp.Method, tt.wantMatch, tt.wantMethod)
			}
		})
	}
}

func TestMatch_RequiresFields(t *testing.T) {
	router := setupTestRouter(t, nil, nil, testConfig())

	w := doJSON(t, router, http.MethodPost, "/api/v1/match", MatchRequest{Service: "paving", URL: "https://x.com/a/"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRoutes_RequireTokenWhenSecretSet(t *testing.T) {
	const secret = "test-secret"
	cfg := testConfig()
	cfg.Auth.JWTSecret = secret
	router := setupTestRouter(t, &memoryStore{}, nil, cfg)

	w := doJSON(t, router, http.MethodGet, "/api/v1/research-gaps", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}

	token, err := jwt.Sign(secret, "tester", gojwt.RegisteredClaims{
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/research-gaps", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with token = %d, want 200", rec.Code)
	}
}

func TestNewServer_HealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pipeline, err := matcher.NewPipeline(matcher.ModeComprehensive)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	tel := telemetry.NewProvider()
	handler := NewHandler(gapdetector.New(pipeline, gapdetector.WithTelemetry(tel)), nil, nil, 0, nil)

	server := NewServer(handler, ServerConfig{
		Port: 0,
		HealthChecks: map[string]infragin.HealthChecker{
			"database": infragin.PingChecker(func(context.Context) error { return nil }, true),
		},
		Telemetry: tel,
	}, testConfig(), nil)

	w := doJSON(t, server.Router(), http.MethodGet, "/health/ready", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"database"`) {
		t.Errorf("ready = %d %s", w.Code, w.Body.String())
	}

	doJSON(t, server.Router(), http.MethodPost, "/api/v1/research-gaps/analyze", AnalyzeRequest{
		Services: []string{"paving"}, Locations: []string{"leeds"}, URLs: []string{"https://x.com/paving-leeds/"},
	})
	w = doJSON(t, server.Router(), http.MethodGet, "/metrics", nil)
	body := w.Body.String()
	if !strings.Contains(body, `gapfinder_detections_total{pipeline="comprehensive"} 1`) {
		t.Errorf("metrics missing detection counter:\n%s", body)
	}
	if !strings.Contains(body, `gapfinder_http_requests_total{method="POST",route="/api/v1/research-gaps/analyze",status="200"} 1`) {
		t.Errorf("metrics missing http request counter:\n%s", body)
	}
}
