package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/database"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/gapdetector"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/matcher"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/slug"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/urlsource"
)

// GapStore persists the gaps of the latest analysis.
type GapStore interface {
	ReplaceAll(ctx context.Context, gaps []domain.ResearchGap) error
	List(ctx context.Context) ([]domain.ResearchGap, error)
}

// Handler handles HTTP requests for the gapfinder API
type Handler struct {
	detector *gapdetector.Detector
	store    GapStore
	source   urlsource.Source
	apiLimit int
	logger   infralogger.Logger
	now      func() time.Time
}

// NewHandler creates a new API handler. store and source may be nil.
func NewHandler(
	detector *gapdetector.Detector,
	store GapStore,
	source urlsource.Source,
	apiLimit int,
	logger infralogger.Logger,
) *Handler {
	if apiLimit <= 0 {
		apiLimit = urlsource.DefaultAPILimit
	}
	if logger == nil {
		logger = infralogger.NewNop()
	}
	return &Handler{
		detector: detector,
		store:    store,
		source:   source,
		apiLimit: apiLimit,
		logger:   logger,
		now:      time.Now,
	}
}

// AnalyzeResearchGaps handles POST /api/v1/research-gaps/analyze
func (h *Handler) AnalyzeResearchGaps(c *gin.Context) {
	ctx := c.Request.Context()
	log := infralogger.FromContext(ctx, h.logger)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid analyze request", infralogger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detector, err := h.detectorFor(req.Pipeline, req.FuzzyThreshold)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	urls := req.URLs
	if len(urls) == 0 {
		urls, err = h.loadURLs(ctx, req.Limit)
		if errors.Is(err, urlsource.ErrNoSource) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "urls are required: no url source configured"})
			return
		}
		if err != nil {
			log.Error("Failed to load urls", infralogger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load urls"})
			return
		}
	}

	report, err := detector.Detect(ctx, req.Services, req.Locations, urls)
	if errors.Is(err, domain.ErrEmptyInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error("Gap detection failed", infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gap detection failed"})
		return
	}

	if h.store != nil {
		if err = h.store.ReplaceAll(ctx, database.NewResearchGaps(report, h.now())); err != nil {
			log.Error("Failed to store research gaps", infralogger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store research gaps"})
			return
		}
	}

	c.JSON(http.StatusOK, toAnalyzeResponse(report))
}

// ListResearchGaps handles GET /api/v1/research-gaps
func (h *Handler) ListResearchGaps(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}

	gaps, err := h.store.List(c.Request.Context())
	if err != nil {
		infralogger.FromContext(c.Request.Context(), h.logger).Error("Failed to list research gaps", infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list research gaps"})
		return
	}
	if gaps == nil {
		gaps = []domain.ResearchGap{}
	}

	c.JSON(http.StatusOK, ResearchGapsListResponse{ResearchGaps: gaps, Total: len(gaps)})
}

// Match handles POST /api/v1/match
func (h *Handler) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detector, err := h.detectorFor(req.Pipeline, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	combination := domain.Combination{Service: req.Service, Location: req.Location}
	s := slug.New(req.URL)
	result := detector.Pipeline().Match(c.Request.Context(), matcher.NewPhrase(combination), matcher.NewSubject(s.Normalized))

	infralogger.FromContext(c.Request.Context(), h.logger).Debug("Single match evaluated",
		infralogger.String("slug", s.Normalized),
		infralogger.String("combination", combination.DisplayText()),
		infralogger.String("method", string(result.Method)),
	)

	c.JSON(http.StatusOK, MatchResponse{
		Slug:    s.Normalized,
		Phrase:  combination.DisplayText(),
		IsMatch: result.IsMatch,
		Method:  result.Method,
	})
}

// detectorFor returns the default detector, or a copy running the requested pipeline.
func (h *Handler) detectorFor(pipeline string, threshold float64) (*gapdetector.Detector, error) {
	if pipeline == "" && threshold == 0 {
		return h.detector, nil
	}

	mode := matcher.Mode("")
	if pipeline != "" {
		parsed, err := matcher.ParseMode(pipeline)
		if err != nil {
			return nil, err
		}
		mode = parsed
	}

	p, err := h.detector.Pipeline().With(mode, threshold)
	if err != nil {
		return nil, err
	}
	return h.detector.WithPipeline(p), nil
}

func (h *Handler) loadURLs(ctx context.Context, limit int) ([]string, error) {
	if h.source == nil {
		return nil, urlsource.ErrNoSource
	}
	if limit <= 0 {
		limit = h.apiLimit
	}

	urls, err := h.source.Load(ctx, limit)
	if err != nil {
		return nil, err
	}
	infralogger.FromContext(ctx, h.logger).Info("Loaded urls from source",
		infralogger.String("source", h.source.Name()),
		infralogger.Int("count", len(urls)),
	)
	return urls, nil
}
