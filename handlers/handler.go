package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tirecheck/apperrors"
	"tirecheck/engine"
	"tirecheck/modelgen"
	"tirecheck/models"
)

type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, a *models.ComprehensiveTireAnalysis) error
	GetAnalysis(ctx context.Context, id string) (*models.ComprehensiveTireAnalysis, error)
	ListAnalyses(ctx context.Context, limit, offset int) ([]models.ComprehensiveTireAnalysis, error)
	CountAnalyses(ctx context.Context) (int64, error)
	DeleteAnalysis(ctx context.Context, id string) error
	Statistics(ctx context.Context) (models.AnalysisSummary, error)
}

type ModelJobs interface {
	Submit(ctx context.Context, analysisID, imagePath string) (models.ModelGenerationJob, error)
	Poll(ctx context.Context, jobID string) (models.ModelGenerationJob, error)
	Job(ctx context.Context, jobID string) (models.ModelGenerationJob, error)
	Watch(ctx context.Context, jobID string) error
	Cancel(analysisID string) int
}

type AnalysisNotifier interface {
	AnalysisAssessed(ctx context.Context, a models.ComprehensiveTireAnalysis)
}

// ResumeControl keeps the background resumer away from analyses whose
// polling was stopped on purpose.
type ResumeControl interface {
	Skip(analysisID string)
	Unskip(analysisID string)
}

type Deps struct {
	Store     AnalysisStore
	Engine    *engine.Engine
	Jobs      ModelJobs
	Notifier  AnalysisNotifier
	Resume    ResumeControl
	UploadDir string

	// BaseContext bounds background pollers started by requests.
	BaseContext context.Context
	Logger      *zerolog.Logger
}

type Handler struct {
	store     AnalysisStore
	engine    *engine.Engine
	jobs      ModelJobs
	notifier  AnalysisNotifier
	resume    ResumeControl
	uploadDir string
	baseCtx   context.Context
	logger    zerolog.Logger
}

func New(d Deps) (*Handler, error) {
	if d.Store == nil || d.Jobs == nil {
		return nil, errors.New("handlers: store and model jobs are required")
	}
	h := &Handler{
		store:     d.Store,
		engine:    d.Engine,
		jobs:      d.Jobs,
		notifier:  d.Notifier,
		resume:    d.Resume,
		uploadDir: d.UploadDir,
		baseCtx:   d.BaseContext,
		logger:    log.Logger,
	}
	if h.engine == nil {
		h.engine = engine.New()
	}
	if h.uploadDir == "" {
		h.uploadDir = "./uploads"
	}
	if h.baseCtx == nil {
		h.baseCtx = context.Background()
	}
	if d.Logger != nil {
		h.logger = *d.Logger
	}
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return h, nil
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	msg := apperrors.Message(err)
	switch {
	case errors.Is(err, modelgen.ErrJobNotFound):
		status, msg = http.StatusNotFound, "Model job not found"
	case errors.Is(err, modelgen.ErrEmptyImagePath):
		status, msg = http.StatusBadRequest, "Analysis has no image to build a model from"
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}
