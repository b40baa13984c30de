// Package engine is the synchronous assessment entry point: it scores the
// decoded signals, generates the service plan and assembles the analysis record.
package engine

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"tirecheck/decoder"
	"tirecheck/models"
	"tirecheck/recommend"
	"tirecheck/scoring"
)

// Engine holds only its clock and id source; it keeps no state between calls.
type Engine struct {
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides analysis id generation.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assess produces a new analysis. Low-confidence input never blocks the result.
func (e *Engine) Assess(tread models.TreadDepthMeasurement, size models.TireSizeInfo, dot models.DotCodeInfo, defects []models.TireDefect) models.ComprehensiveTireAnalysis {
	defects = slices.DeleteFunc(slices.Clone(defects), func(d models.TireDefect) bool {
		return d.Severity == models.SeverityNone
	})
	if defects == nil {
		defects = []models.TireDefect{}
	}

	scored := scoring.Score(tread, size, dot, defects)
	plan := recommend.Generate(scored)

	recs := plan.Recommendations
	if recs == nil {
		recs = []models.TireRecommendation{}
	}

	return models.ComprehensiveTireAnalysis{
		ID:                 e.newID(),
		Timestamp:          e.now().UTC(),
		TreadDepth:         tread,
		TireSize:           size,
		DotCode:            dot,
		Defects:            defects,
		OverallHealthScore: scored.Score,
		OverallStatus:      scored.Status,
		PrimaryConcerns:    scored.PrimaryConcerns(),
		Recommendations:    recs,
		ActionRequired:     plan.ActionRequired,
		EstimatedCost:      plan.EstimatedCost,
	}
}

// AssessRecognition decodes raw recognition output and assesses it.
func (e *Engine) AssessRecognition(r decoder.Recognition) models.ComprehensiveTireAnalysis {
	sig := decoder.Decode(r, e.now().UTC())
	return e.Assess(sig.Tread, sig.Size, sig.DOT, sig.Defects)
}
