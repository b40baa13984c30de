package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tirecheck/models"
)

// Dispatcher fans out events to all configured channels.
type Dispatcher struct {
	channels []Channel
	logger   zerolog.Logger
	now      func() time.Time
}

// NewDispatcher keeps only the channels with IsConfigured() == true.
func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{
		logger: log.Logger.With().Str("component", "notify").Logger(),
		now:    time.Now,
	}
	for _, ch := range channels {
		if ch != nil && ch.IsConfigured() {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

// WithLogger replaces the dispatcher logger.
func (d *Dispatcher) WithLogger(l zerolog.Logger) *Dispatcher {
	d.logger = l
	return d
}

// IsAnyConfigured returns true if at least one channel is ready to send.
func (d *Dispatcher) IsAnyConfigured() bool {
	return len(d.channels) > 0
}

// Channels returns the names of the active channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Notify sends evt to all configured channels. Errors are logged but never returned.
func (d *Dispatcher) Notify(ctx context.Context, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = d.now().UTC()
	}
	for _, ch := range d.channels {
		if err := ch.Send(ctx, evt); err != nil {
			d.logger.Warn().Err(err).
				Str("channel", ch.Name()).
				Str("event", evt.Type).
				Msg("notify: channel send failed")
		}
	}
}

// AnalysisAssessed announces analyses that need service immediately or worse.
func (d *Dispatcher) AnalysisAssessed(ctx context.Context, a models.ComprehensiveTireAnalysis) {
	if !a.ActionRequired.AtLeast(models.ActionServiceImmediately) {
		return
	}
	body := fmt.Sprintf("Health score %.1f (%s).", a.OverallHealthScore, a.OverallStatus)
	if len(a.PrimaryConcerns) > 0 {
		body += " " + a.PrimaryConcerns[0]
	}
	d.Notify(ctx, Event{
		Type:       EventActionRequired,
		Title:      "Tire action required: " + string(a.ActionRequired),
		Body:       body,
		Severity:   a.OverallStatus.HealthLevel(),
		AnalysisID: a.ID,
		Metadata: map[string]any{
			"action_required": a.ActionRequired,
			"score":           a.OverallHealthScore,
			"status":          a.OverallStatus,
		},
	})
}

// JobFinished announces terminal model job transitions.
func (d *Dispatcher) JobFinished(ctx context.Context, job models.ModelGenerationJob) {
	switch job.Status {
	case models.JobCompleted:
		d.Notify(ctx, Event{
			Type:       EventModelJobCompleted,
			Title:      "3D tire model ready",
			Body:       "The 3D model for analysis " + job.AnalysisID + " is ready.",
			AnalysisID: job.AnalysisID,
			JobID:      job.ID,
			URL:        job.ModelURL,
		})
	case models.JobFailed:
		d.Notify(ctx, Event{
			Type:       EventModelJobFailed,
			Title:      "3D tire model failed",
			Body:       job.ErrorMessage,
			AnalysisID: job.AnalysisID,
			JobID:      job.ID,
			Metadata:   map[string]any{"retry_count": job.RetryCount},
		})
	case models.JobPending, models.JobProcessing:
	}
}
