package notify

import (
	"context"
	"time"
)

const (
	EventActionRequired    = "analysis.action_required"
	EventModelJobCompleted = "model_job.completed"
	EventModelJobFailed    = "model_job.failed"
)

// Event is one notification about an analysis or a model job.
type Event struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Severity   string         `json:"severity,omitempty"` // "critical" | "caution" | "good" | ""
	AnalysisID string         `json:"analysis_id"`
	JobID      string         `json:"job_id,omitempty"`
	URL        string         `json:"url,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"ts"`
}

// Channel is implemented by each notification transport.
type Channel interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, evt Event) error
}
