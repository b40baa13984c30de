// Package modelgen runs the submit/poll lifecycle of 3D model generation
// jobs against an external reconstruction provider.
package modelgen

import (
	"context"
	"errors"

	"tirecheck/models"
)

var (
	ErrJobNotFound      = errors.New("model generation job not found")
	ErrEmptyImagePath   = errors.New("image path is empty")
	ErrEmptyAnalysisID  = errors.New("analysis id is empty")
	// ErrTransient wraps provider answers outside the running/completed/failed contract.
	ErrTransient        = errors.New("transient provider response")
	ErrImageOutsideRoot = errors.New("image is outside the upload directory")
)

// ProviderStatus is the provider's view of a reconstruction task.
type ProviderStatus string

const (
	ProviderRunning   ProviderStatus = "running"
	ProviderCompleted ProviderStatus = "completed"
	ProviderFailed    ProviderStatus = "failed"
)

type PollResult struct {
	Status   ProviderStatus
	ModelURL string
	Reason   string
}

// Provider is the third-party reconstruction service.
type Provider interface {
	Submit(ctx context.Context, imagePath string) (providerJobID string, err error)
	Poll(ctx context.Context, providerJobID string) (PollResult, error)
}

// JobStore persists job records. GetJob returns an error satisfying
// apperrors.IsNotFound for unknown ids.
type JobStore interface {
	SaveJob(ctx context.Context, job *models.ModelGenerationJob) error
	GetJob(ctx context.Context, id string) (*models.ModelGenerationJob, error)
	ListActiveJobs(ctx context.Context) ([]models.ModelGenerationJob, error)
}

// Notifier is told about terminal transitions.
type Notifier interface {
	JobFinished(ctx context.Context, job models.ModelGenerationJob)
}
