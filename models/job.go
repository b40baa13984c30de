package models

import (
	"time"
)

// JobStatus is the lifecycle state of a model generation job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition can happen.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed:
		return true
	case JobPending, JobProcessing:
		return false
	default:
		return false
	}
}

// IsActive reports whether the job still occupies its analysis slot.
func (s JobStatus) IsActive() bool {
	switch s {
	case JobPending, JobProcessing:
		return true
	case JobCompleted, JobFailed:
		return false
	default:
		return false
	}
}

// ModelGenerationJob tracks one external 3D reconstruction request.
type ModelGenerationJob struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	AnalysisID    string     `json:"analysis_id" gorm:"index;not null"`
	ImagePath     string     `json:"image_path"`
	ProviderJobID string     `json:"provider_job_id,omitempty"`
	Status        JobStatus  `json:"status" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at" gorm:"index"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	RetryCount    int        `json:"retry_count"`
	ModelURL      string     `json:"model_url,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (ModelGenerationJob) TableName() string {
	return "model_generation_jobs"
}
