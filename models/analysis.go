package models

import (
	"time"
)

// HealthStatus is the overall verdict derived from the composite score.
type HealthStatus string

const (
	StatusExcellent HealthStatus = "excellent"
	StatusGood      HealthStatus = "good"
	StatusFair      HealthStatus = "fair"
	StatusPoor      HealthStatus = "poor"
	StatusCritical  HealthStatus = "critical"
)

// StatusForScore maps a 0-100 score to a status.
func StatusForScore(score float64) HealthStatus {
	switch {
	case score >= 85:
		return StatusExcellent
	case score >= 70:
		return StatusGood
	case score >= 55:
		return StatusFair
	case score >= 35:
		return StatusPoor
	default:
		return StatusCritical
	}
}

// HealthLevel collapses a status into the critical/caution/good bands
// used by notifications and statistics.
func (s HealthStatus) HealthLevel() string {
	switch s {
	case StatusExcellent, StatusGood:
		return "good"
	case StatusFair, StatusPoor:
		return "caution"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// CostRange is an estimated price band in whole currency units.
type CostRange struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency"`
}

type ComprehensiveTireAnalysis struct {
	ID                 string                `json:"id" gorm:"primaryKey"`
	Timestamp          time.Time             `json:"timestamp" gorm:"index"`
	ImagePath          string                `json:"image_path,omitempty"`
	OriginalName       string                `json:"original_name,omitempty"`
	TreadDepth         TreadDepthMeasurement `json:"tread_depth" gorm:"serializer:json"`
	TireSize           TireSizeInfo          `json:"tire_size" gorm:"serializer:json"`
	DotCode            DotCodeInfo           `json:"dot_code" gorm:"serializer:json"`
	Defects            []TireDefect          `json:"defects" gorm:"serializer:json"`
	OverallHealthScore float64               `json:"overall_health_score"`
	OverallStatus      HealthStatus          `json:"overall_status" gorm:"index"`
	PrimaryConcerns    []string              `json:"primary_concerns" gorm:"serializer:json"`
	Recommendations    []TireRecommendation  `json:"recommendations" gorm:"serializer:json"`
	ActionRequired     ActionRequired        `json:"action_required" gorm:"index"`
	EstimatedCost      *CostRange            `json:"estimated_cost,omitempty" gorm:"serializer:json"`
	ModelJobID         string                `json:"model_job_id,omitempty" gorm:"-"`
}

// AnalysisSummary is the aggregate view returned by the statistics endpoint.
type AnalysisSummary struct {
	TotalAnalyses    int64            `json:"total_analyses"`
	AvgHealthScore   float64          `json:"avg_health_score"`
	ByStatus         map[string]int64 `json:"by_status"`
	ByActionRequired map[string]int64 `json:"by_action_required"`
	WithDefects      int64            `json:"with_defects"`
	ModelJobs        map[string]int64 `json:"model_jobs"`
}

func (ComprehensiveTireAnalysis) TableName() string {
	return "tire_analyses"
}
