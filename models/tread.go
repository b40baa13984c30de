package models

import "time"

// MinValidTreadConfidence is the confidence at which a tread reading is trusted.
const MinValidTreadConfidence = 0.7

// WearPattern describes how tread wear is distributed across the contact patch.
type WearPattern string

const (
	WearEven      WearPattern = "even"
	WearCenter    WearPattern = "center"
	WearEdges     WearPattern = "edges"
	WearInnerEdge WearPattern = "inner_edge"
	WearOuterEdge WearPattern = "outer_edge"
	WearUnknown   WearPattern = "unknown"
)

// Cause returns the human readable cause of the pattern, empty for even wear.
func (w WearPattern) Cause() string {
	switch w {
	case WearCenter:
		return "Center tread wear indicates over-inflation"
	case WearEdges:
		return "Shoulder wear on both edges indicates under-inflation"
	case WearInnerEdge:
		return "Inner edge wear indicates wheel misalignment (camber/toe)"
	case WearOuterEdge:
		return "Outer edge wear indicates wheel misalignment or hard cornering"
	case WearEven, WearUnknown:
		return ""
	default:
		return ""
	}
}

// TreadDepthMeasurement is a wear reading at three lateral points, in mm.
type TreadDepthMeasurement struct {
	InnerDepth   float64     `json:"inner_depth"`
	CenterDepth  float64     `json:"center_depth"`
	OuterDepth   float64     `json:"outer_depth"`
	AverageDepth float64     `json:"average_depth"`
	MinDepth     float64     `json:"min_depth"`
	WearPattern  WearPattern `json:"wear_pattern"`
	Confidence   float64     `json:"confidence"`
	QualityScore float64     `json:"quality_score"`
	MeasuredAt   time.Time   `json:"measured_at"`
}

// IsValid reports whether the reading is confident enough to score on.
func (t TreadDepthMeasurement) IsValid() bool {
	return t.Confidence >= MinValidTreadConfidence
}

// MaxDepth returns the deepest of the three lateral points.
func (t TreadDepthMeasurement) MaxDepth() float64 {
	return max(t.InnerDepth, t.CenterDepth, t.OuterDepth)
}
