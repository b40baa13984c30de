// Package decoder turns raw recognition output into typed, confidence-scored
// tire facts. Decoders never fail: malformed input yields a same-shaped
// sentinel with confidence 0.
package decoder

import (
	"math"
	"time"

	"tirecheck/models"
)

// TreadSample holds raw depth samples (mm) at the three lateral points.
type TreadSample struct {
	InnerMM      []float64 `json:"inner_mm"`
	CenterMM     []float64 `json:"center_mm"`
	OuterMM      []float64 `json:"outer_mm"`
	Confidence   float64   `json:"confidence"`
	QualityScore float64   `json:"quality_score"`
}

// TextReading is an OCR result from the sidewall.
type TextReading struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Detection is one raw defect detection.
type Detection struct {
	Label       string  `json:"label"`
	Severity    string  `json:"severity"`
	Confidence  float64 `json:"confidence"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Description string  `json:"description,omitempty"`
}

// Recognition is the full structured output of the recognition pipeline
// for one tire capture.
type Recognition struct {
	Tread      TreadSample `json:"tread"`
	Sidewall   TextReading `json:"sidewall"`
	DOT        TextReading `json:"dot"`
	Detections []Detection `json:"detections"`
}

// Signals are the decoded facts consumed by the scorer.
type Signals struct {
	Tread   models.TreadDepthMeasurement
	Size    models.TireSizeInfo
	DOT     models.DotCodeInfo
	Defects []models.TireDefect
}

// Decode runs every decoder over r.
func Decode(r Recognition, now time.Time) Signals {
	return Signals{
		Tread:   DecodeTread(r.Tread, now),
		Size:    DecodeSize(r.Sidewall),
		DOT:     DecodeDOT(r.DOT, now),
		Defects: DecodeDefects(r.Detections),
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
