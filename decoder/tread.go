package decoder

import (
	"math"
	"time"

	"tirecheck/models"
)

const (
	// wearPatternThresholdMM is the depth difference that counts as uneven wear.
	wearPatternThresholdMM = 0.8
	// maxPlausibleDepthMM rejects samples no passenger or light truck tire can have.
	maxPlausibleDepthMM = 30.0
)

// EmptyTread is the sentinel for an unusable tread reading.
func EmptyTread(now time.Time) models.TreadDepthMeasurement {
	return models.TreadDepthMeasurement{
		WearPattern: models.WearUnknown,
		MeasuredAt:  now,
	}
}

// DecodeTread averages the raw samples at each lateral point.
func DecodeTread(raw TreadSample, now time.Time) models.TreadDepthMeasurement {
	inner, okInner := meanDepth(raw.InnerMM)
	center, okCenter := meanDepth(raw.CenterMM)
	outer, okOuter := meanDepth(raw.OuterMM)
	if !okInner || !okCenter || !okOuter {
		return EmptyTread(now)
	}

	inner, center, outer = round2(inner), round2(center), round2(outer)
	return models.TreadDepthMeasurement{
		InnerDepth:   inner,
		CenterDepth:  center,
		OuterDepth:   outer,
		AverageDepth: round2((inner + center + outer) / 3),
		MinDepth:     min(inner, center, outer),
		WearPattern:  classifyWear(inner, center, outer),
		Confidence:   clampUnit(raw.Confidence),
		QualityScore: clampUnit(raw.QualityScore),
		MeasuredAt:   now,
	}
}

func meanDepth(samples []float64) (float64, bool) {
	var sum float64
	var n int
	for _, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 || s > maxPlausibleDepthMM {
			continue
		}
		sum += s
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func classifyWear(inner, center, outer float64) models.WearPattern {
	const t = wearPatternThresholdMM
	switch {
	case center+t <= min(inner, outer):
		return models.WearCenter
	case inner+t <= center && outer+t <= center:
		return models.WearEdges
	case inner+t <= outer:
		return models.WearInnerEdge
	case outer+t <= inner:
		return models.WearOuterEdge
	default:
		return models.WearEven
	}
}
