// Package scoring combines decoded tire signals into one composite health score.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"tirecheck/models"
)

const (
	// NewTreadDepthMM is the reference depth of a new passenger tire.
	NewTreadDepthMM = 8.0
	// LegalMinTreadDepthMM is the replacement limit.
	LegalMinTreadDepthMM = 1.6
	// ExcellentTreadDepthMM is where the wear curve leaves its full-score
	// plateau at 25% wear. Excellent tread always earns the full base score.
	ExcellentTreadDepthMM = NewTreadDepthMM - 0.25*(NewTreadDepthMM-LegalMinTreadDepthMM)

	// UnreliableTreadBaseScore replaces the tread contribution when the reading
	// is below the confidence threshold.
	UnreliableTreadBaseScore = 60.0

	defectPenaltyPerPriority = 10.0
	maxDefectPenalty         = 60.0
)

// Source identifies which signal a concern came from.
type Source string

const (
	SourceTread  Source = "tread"
	SourceDefect Source = "defect"
	SourceAge    Source = "age"
)

// TreadCondition grades the shallowest tread point.
type TreadCondition string

const (
	TreadExcellent  TreadCondition = "excellent"
	TreadGood       TreadCondition = "good"
	TreadFair       TreadCondition = "fair"
	TreadPoor       TreadCondition = "poor"
	TreadCritical   TreadCondition = "critical"
	TreadUnreliable TreadCondition = "unreliable"
)

// Concern is one human readable cause behind the score.
type Concern struct {
	Source      Source
	Priority    int
	Text        string
	WearPattern models.WearPattern
	Defect      *models.TireDefect
	AgeStatus   models.AgeStatus
}

// Result is the scorer output. It also carries the inputs so that the
// recommendation generator can work from it alone.
type Result struct {
	Score          float64
	Status         models.HealthStatus
	WearPercentage float64
	TreadCondition TreadCondition
	Concerns       []Concern

	Tread   models.TreadDepthMeasurement
	Size    models.TireSizeInfo
	DOT     models.DotCodeInfo
	Defects []models.TireDefect
}

// PrimaryConcerns returns the concern texts in priority order.
func (r Result) PrimaryConcerns() []string {
	out := make([]string, 0, len(r.Concerns))
	for _, c := range r.Concerns {
		out = append(out, c.Text)
	}
	return out
}

// wearCurve maps wear percentage to the base score; linear between points.
var wearCurve = []struct{ wear, score float64 }{
	{0, 100},
	{25, 100},
	{50, 80},
	{75, 55},
	{90, 35},
	{100, 15},
}

// Score is deterministic: identical input yields identical output.
func Score(tread models.TreadDepthMeasurement, size models.TireSizeInfo, dot models.DotCodeInfo, defects []models.TireDefect) Result {
	wear := WearPercentage(tread.AverageDepth)

	base := UnreliableTreadBaseScore
	if tread.IsValid() {
		base = BaseScore(wear)
	}
	total := base - DefectPenalty(defects) - AgePenalty(dot.AgeStatus)
	score := math.Round(clamp(total, 0, 100)*10) / 10

	res := Result{
		Score:          score,
		Status:         models.StatusForScore(score),
		WearPercentage: math.Round(wear*10) / 10,
		TreadCondition: ClassifyTread(tread),
		Tread:          tread,
		Size:           size,
		DOT:            dot,
		Defects:        defects,
	}
	res.Concerns = concerns(res)
	return res
}

// WearPercentage converts an average depth into percent of usable tread consumed.
func WearPercentage(avgDepth float64) float64 {
	used := (NewTreadDepthMM - avgDepth) / (NewTreadDepthMM - LegalMinTreadDepthMM) * 100
	return clamp(used, 0, 100)
}

// BaseScore evaluates the wear curve.
func BaseScore(wear float64) float64 {
	wear = clamp(wear, 0, 100)
	for i := 1; i < len(wearCurve); i++ {
		lo, hi := wearCurve[i-1], wearCurve[i]
		if wear <= hi.wear {
			frac := (wear - lo.wear) / (hi.wear - lo.wear)
			return lo.score + frac*(hi.score-lo.score)
		}
	}
	return wearCurve[len(wearCurve)-1].score
}

// DefectPenalty sums priority-weighted, confidence-scaled penalties, capped
// so the defect contribution alone stays bounded.
func DefectPenalty(defects []models.TireDefect) float64 {
	var sum float64
	for _, d := range defects {
		sum += float64(d.Severity.Priority()) * defectPenaltyPerPriority * clamp(d.Confidence, 0, 1)
	}
	return min(sum, maxDefectPenalty)
}

// AgePenalty applies from the aging bucket onwards.
func AgePenalty(status models.AgeStatus) float64 {
	switch status {
	case models.AgeAging:
		return 10
	case models.AgeOld:
		return 20
	case models.AgeExpired:
		return 30
	case models.AgeNew, models.AgeGood, models.AgeUnknown:
		return 0
	default:
		return 0
	}
}

// ClassifyTread grades the shallowest point of a valid reading.
func ClassifyTread(t models.TreadDepthMeasurement) TreadCondition {
	if !t.IsValid() {
		return TreadUnreliable
	}
	switch d := t.MinDepth; {
	case d < LegalMinTreadDepthMM:
		return TreadCritical
	case d < 3:
		return TreadPoor
	case d < 4:
		return TreadFair
	case d < ExcellentTreadDepthMM:
		return TreadGood
	default:
		return TreadExcellent
	}
}

// concerns evaluates tread, then defects, then age; the stable sort keeps
// that order for equal priorities.
func concerns(r Result) []Concern {
	var out []Concern

	switch r.TreadCondition {
	case TreadUnreliable:
		out = append(out, Concern{
			Source:   SourceTread,
			Priority: 1,
			Text:     fmt.Sprintf("Tread depth reading is unreliable (confidence %.0f%%)", r.Tread.Confidence*100),
		})
	case TreadCritical:
		out = append(out, Concern{
			Source:   SourceTread,
			Priority: 4,
			Text:     fmt.Sprintf("Tread depth %.1f mm is below the %.1f mm legal minimum", r.Tread.MinDepth, LegalMinTreadDepthMM),
		})
	case TreadPoor:
		out = append(out, Concern{
			Source:   SourceTread,
			Priority: 3,
			Text:     fmt.Sprintf("Tread depth %.1f mm is close to the legal minimum", r.Tread.MinDepth),
		})
	case TreadFair:
		out = append(out, Concern{
			Source:   SourceTread,
			Priority: 2,
			Text:     fmt.Sprintf("Tread worn to %.1f mm", r.Tread.MinDepth),
		})
	case TreadGood, TreadExcellent:
	}

	if r.TreadCondition != TreadUnreliable {
		if cause := r.Tread.WearPattern.Cause(); cause != "" {
			out = append(out, Concern{
				Source:      SourceTread,
				Priority:    2,
				Text:        cause,
				WearPattern: r.Tread.WearPattern,
			})
		}
	}

	for i := range r.Defects {
		d := r.Defects[i]
		if d.Severity.Priority() == 0 {
			continue
		}
		out = append(out, Concern{
			Source:   SourceDefect,
			Priority: d.Severity.Priority(),
			Text:     d.Summary(),
			Defect:   &d,
		})
	}

	if sev := r.DOT.AgeStatus.Severity(); sev > 0 {
		out = append(out, Concern{
			Source:    SourceAge,
			Priority:  sev,
			Text:      ageText(r.DOT),
			AgeStatus: r.DOT.AgeStatus,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

func ageText(dot models.DotCodeInfo) string {
	years := float64(dot.AgeInMonths) / 12
	switch dot.AgeStatus {
	case models.AgeExpired:
		return fmt.Sprintf("Tire is %.1f years old and past the 10 year service limit", years)
	case models.AgeOld:
		return fmt.Sprintf("Tire is %.1f years old; rubber compounds harden with age", years)
	default:
		return fmt.Sprintf("Tire is %.1f years old and should be inspected yearly", years)
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
