package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tirecheck/models"
)

func tread(avg float64, conf float64) models.TreadDepthMeasurement {
	return models.TreadDepthMeasurement{
		InnerDepth:   avg,
		CenterDepth:  avg,
		OuterDepth:   avg,
		AverageDepth: avg,
		MinDepth:     avg,
		WearPattern:  models.WearEven,
		Confidence:   conf,
	}
}

func dot(months int) models.DotCodeInfo {
	return models.DotCodeInfo{AgeInMonths: months, AgeStatus: models.AgeStatusForMonths(months), Confidence: 0.9}
}

func TestScoreHealthyTire(t *testing.T) {
	res := Score(tread(7, 0.9), models.TireSizeInfo{}, dot(10), nil)
	require.Equal(t, 100.0, res.Score)
	require.Equal(t, models.StatusExcellent, res.Status)
	require.Empty(t, res.Concerns)
	require.Equal(t, TreadExcellent, res.TreadCondition)
}

func TestExcellentTreadEarnsFullScore(t *testing.T) {
	for _, depth := range []float64{ExcellentTreadDepthMM, 6.5, NewTreadDepthMM} {
		res := Score(tread(depth, 0.9), models.TireSizeInfo{}, dot(10), nil)
		require.Equal(t, TreadExcellent, res.TreadCondition, depth)
		require.Equal(t, 100.0, res.Score, depth)
		require.Equal(t, models.StatusExcellent, res.Status, depth)
	}

	// below the plateau the tire is no longer graded excellent
	res := Score(tread(6.0, 0.9), models.TireSizeInfo{}, dot(10), nil)
	require.Equal(t, TreadGood, res.TreadCondition)
	require.Less(t, res.Score, 100.0)
	require.Empty(t, res.Concerns)
}

func TestScoreWornCrackedExpiredTire(t *testing.T) {
	defects := []models.TireDefect{
		{Type: models.DefectSidewallCrack, Severity: models.SeverityHigh, Confidence: 0.9, Description: "Sidewall crack near bead"},
	}
	res := Score(tread(1.5, 0.9), models.TireSizeInfo{}, dot(130), defects)

	require.Equal(t, 0.0, res.Score)
	require.Equal(t, models.StatusCritical, res.Status)
	require.Equal(t, TreadCritical, res.TreadCondition)
	require.Equal(t, []string{
		"Tread depth 1.5 mm is below the 1.6 mm legal minimum",
		"Sidewall crack near bead",
		"Tire is 10.8 years old and past the 10 year service limit",
	}, res.PrimaryConcerns())
}

func TestScoreBounds(t *testing.T) {
	severities := []models.DefectSeverity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}
	for _, depth := range []float64{0, 1, 1.6, 3, 4.5, 6, 8, 12} {
		for _, conf := range []float64{0, 0.5, 0.9} {
			for months := 0; months <= 200; months += 25 {
				var defects []models.TireDefect
				for n := 0; n < 6; n++ {
					res := Score(tread(depth, conf), models.TireSizeInfo{}, dot(months), defects)
					require.GreaterOrEqual(t, res.Score, 0.0)
					require.LessOrEqual(t, res.Score, 100.0)
					defects = append(defects, models.TireDefect{Type: models.DefectCut, Severity: severities[n%len(severities)], Confidence: 1})
				}
			}
		}
	}
}

func TestAddingDefectNeverIncreasesScore(t *testing.T) {
	severities := []models.DefectSeverity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}
	for _, depth := range []float64{2, 4, 7} {
		var defects []models.TireDefect
		prev := Score(tread(depth, 0.9), models.TireSizeInfo{}, dot(40), defects).Score
		for i := 0; i < 8; i++ {
			defects = append(defects, models.TireDefect{Type: models.DefectPuncture, Severity: severities[i%4], Confidence: 0.8})
			next := Score(tread(depth, 0.9), models.TireSizeInfo{}, dot(40), defects).Score
			require.LessOrEqual(t, next, prev)
			prev = next
		}
	}
}

func TestSingleCatastrophicDefectIsCapped(t *testing.T) {
	defects := []models.TireDefect{{Type: models.DefectBulge, Severity: models.SeverityCritical, Confidence: 1}}
	require.Equal(t, 40.0, DefectPenalty(defects))
	many := append(defects, defects[0], defects[0])
	require.Equal(t, 60.0, DefectPenalty(many))
}

func TestUnreliableTreadUsesMidRangeDefault(t *testing.T) {
	res := Score(tread(0.5, 0.4), models.TireSizeInfo{}, dot(10), nil)
	require.Equal(t, UnreliableTreadBaseScore, res.Score)
	require.Equal(t, models.StatusFair, res.Status)
	require.Equal(t, TreadUnreliable, res.TreadCondition)
	require.Equal(t, []string{"Tread depth reading is unreliable (confidence 40%)"}, res.PrimaryConcerns())
}

func TestBaseScoreCurve(t *testing.T) {
	require.Equal(t, 100.0, BaseScore(0))
	require.Equal(t, 100.0, BaseScore(25))
	require.InDelta(t, 90.0, BaseScore(37.5), 1e-9)
	require.Equal(t, 15.0, BaseScore(100))
	prev := BaseScore(0)
	for w := 0.0; w <= 100; w += 0.5 {
		cur := BaseScore(w)
		require.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestWearPercentage(t *testing.T) {
	require.Equal(t, 0.0, WearPercentage(9))
	require.Equal(t, 100.0, WearPercentage(1.5))
	require.InDelta(t, 50.0, WearPercentage(4.8), 1e-9)
}

func TestAgePenaltyStartsAtAging(t *testing.T) {
	require.Zero(t, AgePenalty(models.AgeNew))
	require.Zero(t, AgePenalty(models.AgeGood))
	require.Zero(t, AgePenalty(models.AgeUnknown))
	require.Equal(t, 10.0, AgePenalty(models.AgeAging))
	require.Equal(t, 20.0, AgePenalty(models.AgeOld))
	require.Equal(t, 30.0, AgePenalty(models.AgeExpired))
}

func TestConcernTieBreakKeepsEvaluationOrder(t *testing.T) {
	tr := tread(3.5, 0.9)
	tr.WearPattern = models.WearCenter
	defects := []models.TireDefect{
		{Type: models.DefectCut, Severity: models.SeverityMedium, Confidence: 0.9, Description: "cut"},
	}
	res := Score(tr, models.TireSizeInfo{}, dot(80), defects)

	require.Equal(t, []string{
		"Tread worn to 3.5 mm",
		models.WearCenter.Cause(),
		"cut",
		"Tire is 6.7 years old; rubber compounds harden with age",
	}, res.PrimaryConcerns())
}

func TestScoreIsDeterministic(t *testing.T) {
	defects := []models.TireDefect{{Type: models.DefectDryRot, Severity: models.SeverityMedium, Confidence: 0.77}}
	a := Score(tread(4.2, 0.85), models.TireSizeInfo{Width: 205}, dot(66), defects)
	b := Score(tread(4.2, 0.85), models.TireSizeInfo{Width: 205}, dot(66), defects)
	require.Equal(t, a, b)
}
