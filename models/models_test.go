package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  HealthStatus
	}{
		{100, StatusExcellent},
		{85, StatusExcellent},
		{84.9, StatusGood},
		{70, StatusGood},
		{55, StatusFair},
		{35, StatusPoor},
		{34.99, StatusCritical},
		{0, StatusCritical},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StatusForScore(tc.score), "score %v", tc.score)
	}
}

func TestAgeStatusSeverityIsMonotonic(t *testing.T) {
	prev := -1
	for months := 0; months <= 200; months++ {
		sev := AgeStatusForMonths(months).Severity()
		require.GreaterOrEqual(t, sev, prev, "months %d", months)
		prev = sev
	}
	require.Equal(t, AgeNew, AgeStatusForMonths(35))
	require.Equal(t, AgeGood, AgeStatusForMonths(36))
	require.Equal(t, AgeAging, AgeStatusForMonths(60))
	require.Equal(t, AgeOld, AgeStatusForMonths(72))
	require.Equal(t, AgeExpired, AgeStatusForMonths(120))
}

func TestTreadIsValid(t *testing.T) {
	for _, c := range []float64{0, 0.5, 0.69, 0.7, 0.71, 1} {
		m := TreadDepthMeasurement{Confidence: c}
		require.Equal(t, c >= 0.7, m.IsValid(), "confidence %v", c)
	}
}

func TestSeverityPriorityOrdering(t *testing.T) {
	order := []DefectSeverity{SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		require.Greater(t, order[i].Priority(), order[i-1].Priority())
	}
	require.Equal(t, 0, DefectSeverity("bogus").Priority())
}

func TestMaxAction(t *testing.T) {
	require.Equal(t, ActionNone, MaxAction())
	require.Equal(t, ActionDoNotDrive, MaxAction(ActionReplace, ActionDoNotDrive, ActionMonitor))
	require.Equal(t, ActionReplace, MaxAction(ActionReplace, ActionReplace))
	require.True(t, ActionReplace.AtLeast(ActionServiceImmediately))
	require.False(t, ActionMonitor.AtLeast(ActionServiceImmediately))
}

func TestJobStatusTerminal(t *testing.T) {
	require.False(t, JobPending.IsTerminal())
	require.False(t, JobProcessing.IsTerminal())
	require.True(t, JobCompleted.IsTerminal())
	require.True(t, JobFailed.IsTerminal())
	require.True(t, JobProcessing.IsActive())
	require.False(t, JobFailed.IsActive())
}

func TestBoundingRegionCenter(t *testing.T) {
	r := BoundingRegion{X: 10, Y: 20, Width: 8, Height: 6}
	x, y := r.Center()
	require.Equal(t, 14.0, x)
	require.Equal(t, 23.0, y)
	require.Equal(t, 48.0, r.Area())
}
