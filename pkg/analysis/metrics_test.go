package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexreplay/apexreplay-service-go/pkg/model"
)

func history(times ...float64) []model.LapTime {
	ret := make([]model.LapTime, 0, len(times))
	for i, seconds := range times {
		ret = append(ret, model.LapTime{
			Chassis: "992", CarNumber: 17, Lap: i + 1, Seconds: seconds,
		})
	}
	return ret
}

func TestBuildConsistencyNoOutliers(t *testing.T) {
	c := buildConsistency(history(92.1, 91.8, 93.0, 90.9))
	require.NotNil(t, c)
	assert.Empty(t, c.Outliers)
	assert.InDelta(t, 91.95, c.AverageTime, 0.001)
	assert.InDelta(t, 90.9, c.BestTime, 0.001)
	assert.InDelta(t, 93.0, c.WorstTime, 0.001)
	assert.Equal(t, "Great consistency overall. Keep building rhythm.", c.Recommendation)
}

func TestBuildConsistencyFlagsOutlier(t *testing.T) {
	// a 2-sigma population threshold needs enough baseline laps before a
	// single blown lap can exceed it
	c := buildConsistency(history(
		92.1, 91.8, 93.0, 90.9, 92.5, 91.5, 92.8, 92.0, 130.0))
	require.NotNil(t, c)
	assert.Equal(t, []int{9}, c.Outliers)
	assert.Equal(t, "Watch laps 9: pace dropped well below the average.", c.Recommendation)
}

func TestBuildConsistencyLapStatuses(t *testing.T) {
	c := buildConsistency(history(95, 92, 98, 94))
	require.NotNil(t, c)
	require.Len(t, c.Laps, 4)
	assert.Equal(t, "Personal best", c.Laps[1].Status)
	assert.Equal(t, "🏆", c.Laps[1].Icon)
	assert.Equal(t, "Slowest lap", c.Laps[2].Status)
	assert.Equal(t, "❌", c.Laps[2].Icon)
}

func TestBuildConsistencySingleLap(t *testing.T) {
	c := buildConsistency(history(95))
	require.NotNil(t, c)
	assert.Zero(t, c.StdDev)
	assert.InDelta(t, 100, c.Score, 0.001)
	assert.Nil(t, buildConsistency(nil))
}

func TestBuildProgressionImprovement(t *testing.T) {
	p := buildProgression(history(97.0, 95.5, 94.2))
	require.NotNil(t, p)
	assert.InDelta(t, 2.8, p.TotalImprovement, 0.001)
	require.Len(t, p.Laps, 3)
	assert.InDelta(t, 1.5, p.Laps[1].DeltaPrev, 0.001)
	assert.InDelta(t, 2.8, p.Laps[2].ImprovementFromStart, 0.001)
	require.NotEmpty(t, p.Insights)
	assert.Equal(t, "Improved 2.80s from lap 1 to best lap.", p.Insights[0])
}

func TestBuildProgressionFlatPace(t *testing.T) {
	p := buildProgression(history(94.0, 94.5, 95.0))
	require.NotNil(t, p)
	assert.Equal(t, "Pace stayed flat versus the opening lap.", p.Insights[0])
}

func TestBuildProgressionPlateau(t *testing.T) {
	p := buildProgression(history(97.0, 95.0, 95.05, 95.02))
	require.NotNil(t, p)
	require.Len(t, p.Insights, 2)
	assert.Equal(t, "Pace plateau detected around lap 3.", p.Insights[1])
}

func TestClassifyVariance(t *testing.T) {
	assert.Equal(t, "excellent", classifyVariance(1.49))
	assert.Equal(t, "good", classifyVariance(1.5))
	assert.Equal(t, "good", classifyVariance(3.49))
	assert.Equal(t, "ok", classifyVariance(3.5))
	assert.Equal(t, "ok", classifyVariance(6.99))
	assert.Equal(t, "weak", classifyVariance(7.0))
}

func TestSectorSpeedMeans(t *testing.T) {
	samples := []model.TelemetrySample{
		sample(10, 100, 0, 0),
		sample(50, 120, 0, 0),
		sample(210, 140, 0, 0),
	}
	means := sectorSpeedMeans(samples, 200)
	require.Len(t, means, 2)
	assert.InDelta(t, 110, means[0], 0.001)
	assert.InDelta(t, 140, means[1], 0.001)
}

func TestBuildRaceTimelineGaps(t *testing.T) {
	user := history(95.0, 94.0, 93.0)
	goldenTimes := []model.LapTime{
		{Chassis: "981", CarNumber: 44, Lap: 1, Seconds: 92.0},
		{Chassis: "981", CarNumber: 44, Lap: 3, Seconds: 91.0},
	}
	all := append(append([]model.LapTime{}, user...), goldenTimes...)
	golden := model.GoldenLap{Chassis: "981", CarNumber: 44, Lap: 3, Seconds: 91.0}

	timeline := buildRaceTimeline(user, all, golden)
	require.Len(t, timeline, 3)

	require.NotNil(t, timeline[0].GapToGolden)
	assert.InDelta(t, 3.0, *timeline[0].GapToGolden, 0.001)
	// golden vehicle has no lap 2: gap unknown, cumulative keeps running
	assert.Nil(t, timeline[1].GapToGolden)
	require.NotNil(t, timeline[2].GapToGolden)
	assert.InDelta(t, 99.0, *timeline[2].GapToGolden, 0.001)
	assert.InDelta(t, 282.0, timeline[2].Cumulative, 0.001)
}
