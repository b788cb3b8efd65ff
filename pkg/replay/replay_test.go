package replay

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexreplay/apexreplay-service-go/pkg/model"
)

func point(distance, speed, lon, lat float64) model.TelemetrySample {
	ret := model.NewTelemetrySample()
	ret.Timestamp = time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	ret.Distance = distance
	ret.Speed = speed
	ret.Lon = lon
	ret.Lat = lat
	ret.Throttle = 50
	ret.Brake = 0
	return ret
}

func TestInterpolateChannelLinearInterior(t *testing.T) {
	nan := math.NaN()
	samples := []model.TelemetrySample{
		point(nan, 0, 0, 0),
		point(100, 0, 0, 0),
		point(nan, 0, 0, 0),
		point(nan, 0, 0, 0),
		point(400, 0, 0, 0),
		point(nan, 0, 0, 0),
	}
	interpolateChannel(samples, model.ChannelDistance)
	got := make([]float64, len(samples))
	for i := range samples {
		got[i] = samples[i].Distance
	}
	// edges extend, interior is linear over the index
	assert.InDeltaSlice(t, []float64{100, 100, 200, 300, 400, 400}, got, 0.001)
}

func TestInterpolateChannelAllUnknownIsZero(t *testing.T) {
	samples := []model.TelemetrySample{point(math.NaN(), 0, 0, 0), point(math.NaN(), 0, 0, 0)}
	interpolateChannel(samples, model.ChannelDistance)
	assert.Zero(t, samples[0].Distance)
	assert.Zero(t, samples[1].Distance)
}

func TestBuildTimelineMonotonicTime(t *testing.T) {
	samples := []model.TelemetrySample{
		point(0, 72, 0, 0),
		point(20, 72, 0.001, 0.001),
		point(15, 72, 0.002, 0.002), // negative delta, skipped
		point(40, 72, 0.003, 0.003),
	}
	timeline := buildTimeline(samples)
	require.Len(t, timeline, 3)
	assert.Zero(t, timeline[0].Time)
	for i := 1; i < len(timeline); i++ {
		assert.GreaterOrEqual(t, timeline[i].Time, timeline[i-1].Time)
	}
	// 20 m at 20 m/s -> 1 s per retained pair
	assert.InDelta(t, 1.0, timeline[1].Time, 0.001)
}

func TestBuildTimelineTeleportFilter(t *testing.T) {
	// physical jump of ~200 m while the odometer only advanced 2 m
	jumpMinutes := 200.0 / metersPerMinute
	samples := []model.TelemetrySample{
		point(0, 72, 0, 0),
		point(2, 72, jumpMinutes, 0),
		point(22, 72, jumpMinutes+0.0001, 0),
	}
	timeline := buildTimeline(samples)
	// the teleport pair is dropped, the following pair survives
	require.Len(t, timeline, 2)
	assert.InDelta(t, 22, timeline[1].Distance, 0.001)
}

func TestBuildTimelineOdometerSpikeClamped(t *testing.T) {
	// odometer claims 400 m while the car physically moved ~20 m
	moveMinutes := 20.0 / metersPerMinute
	samples := []model.TelemetrySample{
		point(0, 72, 0, 0),
		point(400, 72, moveMinutes, 0),
	}
	timeline := buildTimeline(samples)
	require.Len(t, timeline, 2)
	// time step uses the clamped ~20 m at 20 m/s
	assert.InDelta(t, 1.0, timeline[1].Time, 0.01)
}

func TestBuildTimelineSlowSpeedFallback(t *testing.T) {
	samples := []model.TelemetrySample{
		point(0, 0, 0, 0),
		point(5, 0, 0.0001, 0),
	}
	timeline := buildTimeline(samples)
	require.Len(t, timeline, 2)
	// 5 m at the 1 m/s fallback
	assert.InDelta(t, 5.0, timeline[1].Time, 0.001)
}

func TestDownsampleTimelineBudget(t *testing.T) {
	timeline := make([]model.TimelinePoint, 10000)
	for i := range timeline {
		timeline[i] = model.TimelinePoint{Time: float64(i)}
	}
	down := downsampleTimeline(timeline, DefaultMaxPoints)
	assert.LessOrEqual(t, len(down), DefaultMaxPoints)
	assert.Zero(t, down[0].Time)
	assert.InDelta(t, 9999, down[len(down)-1].Time, 0.001)

	short := downsampleTimeline(timeline[:100], DefaultMaxPoints)
	assert.Len(t, short, 100)
}

func TestTrackBounds(t *testing.T) {
	samples := []model.TelemetrySample{
		point(0, 0, -86.62, 33.53),
		point(10, 0, -86.60, 33.55),
	}
	bounds := trackBounds(samples)
	assert.InDelta(t, -86.62, bounds.MinX, 0.001)
	assert.InDelta(t, -86.60, bounds.MaxX, 0.001)
	assert.InDelta(t, 33.53, bounds.MinZ, 0.001)
	assert.InDelta(t, 33.55, bounds.MaxZ, 0.001)
}

func TestCleanNumber(t *testing.T) {
	assert.Zero(t, cleanNumber(math.NaN()))
	assert.Zero(t, cleanNumber(math.Inf(1)))
	assert.Equal(t, 1.5, cleanNumber(1.5))
}
