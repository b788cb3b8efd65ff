package session_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexreplay/apexreplay-service-go/pkg/session"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
	"github.com/apexreplay/apexreplay-service-go/testsupport/basedata"
)

func setupSession(t *testing.T) *session.Session {
	t.Helper()
	dataDir := t.TempDir()
	_, err := basedata.SetupCircuit(dataDir)
	require.NoError(t, err)

	st, err := store.New(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return session.New(st)
}

func TestCircuitDiscovery(t *testing.T) {
	sess := setupSession(t)
	circuits := sess.Circuits()
	require.Len(t, circuits, 1)
	assert.Equal(t, basedata.CircuitID, circuits[0].ID)
	assert.Equal(t, "Barber Motorsports Park", circuits[0].Name)
	assert.Contains(t, circuits[0].Races, basedata.Race)
}

func TestVehicleListing(t *testing.T) {
	sess := setupSession(t)
	vehicles, err := sess.Vehicles(context.Background(), basedata.CircuitID, basedata.Race)
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.Equal(t, basedata.ChassisA, vehicles[0].Chassis)
	assert.Equal(t, basedata.CarNumberA, vehicles[0].CarNumber)
	assert.Equal(t, 4, vehicles[0].TotalLaps)
}

func TestLapTimesFromEvents(t *testing.T) {
	sess := setupSession(t)
	lapTimes, err := sess.LapTimes(context.Background(), basedata.CircuitID, basedata.Race)
	require.NoError(t, err)
	require.Len(t, lapTimes, 6)

	// a lap time carries the lap number of the closing trigger event
	mine := make(map[int]float64)
	for _, lt := range lapTimes {
		if lt.Chassis == basedata.ChassisA {
			mine[lt.Lap] = lt.Seconds
		}
	}
	assert.InDelta(t, 92.5, mine[2], 0.01)
	assert.InDelta(t, 91.8, mine[3], 0.01)
	assert.InDelta(t, 92.7, mine[4], 0.01)
}

func TestLapTelemetryPivot(t *testing.T) {
	sess := setupSession(t)
	samples, err := sess.LapTelemetry(context.Background(),
		basedata.CircuitID, basedata.ChassisA, basedata.CarNumberA, 2, basedata.Race)
	require.NoError(t, err)
	require.Len(t, samples, 10)

	first := samples[0]
	assert.False(t, math.IsNaN(first.Speed))
	assert.False(t, math.IsNaN(first.Distance))
	assert.False(t, math.IsNaN(first.Lon))
	assert.False(t, math.IsNaN(first.Lat))

	last := samples[len(samples)-1]
	assert.InDelta(t, 3600.0, last.Distance, 0.01)
}

func TestLapTelemetryMissingLap(t *testing.T) {
	sess := setupSession(t)
	_, err := sess.LapTelemetry(context.Background(),
		basedata.CircuitID, basedata.ChassisA, basedata.CarNumberA, 99, basedata.Race)
	assert.ErrorIs(t, err, session.ErrNoTelemetryForLap)
}

func TestRaceResultsSummary(t *testing.T) {
	sess := setupSession(t)
	results := sess.RaceResults(context.Background(), basedata.CircuitID, basedata.Race)
	require.NotNil(t, results)
	assert.Equal(t, "44", results.Overall.Number)
	require.NotNil(t, results.BestLap)
	assert.Equal(t, "44", results.BestLap.Number)
	require.Len(t, results.Classes, 1)
	assert.Equal(t, "GT4", results.Classes[0].Class)
}

func TestWeatherSummary(t *testing.T) {
	sess := setupSession(t)
	weather := sess.Weather(context.Background(), basedata.CircuitID, basedata.Race)
	require.NotNil(t, weather)
	assert.Equal(t, 3, weather.Samples)
	assert.False(t, weather.Rain)
	require.NotNil(t, weather.TrackTemp)
	// the zero reading is a cold sensor, not a real temperature
	assert.InDelta(t, 31.4, weather.TrackTemp.Min, 0.01)
}
