package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexreplay/apexreplay-service-go/pkg/model"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

func lapEventTable(rows [][]string) *store.Table {
	return &store.Table{
		Columns: []string{"timestamp", "vehicle_id", "lap"},
		Rows:    rows,
	}
}

func TestParseLapEvents(t *testing.T) {
	tbl := lapEventTable([][]string{
		{"2024-05-04 10:00:00", "GT4-992-17", "1"},
		{"2024-05-04 10:01:35", "GT4-992-17", "2"},
		{"2024-05-04 10:00:10", "GT4-981-44", "0"}, // dropped, lap <= 0
		{"2024-05-04 10:00:12", "bogus", "1"},      // dropped, malformed id
	})
	events, err := parseLapEvents(tbl, "lap_time.csv")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "992", events[0].Chassis)
	assert.Equal(t, 17, events[0].CarNumber)
	assert.Equal(t, 1, events[0].Lap)
}

func TestParseLapEventsMasksOverflowedCounters(t *testing.T) {
	tbl := lapEventTable([][]string{
		{"2024-05-04 10:00:00", "GT4-992-17", "32769"}, // 0x8001
		{"2024-05-04 10:01:35", "GT4-992-17", "32770"},
	})
	events, err := parseLapEvents(tbl, "lap_time.csv")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Lap)
	assert.Equal(t, 2, events[1].Lap)
}

func TestParseLapEventsAlternateTimestampColumn(t *testing.T) {
	tbl := &store.Table{
		Columns: []string{"meta_time", "vehicle_id"},
		Rows:    [][]string{{"2024-05-04 10:00:00", "GT4-992-17"}},
	}
	events, err := parseLapEvents(tbl, "lap_time.csv")
	require.NoError(t, err)
	require.Len(t, events, 1)
	// no lap column: everything is lap 0 and nothing is filtered
	assert.Equal(t, 0, events[0].Lap)
}

func TestParseLapEventsMissingColumns(t *testing.T) {
	_, err := parseLapEvents(&store.Table{Columns: []string{"vehicle_id"}}, "x.csv")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = parseLapEvents(&store.Table{Columns: []string{"timestamp"}}, "x.csv")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func lapEvent(vehicle string, lap int, at time.Time) model.LapEvent {
	chassis, carNumber, _ := parseVehicleID(vehicle)
	return model.LapEvent{
		Timestamp: at, VehicleID: vehicle, Chassis: chassis, CarNumber: carNumber, Lap: lap,
	}
}

func TestDeriveLapTimesWindow(t *testing.T) {
	base := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	events := []model.LapEvent{
		lapEvent("GT4-992-17", 1, base),
		lapEvent("GT4-992-17", 2, base.Add(95*time.Second)),  // 95s, valid
		lapEvent("GT4-992-17", 3, base.Add(145*time.Second)), // 50s, too fast
		lapEvent("GT4-992-17", 4, base.Add(400*time.Second)), // 255s, too slow
		lapEvent("GT4-981-44", 1, base),
		lapEvent("GT4-981-44", 2, base.Add(200*time.Second)), // exactly 200s, valid
	}
	lapTimes := deriveLapTimes(events)
	require.Len(t, lapTimes, 2)
	assert.Equal(t, 2, lapTimes[0].Lap)
	assert.Equal(t, "981", lapTimes[0].Chassis)
	assert.Equal(t, 44, lapTimes[0].CarNumber)
	assert.InDelta(t, 200, lapTimes[0].Seconds, 0.001)
	assert.Equal(t, "992", lapTimes[1].Chassis)
	assert.InDelta(t, 95, lapTimes[1].Seconds, 0.001)
}

func TestDeriveLapTimesNeverCrossesVehicles(t *testing.T) {
	base := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	events := []model.LapEvent{
		lapEvent("GT4-992-17", 1, base),
		lapEvent("GT4-981-44", 1, base.Add(90*time.Second)),
	}
	assert.Empty(t, deriveLapTimes(events))
}
