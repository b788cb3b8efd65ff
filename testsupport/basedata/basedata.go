// Package basedata writes a small but complete circuit directory for tests:
// telemetry, lap trigger events, race results and weather for one race.
package basedata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	CircuitID = "barber"
	Race      = "R1"

	// vehicle ids as they appear in the source files
	VehicleA = "GT4-981-44" // chassis 981, car 44
	VehicleB = "GT4-992-17" // chassis 992, car 17

	ChassisA   = "981"
	CarNumberA = 44
	ChassisB   = "992"
	CarNumberB = 17
)

// lap durations per vehicle; the gap between trigger events N and N+1
// surfaces as the time of lap N+1
//
//nolint:gochecknoglobals // fixed fixture data
var (
	lapDurationsA = []float64{92.5, 91.8, 92.7}
	lapDurationsB = []float64{95.1, 95.3, 95.6}

	baseTime = time.Date(2025, 3, 15, 14, 0, 0, 0, time.UTC)
)

// SetupCircuit writes the fixture below dataDir and returns the circuit
// directory.
func SetupCircuit(dataDir string) (string, error) {
	dir := filepath.Join(dataDir, CircuitID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	files := map[string]string{
		fmt.Sprintf("%s telemetry %s.csv", CircuitID, Race):        telemetryCSV(),
		fmt.Sprintf("%s lap_time %s.csv", CircuitID, Race):         lapEventsCSV(),
		fmt.Sprintf("%s results by class %s.csv", CircuitID, Race): resultsCSV(),
		fmt.Sprintf("%s weather %s.csv", CircuitID, Race):          weatherCSV(),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func stamp(offset float64) string {
	return baseTime.Add(time.Duration(offset * float64(time.Second))).
		Format("2006-01-02 15:04:05.000")
}

func lapStarts(durations []float64) []float64 {
	ret := make([]float64, len(durations)+1)
	for i, d := range durations {
		ret[i+1] = ret[i] + d
	}
	return ret
}

func lapEventsCSV() string {
	var b strings.Builder
	b.WriteString("timestamp,vehicle_id,lap\n")
	for lap, start := range lapStarts(lapDurationsA) {
		fmt.Fprintf(&b, "%s,%s,%d\n", stamp(start), VehicleA, lap+1)
	}
	for lap, start := range lapStarts(lapDurationsB) {
		fmt.Fprintf(&b, "%s,%s,%d\n", stamp(start), VehicleB, lap+1)
	}
	return b.String()
}

// telemetryCSV covers laps 2 and 3 of vehicle A and lap 2 of vehicle B with
// ten samples each. Distances reach 3600m so sector bucketing has substance,
// GPS minutes sit near the Barber finish line.
func telemetryCSV() string {
	var b strings.Builder
	b.WriteString("timestamp,vehicle_id,lap,telemetry_name,telemetry_value\n")
	startsA := lapStarts(lapDurationsA)
	startsB := lapStarts(lapDurationsB)
	writeLap(&b, VehicleA, 2, startsA[1], 185.0)
	writeLap(&b, VehicleA, 3, startsA[2], 180.0)
	writeLap(&b, VehicleB, 2, startsB[1], 170.0)
	return b.String()
}

func writeLap(b *strings.Builder, vehicle string, lap int, start, peakSpeed float64) {
	const samples = 10
	for i := 0; i < samples; i++ {
		at := start + float64(i)*1.5
		dist := float64(i) * 400.0
		speed := peakSpeed - float64(i%3)*12.0
		throttle := 100.0 - float64(i%4)*20.0
		brake := float64(i%4) * 8.0
		lon := -86.6196083*60.0 + float64(i)*0.002
		lat := 33.5326722*60.0 + float64(i)*0.001
		for name, value := range map[string]float64{
			"Speed":                  speed,
			"aps":                    throttle,
			"pbrake_f":               brake,
			"Laptrigger_lapdist_dls": dist,
			"VBOX_Long_Minutes":      lon,
			"VBOX_Lat_Min":           lat,
		} {
			fmt.Fprintf(b, "%s,%s,%d,%s,%.4f\n", stamp(at), vehicle, lap, name, value)
		}
	}
}

func resultsCSV() string {
	var b strings.Builder
	b.WriteString("POS;NUMBER;CLASS;LAPS;ELAPSED;GAP_FIRST;BEST_LAP_TIME;BEST_LAP_KPH\n")
	b.WriteString("1;44;GT4;4;6:12.400;;1:31.800;143.9\n")
	b.WriteString("2;17;GT4;4;6:26.300;13.900;1:35.100;138.9\n")
	return b.String()
}

func weatherCSV() string {
	var b strings.Builder
	b.WriteString("TIMESTAMP;AIR_TEMP;TRACK_TEMP;HUMIDITY;PRESSURE;WIND_SPEED;WIND_DIRECTION;RAIN\n")
	rows := [][]float64{
		{22.1, 31.4, 55.0, 1013.2, 2.1, 180.0, 0},
		{22.6, 0.0, 54.0, 1013.0, 2.4, 175.0, 0},
		{23.0, 33.0, 53.5, 1012.8, 2.2, 185.0, 0},
	}
	for i, row := range rows {
		fmt.Fprintf(&b, "%s;%.1f;%.1f;%.1f;%.1f;%.1f;%.1f;%.0f\n",
			stamp(float64(i)*60.0), row[0], row[1], row[2], row[3], row[4], row[5], row[6])
	}
	return b.String()
}
