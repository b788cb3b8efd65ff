package model

import (
	"fmt"
	"time"
)

// LapEvent marks a vehicle crossing the lap trigger.
type LapEvent struct {
	Timestamp time.Time
	VehicleID string
	Chassis   string
	CarNumber int
	Lap       int
}

// LapTime is derived from two consecutive LapEvents of the same vehicle.
type LapTime struct {
	Chassis   string  `json:"chassis"`
	CarNumber int     `json:"car_number"`
	Lap       int     `json:"lap"`
	Seconds   float64 `json:"lap_time"`
}

// GoldenLap is the fastest lap with usable telemetry of a session.
type GoldenLap struct {
	Circuit   string  `json:"circuit"`
	Race      string  `json:"race"`
	Chassis   string  `json:"chassis"`
	CarNumber int     `json:"car_number"`
	Lap       int     `json:"lap"`
	Seconds   float64 `json:"time"`
	Formatted string  `json:"formatted_time"`
}

type Vehicle struct {
	Chassis   string `json:"chassis"`
	CarNumber int    `json:"car_number"`
	TotalLaps int    `json:"total_laps"`
}

type LapSummary struct {
	Lap       int     `json:"lap_number"`
	Seconds   float64 `json:"lap_time"`
	Formatted string  `json:"formatted_time"`
}

// FormatLapTime renders seconds as M:SS.mmm
func FormatLapTime(seconds float64) string {
	minutes := int(seconds) / 60
	secs := seconds - float64(minutes)*60
	return fmt.Sprintf("%d:%06.3f", minutes, secs)
}
