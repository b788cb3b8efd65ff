package model

import (
	"math"
	"time"
)

// TelemetrySample is one wide-format telemetry measurement. The raw tables
// store one row per (timestamp, channel); samples are pivoted on load.
// Channels missing for a sample are NaN until the cleaning passes run.
type TelemetrySample struct {
	Timestamp time.Time
	VehicleID string
	Chassis   string
	CarNumber int
	Lap       int
	Distance  float64 // lap distance (Laptrigger_lapdist_dls)
	Speed     float64 // km/h
	Throttle  float64 // throttle position (aps), percent
	Brake     float64 // front brake pressure (pbrake_f), bar
	Lon       float64 // GPS longitude, angular minutes (VBOX_Long_Minutes)
	Lat       float64 // GPS latitude, angular minutes (VBOX_Lat_Min)
}

// Channel selectors used by the fill/interpolation passes.
type ChannelSelector struct {
	Get func(*TelemetrySample) float64
	Set func(*TelemetrySample, float64)
}

//nolint:gochecknoglobals // fixed channel table
var (
	ChannelDistance = ChannelSelector{
		Get: func(s *TelemetrySample) float64 { return s.Distance },
		Set: func(s *TelemetrySample, v float64) { s.Distance = v },
	}
	ChannelSpeed = ChannelSelector{
		Get: func(s *TelemetrySample) float64 { return s.Speed },
		Set: func(s *TelemetrySample, v float64) { s.Speed = v },
	}
	ChannelThrottle = ChannelSelector{
		Get: func(s *TelemetrySample) float64 { return s.Throttle },
		Set: func(s *TelemetrySample, v float64) { s.Throttle = v },
	}
	ChannelBrake = ChannelSelector{
		Get: func(s *TelemetrySample) float64 { return s.Brake },
		Set: func(s *TelemetrySample, v float64) { s.Brake = v },
	}
	ChannelLon = ChannelSelector{
		Get: func(s *TelemetrySample) float64 { return s.Lon },
		Set: func(s *TelemetrySample, v float64) { s.Lon = v },
	}
	ChannelLat = ChannelSelector{
		Get: func(s *TelemetrySample) float64 { return s.Lat },
		Set: func(s *TelemetrySample, v float64) { s.Lat = v },
	}
)

// NewTelemetrySample returns a sample with all channels unset (NaN).
func NewTelemetrySample() TelemetrySample {
	nan := math.NaN()
	return TelemetrySample{
		Distance: nan,
		Speed:    nan,
		Throttle: nan,
		Brake:    nan,
		Lon:      nan,
		Lat:      nan,
	}
}
