package model

// Summaries of the session support tables (race results, weather). Both are
// best-effort context: absent or unparseable files yield nil summaries.

type ResultRow struct {
	Pos      int    `json:"pos"`
	Number   string `json:"number"`
	Laps     *int   `json:"laps"`
	Elapsed  string `json:"elapsed"`
	GapFirst string `json:"gap_first"`
	BestLap  string `json:"best_lap"`
	BestKph  string `json:"best_kph"`
}

type ClassResult struct {
	Class string      `json:"class"`
	Top   []ResultRow `json:"top"`
}

type BestLapResult struct {
	Number string `json:"number"`
	Time   string `json:"time"`
	Kph    string `json:"kph"`
}

type RaceResultsSummary struct {
	Source  string         `json:"source"`
	Overall ResultRow      `json:"overall"`
	Classes []ClassResult  `json:"classes"`
	BestLap *BestLapResult `json:"best_lap"`
}

type RangeStat struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

type WeatherSummary struct {
	AirTemp       *RangeStat `json:"air_temp"`
	TrackTemp     *RangeStat `json:"track_temp"`
	Humidity      *RangeStat `json:"humidity"`
	Pressure      *RangeStat `json:"pressure"`
	WindSpeed     *RangeStat `json:"wind_speed"`
	WindDirection *float64   `json:"wind_direction"`
	Rain          bool       `json:"rain"`
	Samples       int        `json:"samples"`
}

type FinishLineGPS struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Circuit describes one circuit directory plus optional static metadata.
type Circuit struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	LengthMiles   *float64       `json:"length_miles"`
	LengthKM      *float64       `json:"length_km"`
	Sectors       *int           `json:"sectors"`
	Races         []string       `json:"races"`
	Location      string         `json:"location,omitempty"`
	FinishLineGPS *FinishLineGPS `json:"finish_line_gps,omitempty"`
}
