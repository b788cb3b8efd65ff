package model

// SectorComparison holds the aggregated channel values of one track sector
// for both laps plus the user-golden deltas.
type SectorComparison struct {
	Sector         int     `json:"sector"`
	SpeedUser      float64 `json:"speed_user"`
	SpeedGolden    float64 `json:"speed_golden"`
	DistanceUser   float64 `json:"distance_user"`
	DistanceGolden float64 `json:"distance_golden"`
	ThrottleUser   float64 `json:"throttle_user"`
	ThrottleGolden float64 `json:"throttle_golden"`
	BrakeUser      float64 `json:"brake_user"`
	BrakeGolden    float64 `json:"brake_golden"`
	SpeedDiff      float64 `json:"speed_diff"`
	ThrottleDiff   float64 `json:"throttle_diff"`
	BrakeDiff      float64 `json:"brake_diff"`
}

type Recommendation struct {
	Sector        int     `json:"sector"`
	Distance      int     `json:"distance"`
	SpeedLoss     float64 `json:"speed_loss"`
	Issue         string  `json:"issue"`
	Suggestion    string  `json:"suggestion"`
	EstimatedGain float64 `json:"estimated_gain"`
}

type LapStatus struct {
	Lap        int     `json:"lap"`
	Time       float64 `json:"time"`
	Formatted  string  `json:"formatted"`
	DeltaToAvg float64 `json:"delta_to_avg"`
	Status     string  `json:"status"`
	Icon       string  `json:"icon"`
}

type Consistency struct {
	AverageTime      float64     `json:"average_time"`
	AverageFormatted string      `json:"average_formatted"`
	BestTime         float64     `json:"best_time"`
	BestFormatted    string      `json:"best_formatted"`
	WorstTime        float64     `json:"worst_time"`
	WorstFormatted   string      `json:"worst_formatted"`
	StdDev           float64     `json:"std_dev"`
	Score            float64     `json:"score"`
	Outliers         []int       `json:"outliers"`
	Laps             []LapStatus `json:"laps"`
	Recommendation   string      `json:"recommendation"`
}

type ProgressionLap struct {
	Lap                  int     `json:"lap"`
	Time                 float64 `json:"time"`
	Formatted            string  `json:"formatted"`
	DeltaPrev            float64 `json:"delta_prev"`
	ImprovementFromStart float64 `json:"improvement_from_start"`
}

type Progression struct {
	TotalImprovement float64          `json:"total_improvement"`
	Laps             []ProgressionLap `json:"laps"`
	Insights         []string         `json:"insights"`
}

type HotZoneSector struct {
	Sector   int     `json:"sector"`
	Samples  int     `json:"samples"`
	Variance float64 `json:"variance"`
	AvgSpeed float64 `json:"avg_speed"`
	Rating   string  `json:"rating"`
}

type HotZones struct {
	Sectors []HotZoneSector `json:"sectors"`
	Weak    []HotZoneSector `json:"weak"`
	Strong  []HotZoneSector `json:"strong"`
}

// TelemetryPoint is a downsampled telemetry sample for payloads. Channel
// values that are unknown after cleaning stay nil rather than NaN.
type TelemetryPoint struct {
	Distance  float64  `json:"distance"`
	Speed     *float64 `json:"speed"`
	Lon       *float64 `json:"lon,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Timestamp string   `json:"timestamp"`
}

type GhostLap struct {
	Label     string           `json:"label"`
	Lap       int              `json:"lap"`
	LapTime   string           `json:"lap_time"`
	Telemetry []TelemetryPoint `json:"telemetry"`
}

type TimelineEntry struct {
	Lap         int      `json:"lap"`
	LapTime     float64  `json:"lap_time"`
	Formatted   string   `json:"formatted"`
	Cumulative  float64  `json:"cumulative"`
	GapToGolden *float64 `json:"gap_to_golden"`
}

type SessionContext struct {
	RaceResults *RaceResultsSummary `json:"race_results"`
	Weather     *WeatherSummary     `json:"weather"`
}

type ComparisonTelemetry struct {
	User   []TelemetryPoint `json:"user"`
	Golden []TelemetryPoint `json:"golden"`
}

// ComparisonResult is the full payload of a lap comparison.
type ComparisonResult struct {
	UserLapTime        *float64            `json:"user_lap_time"`
	UserLapFormatted   *string             `json:"user_lap_formatted"`
	GoldenLapTime      float64             `json:"golden_lap_time"`
	GoldenLapFormatted string              `json:"golden_lap_formatted"`
	TimeDiff           *float64            `json:"time_diff"`
	Sectors            []SectorComparison  `json:"sectors"`
	Recommendations    []Recommendation    `json:"recommendations"`
	Consistency        *Consistency        `json:"consistency"`
	Progression        *Progression        `json:"progression"`
	HotZones           *HotZones           `json:"hot_zones"`
	SessionContext     SessionContext      `json:"session_context"`
	RaceTimeline       []TimelineEntry     `json:"race_timeline"`
	GhostLaps          []GhostLap          `json:"ghost_laps"`
	Telemetry          ComparisonTelemetry `json:"telemetry"`
	Coach              *CoachInsights      `json:"ai_coach,omitempty"`
}
