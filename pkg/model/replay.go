package model

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type TimelinePoint struct {
	Time     float64  `json:"time"`
	Position Position `json:"position"`
	Speed    float64  `json:"speed"`
	Throttle float64  `json:"throttle"`
	Brake    float64  `json:"brake"`
	Distance float64  `json:"distance"`
}

// Bounds of the GPS track, used by renderers to normalize the 3D space.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinZ float64 `json:"min_z"`
	MaxZ float64 `json:"max_z"`
}

// ReplayTimeline is the time-indexed trajectory of one lap.
// Time values are non-decreasing; the point count is bounded.
type ReplayTimeline struct {
	Circuit     string          `json:"circuit"`
	Chassis     string          `json:"chassis"`
	CarNumber   int             `json:"car_number"`
	Lap         int             `json:"lap"`
	Duration    float64         `json:"duration"`
	Timeline    []TimelinePoint `json:"timeline"`
	Bounds      Bounds          `json:"bounds"`
	MaxDistance float64         `json:"max_distance"`
	PointCount  int             `json:"point_count"`
	Name        string          `json:"name,omitempty"`
	Color       string          `json:"color,omitempty"`
}
