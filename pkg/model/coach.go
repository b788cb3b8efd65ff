package model

// CoachInsights is the response of the coaching text collaborator.
type CoachInsights struct {
	Summary         string                `json:"summary"`
	Recommendations []CoachRecommendation `json:"recommendations"`
	TrackInsights   []TrackInsight        `json:"track_insights,omitempty"`
	RaceBrief       *string               `json:"race_brief,omitempty"`
}

type CoachRecommendation struct {
	Title         string  `json:"title"`
	Detail        string  `json:"detail"`
	FocusArea     string  `json:"focus_area"`
	EstimatedGain *string `json:"estimated_gain"`
	Confidence    string  `json:"confidence"`
}

type TrackInsight struct {
	Sector  int    `json:"sector"`
	Type    string `json:"type"`
	Color   string `json:"color"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}
