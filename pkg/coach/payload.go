package coach

import (
	"strings"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/apexreplay/apexreplay-service-go/pkg/model"
)

const (
	maxPayloadRecommendations = 5
	maxPayloadHotZones        = 4
)

// promptPayload is the condensed metrics summary sent to the collaborator.
type promptPayload struct {
	LapTime         *string                `json:"lap_time"`
	GoldenTime      string                 `json:"golden_time"`
	TimeDiff        *float64               `json:"time_diff"`
	Recommendations []model.Recommendation `json:"recommendations"`
	Consistency     payloadConsistency     `json:"consistency"`
	HotZones        []model.HotZoneSector  `json:"hot_zones"`
	Progression     []string               `json:"progression"`
	Weather         *model.WeatherSummary  `json:"weather"`
	RaceResults     *model.RaceResultsSummary `json:"race_results"`
}

type payloadConsistency struct {
	Score   *float64 `json:"score"`
	Average *string  `json:"average"`
	Issues  []int    `json:"issues"`
}

func buildPayload(result *model.ComparisonResult) promptPayload {
	ret := promptPayload{
		LapTime:         result.UserLapFormatted,
		GoldenTime:      result.GoldenLapFormatted,
		TimeDiff:        result.TimeDiff,
		Recommendations: lo.Slice(result.Recommendations, 0, maxPayloadRecommendations),
		Weather:         result.SessionContext.Weather,
		RaceResults:     result.SessionContext.RaceResults,
	}
	if result.Consistency != nil {
		ret.Consistency = payloadConsistency{
			Score:   lo.ToPtr(result.Consistency.Score),
			Average: lo.ToPtr(result.Consistency.AverageFormatted),
			Issues:  result.Consistency.Outliers,
		}
	}
	if result.HotZones != nil {
		ret.HotZones = lo.Slice(result.HotZones.Weak, 0, maxPayloadHotZones)
	}
	if result.Progression != nil {
		ret.Progression = result.Progression.Insights
	}
	return ret
}

func buildPrompt(payload promptPayload) string {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	var b strings.Builder
	b.WriteString("You are Apex Replay, an expert driving instructor.\n")
	b.WriteString("Analyze the telemetry summary below and produce targeted coaching ")
	b.WriteString("recommendations and specific track insights.\n\nDATA (JSON):\n")
	b.Write(data)
	b.WriteString("\n\nRespond strictly in JSON using this schema:\n")
	b.WriteString(`{
  "summary": "High level overview in <=60 words.",
  "race_brief": "Optional note (<=40 words) about track/weather/race context if relevant.",
  "recommendations": [
    {
      "title": "Short hook (<=6 words)",
      "detail": "Actionable explanation (<=60 words)",
      "focus_area": "e.g. Braking, Turn-in, Exit, Consistency, Racecraft",
      "estimated_gain": "Optional description like '+0.25s' or 'Maintain +6 km/h'",
      "confidence": "high|medium|low"
    }
  ],
  "track_insights": [
    {
      "sector": 1,
      "type": "Braking|Line|Throttle|Gear|Strategy",
      "color": "#hexcode",
      "message": "Short insight (<= 5 words)",
      "detail": "Detailed explanation (<= 20 words)"
    }
  ]
}

COLOR MAPPING for track_insights:
- Braking: #ef4444 (Red)
- Line: #3b82f6 (Blue)
- Throttle: #10b981 (Green)
- Gear: #f59e0b (Amber)
- Strategy: #8b5cf6 (Purple)
`)
	return b.String()
}
