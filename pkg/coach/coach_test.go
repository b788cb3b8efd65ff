package coach

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexreplay/apexreplay-service-go/pkg/model"
)

func compareResult() *model.ComparisonResult {
	return &model.ComparisonResult{
		UserLapFormatted:   lo.ToPtr("1:33.512"),
		GoldenLapFormatted: "1:31.205",
		TimeDiff:           lo.ToPtr(2.307),
		Recommendations: []model.Recommendation{
			{Sector: 4, Issue: "Suboptimal corner speed"},
		},
		Consistency: &model.Consistency{Score: 97.5, AverageFormatted: "1:34.100"},
		HotZones: &model.HotZones{
			Weak: []model.HotZoneSector{{Sector: 7, Rating: "weak"}},
		},
		Progression: &model.Progression{Insights: []string{"Improved 1.20s from lap 1 to best lap."}},
	}
}

func coachServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "race-coach-1", req.Model)
		assert.Contains(t, req.Prompt, "1:31.205")
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(generateResponse{Text: text}))
	}))
}

func TestInsightsNotConfigured(t *testing.T) {
	c := New("", "", "")
	got := c.Insights(context.Background(), compareResult())
	require.NotNil(t, got)
	assert.Contains(t, got.Summary, "not configured")
	assert.Empty(t, got.Recommendations)
}

func TestInsightsParsesResponse(t *testing.T) {
	srv := coachServer(t, `{
		"summary": "Strong pace, brake later into sector 4.",
		"recommendations": [
			{"title": "Brake later", "detail": "...", "focus_area": "Braking", "confidence": "high"},
			{"detail": "missing fields get defaults"}
		],
		"track_insights": [
			{"sector": 4, "type": "Braking", "color": "#ef4444", "message": "Brake later", "detail": "Carry more speed"}
		]
	}`)
	defer srv.Close()

	c := New(srv.URL, "race-coach-1", "secret")
	got := c.Insights(context.Background(), compareResult())
	require.NotNil(t, got)
	assert.Equal(t, "Strong pace, brake later into sector 4.", got.Summary)
	require.Len(t, got.Recommendations, 2)
	assert.Equal(t, "Brake later", got.Recommendations[0].Title)
	assert.Equal(t, "Suggested focus", got.Recommendations[1].Title)
	assert.Equal(t, "Driving", got.Recommendations[1].FocusArea)
	assert.Equal(t, "medium", got.Recommendations[1].Confidence)
	require.Len(t, got.TrackInsights, 1)
	assert.Equal(t, 4, got.TrackInsights[0].Sector)
}

func TestInsightsToleratesFencedJSON(t *testing.T) {
	srv := coachServer(t, "Here you go:\n```json\n{\"summary\": \"Fenced.\", \"recommendations\": []}\n```")
	defer srv.Close()

	c := New(srv.URL, "race-coach-1", "secret")
	got := c.Insights(context.Background(), compareResult())
	assert.Equal(t, "Fenced.", got.Summary)
}

func TestInsightsFallbackOnGarbage(t *testing.T) {
	srv := coachServer(t, "not json at all")
	defer srv.Close()

	c := New(srv.URL, "race-coach-1", "secret")
	got := c.Insights(context.Background(), compareResult())
	assert.Equal(t, "AI Coach is temporarily unavailable.", got.Summary)
	assert.Empty(t, got.Recommendations)
}

func TestInsightsFallbackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "race-coach-1", "secret")
	got := c.Insights(context.Background(), compareResult())
	assert.Equal(t, "AI Coach is temporarily unavailable.", got.Summary)
}

func TestExtractJSONBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONBlock(` {"a":1} `))
	assert.Equal(t, `{"a":1}`, extractJSONBlock("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSONBlock("```\n{\"a\":1}\n```"))
	assert.Empty(t, extractJSONBlock("  "))
	// prose without fences passes through for the JSON parser to reject
	assert.Equal(t, "hello", extractJSONBlock("hello"))
}

func TestBuildPayloadLimits(t *testing.T) {
	result := compareResult()
	for i := 0; i < 10; i++ {
		result.Recommendations = append(result.Recommendations, model.Recommendation{Sector: i})
		result.HotZones.Weak = append(result.HotZones.Weak, model.HotZoneSector{Sector: i})
	}
	payload := buildPayload(result)
	assert.Len(t, payload.Recommendations, maxPayloadRecommendations)
	assert.Len(t, payload.HotZones, maxPayloadHotZones)
	require.NotNil(t, payload.Consistency.Score)
	assert.InDelta(t, 97.5, *payload.Consistency.Score, 0.001)
}
