package coach

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/model"
)

const (
	fallbackNotConfigured = "AI Coach is not configured. " +
		"Set the coach endpoint and API key to enable enhanced guidance."
	fallbackUnavailable = "AI Coach is temporarily unavailable."

	defaultTimeout = 30 * time.Second
)

type (
	Option func(*Coach)

	// Coach asks an opaque text-generation collaborator for coaching
	// insights. It enriches comparison results on a best-effort basis and
	// never fails the caller: any problem yields the fixed fallback.
	Coach struct {
		client  *http.Client
		l       *log.Logger
		url     string
		model   string
		apiKey  string
		timeout time.Duration
	}

	generateRequest struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}
	generateResponse struct {
		Text string `json:"text"`
	}

	coachResponse struct {
		Summary         string                `json:"summary"`
		RaceBrief       *string               `json:"race_brief"`
		Recommendations []coachRecommendation `json:"recommendations"`
		TrackInsights   []model.TrackInsight  `json:"track_insights"`
	}
	coachRecommendation struct {
		Title         string  `json:"title"`
		Detail        string  `json:"detail"`
		FocusArea     string  `json:"focus_area"`
		EstimatedGain *string `json:"estimated_gain"`
		Confidence    string  `json:"confidence"`
	}
)

func WithLogger(arg *log.Logger) Option {
	return func(c *Coach) {
		c.l = arg
	}
}

func WithTimeout(arg time.Duration) Option {
	return func(c *Coach) {
		if arg > 0 {
			c.timeout = arg
		}
	}
}

func WithHTTPClient(arg *http.Client) Option {
	return func(c *Coach) {
		c.client = arg
	}
}

func New(url, coachModel, apiKey string, opts ...Option) *Coach {
	ret := &Coach{
		client:  http.DefaultClient,
		l:       log.GetLogger("coach"),
		url:     url,
		model:   coachModel,
		apiKey:  apiKey,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if !ret.Enabled() {
		ret.l.Warn("coach endpoint or api key not set, AI coach disabled")
	}
	return ret
}

func (c *Coach) Enabled() bool {
	return c.url != "" && c.apiKey != ""
}

// Insights produces coaching guidance for a comparison result. It always
// returns a usable value.
func (c *Coach) Insights(ctx context.Context, result *model.ComparisonResult) *model.CoachInsights {
	if !c.Enabled() {
		return fallback(fallbackNotConfigured)
	}

	text, err := c.generate(ctx, buildPrompt(buildPayload(result)))
	if err != nil {
		c.l.Warn("coach request failed", log.ErrorField(err))
		return fallback(fallbackUnavailable)
	}
	block := extractJSONBlock(text)
	if block == "" {
		c.l.Warn("coach response lacked JSON content")
		return fallback(fallbackUnavailable)
	}
	var parsed coachResponse
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		c.l.Warn("coach response was not valid JSON", log.ErrorField(err))
		return fallback(fallbackUnavailable)
	}

	ret := &model.CoachInsights{
		Summary:         parsed.Summary,
		Recommendations: make([]model.CoachRecommendation, 0, len(parsed.Recommendations)),
		TrackInsights:   parsed.TrackInsights,
		RaceBrief:       parsed.RaceBrief,
	}
	if ret.Summary == "" {
		ret.Summary = "AI Coach summary unavailable."
	}
	for _, rec := range parsed.Recommendations {
		cleaned := model.CoachRecommendation{
			Title:         rec.Title,
			Detail:        rec.Detail,
			FocusArea:     rec.FocusArea,
			EstimatedGain: rec.EstimatedGain,
			Confidence:    rec.Confidence,
		}
		if cleaned.Title == "" {
			cleaned.Title = "Suggested focus"
		}
		if cleaned.FocusArea == "" {
			cleaned.FocusArea = "Driving"
		}
		if cleaned.Confidence == "" {
			cleaned.Confidence = "medium"
		}
		ret.Recommendations = append(ret.Recommendations, cleaned)
	}
	return ret
}

func (c *Coach) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("coach endpoint returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", err
	}
	return parsed.Text, nil
}

func fallback(summary string) *model.CoachInsights {
	return &model.CoachInsights{
		Summary:         summary,
		Recommendations: []model.CoachRecommendation{},
	}
}

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// extractJSONBlock tolerates responses that wrap the JSON in a fenced code
// block or surround it with prose.
func extractJSONBlock(raw string) string {
	stripped := strings.TrimSpace(raw)
	if stripped == "" {
		return ""
	}
	if strings.HasPrefix(stripped, "{") {
		return stripped
	}
	if m := fencedBlock.FindStringSubmatch(stripped); m != nil {
		return strings.TrimSpace(m[1])
	}
	return stripped
}
