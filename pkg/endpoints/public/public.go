package public

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/analysis"
	"github.com/apexreplay/apexreplay-service-go/pkg/coach"
	"github.com/apexreplay/apexreplay-service-go/pkg/endpoints/utils"
	"github.com/apexreplay/apexreplay-service-go/pkg/model"
	"github.com/apexreplay/apexreplay-service-go/pkg/replay"
	"github.com/apexreplay/apexreplay-service-go/pkg/session"
	"github.com/apexreplay/apexreplay-service-go/pkg/utils/cache"
	"github.com/apexreplay/apexreplay-service-go/pkg/utils/cache/loadercache"
	"github.com/apexreplay/apexreplay-service-go/pkg/utils/cache/lrucache"
)

const (
	defaultRace  = "R1"
	defaultColor = "#ffffff"
)

type (
	Option func(*PublicManager)

	// PublicManager serves the read-facing API: circuit discovery, vehicle
	// and lap listings, the analysis endpoints and the replay endpoints.
	PublicManager struct {
		session      *session.Session
		analyzer     *analysis.Analyzer
		normalizer   *replay.Normalizer
		commentator  *replay.Commentator
		coach        *coach.Coach
		compareCache cache.Cache[string, model.ComparisonResult]
		circuitCache cache.Cache[string, []model.Circuit]
		l            *log.Logger
	}
)

func WithLogger(arg *log.Logger) Option {
	return func(pub *PublicManager) {
		pub.l = arg
	}
}

func WithCoach(arg *coach.Coach) Option {
	return func(pub *PublicManager) {
		pub.coach = arg
	}
}

func WithCompareCacheSize(arg int) Option {
	return func(pub *PublicManager) {
		pub.compareCache = lrucache.New[string, model.ComparisonResult](
			lrucache.WithCapacity[string, model.ComparisonResult](arg))
	}
}

//nolint:whitespace // can't make editor and linters both happy
func InitPublicEndpoints(
	sess *session.Session,
	analyzer *analysis.Analyzer,
	normalizer *replay.Normalizer,
	commentator *replay.Commentator,
	opts ...Option,
) *PublicManager {
	ret := &PublicManager{
		session:      sess,
		analyzer:     analyzer,
		normalizer:   normalizer,
		commentator:  commentator,
		compareCache: lrucache.New[string, model.ComparisonResult](),
		l:            log.GetLogger("endpoints"),
	}
	ret.circuitCache = loadercache.New[string, []model.Circuit](
		loadercache.WithExpiration[string, []model.Circuit](time.Minute),
		loadercache.WithLoader[string, []model.Circuit](
			func(string) (*[]model.Circuit, error) {
				circuits := sess.Circuits()
				return &circuits, nil
			}))
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// CompareCache exposes the result cache so the admin endpoints can flush it.
func (pub *PublicManager) CompareCache() cache.Cache[string, model.ComparisonResult] {
	return pub.compareCache
}

// CircuitCache exposes the circuit listing cache for the same reason.
func (pub *PublicManager) CircuitCache() cache.Cache[string, []model.Circuit] {
	return pub.circuitCache
}

func (pub *PublicManager) Mount(r chi.Router) {
	r.Get("/", pub.handleRoot)
	r.Get("/health", pub.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/circuits", pub.handleCircuits)
		r.Get("/circuits/{circuit}", pub.handleCircuit)
		r.Get("/vehicles/{circuit}", pub.handleVehicles)
		r.Get("/vehicles/{circuit}/{chassis}/{carNumber}/laps", pub.handleVehicleLaps)
		r.Get("/analysis/golden/{circuit}", pub.handleGolden)
		r.Post("/analysis/compare", pub.handleCompare)
		r.Get("/replay/setup/{circuit}", pub.handleReplaySetup)
		r.Get("/replay/vehicle/{circuit}/{chassis}/{carNumber}", pub.handleReplayVehicle)
		r.Post("/replay/prepare", pub.handleReplayPrepare)
		r.Post("/replay/commentary", pub.handleReplayCommentary)
	})
}

func (pub *PublicManager) handleRoot(w http.ResponseWriter, r *http.Request) {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{
		"message":     "Apex Replay API",
		"status":      "running",
		"environment": env,
	})
}

func (pub *PublicManager) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleCircuits lists circuits from a short-lived cache; directory scans
// stay off the hot path when frontends poll.
func (pub *PublicManager) handleCircuits(w http.ResponseWriter, r *http.Request) {
	circuits, err := pub.circuitCache.Get(r.Context(), "all")
	if err != nil {
		utils.SendJSON(w, http.StatusOK, pub.session.Circuits())
		return
	}
	utils.SendJSON(w, http.StatusOK, circuits)
}

func (pub *PublicManager) handleCircuit(w http.ResponseWriter, r *http.Request) {
	ret, err := pub.session.Circuit(chi.URLParam(r, "circuit"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, ret)
}

func (pub *PublicManager) handleVehicles(w http.ResponseWriter, r *http.Request) {
	ret, err := pub.session.Vehicles(r.Context(),
		chi.URLParam(r, "circuit"), raceParam(r))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, ret)
}

func (pub *PublicManager) handleVehicleLaps(w http.ResponseWriter, r *http.Request) {
	carNumber, err := strconv.Atoi(chi.URLParam(r, "carNumber"))
	if err != nil {
		utils.SendError(w, fmt.Errorf("%w: car number must be numeric",
			session.ErrInvalidInput))
		return
	}
	ret, err := pub.session.Laps(r.Context(),
		chi.URLParam(r, "circuit"), chi.URLParam(r, "chassis"), carNumber,
		raceParam(r))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, ret)
}

func (pub *PublicManager) handleGolden(w http.ResponseWriter, r *http.Request) {
	ret, err := pub.analyzer.GoldenLap(r.Context(),
		chi.URLParam(r, "circuit"), raceParam(r))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, ret)
}

func (pub *PublicManager) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req analysis.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, fmt.Errorf("%w: %v", session.ErrInvalidInput, err))
		return
	}
	if req.Circuit == "" || req.Chassis == "" {
		utils.SendError(w, fmt.Errorf("%w: circuit and chassis are required",
			session.ErrInvalidInput))
		return
	}
	req = req.Normalized()

	ctx := r.Context()
	key := req.Key()
	if cached, err := pub.compareCache.Get(ctx, key); err == nil {
		utils.SendJSON(w, http.StatusOK, cached)
		return
	}

	result, err := pub.analyzer.Compare(ctx, req)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if pub.coach != nil {
		result.Coach = pub.coach.Insights(ctx, result)
	}
	if err := pub.compareCache.Put(ctx, key, result); err != nil {
		pub.l.Warn("could not cache comparison",
			log.String("key", key), log.ErrorField(err))
	}
	utils.SendJSON(w, http.StatusOK, result)
}

func (pub *PublicManager) handleReplaySetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	circuit := chi.URLParam(r, "circuit")
	race := raceParam(r)

	golden, err := pub.analyzer.GoldenLap(ctx, circuit, race)
	if err != nil {
		// a setup that cannot be assembled reads as a missing circuit
		utils.SendJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	vehicles, err := pub.session.Vehicles(ctx, circuit, race)
	if err != nil {
		utils.SendJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]any{
		"golden_lap": golden,
		"vehicles":   vehicles,
	})
}

func (pub *PublicManager) handleReplayVehicle(w http.ResponseWriter, r *http.Request) {
	carNumber, err := strconv.Atoi(chi.URLParam(r, "carNumber"))
	if err != nil {
		utils.SendError(w, fmt.Errorf("%w: car number must be numeric",
			session.ErrInvalidInput))
		return
	}
	laps, err := pub.session.Laps(r.Context(),
		chi.URLParam(r, "circuit"), chi.URLParam(r, "chassis"), carNumber,
		raceParam(r))
	if err != nil {
		utils.SendJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]any{"laps": laps})
}

type (
	replayItem struct {
		Chassis   string  `json:"chassis"`
		CarNumber int     `json:"car_number"`
		Lap       int     `json:"lap"`
		Name      *string `json:"name"`
		Color     *string `json:"color"`
	}
	replayRequest struct {
		Circuit string       `json:"circuit"`
		Race    string       `json:"race"`
		Laps    []replayItem `json:"laps"`
	}
)

// handleReplayPrepare normalizes the requested laps on a best-effort basis:
// laps that cannot be prepared are logged and skipped, never failing the
// whole request.
func (pub *PublicManager) handleReplayPrepare(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, fmt.Errorf("%w: %v", session.ErrInvalidInput, err))
		return
	}
	if req.Circuit == "" {
		utils.SendError(w, fmt.Errorf("%w: circuit is required",
			session.ErrInvalidInput))
		return
	}
	if req.Race == "" {
		req.Race = defaultRace
	}

	ctx := r.Context()
	timelines := make([]*model.ReplayTimeline, 0, len(req.Laps))
	for _, item := range req.Laps {
		timeline, err := pub.normalizer.NormalizeLap(ctx,
			req.Circuit, item.Chassis, item.CarNumber, item.Lap, req.Race)
		if err != nil {
			pub.l.Warn("could not prepare lap",
				log.String("circuit", req.Circuit),
				log.String("chassis", item.Chassis),
				log.Int("carNumber", item.CarNumber),
				log.Int("lap", item.Lap),
				log.ErrorField(err))
			continue
		}
		timeline.Name = fmt.Sprintf("Car %d", item.CarNumber)
		if item.Name != nil && *item.Name != "" {
			timeline.Name = *item.Name
		}
		timeline.Color = defaultColor
		if item.Color != nil && *item.Color != "" {
			timeline.Color = *item.Color
		}
		timelines = append(timelines, timeline)
	}
	utils.SendJSON(w, http.StatusOK, map[string]any{"timelines": timelines})
}

func (pub *PublicManager) handleReplayCommentary(w http.ResponseWriter, r *http.Request) {
	var state replay.RaceState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		utils.SendError(w, fmt.Errorf("%w: %v", session.ErrInvalidInput, err))
		return
	}
	utils.SendJSON(w, http.StatusOK,
		map[string]any{"comment": pub.commentator.Commentary(state)})
}

func raceParam(r *http.Request) string {
	if race := r.URL.Query().Get("race"); race != "" {
		return race
	}
	return defaultRace
}
