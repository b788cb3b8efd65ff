package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/model"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

var (
	// ErrInvalidInput signals a malformed or unusable source table.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoTelemetryForLap signals that a lap has no telemetry samples.
	ErrNoTelemetryForLap = errors.New("no telemetry for lap")
)

type (
	Option func(*Session)

	// Session owns the store plus per-key caches of every derived table.
	// Values are loaded once and shared between requests; duplicate loads of
	// the same key are acceptable, partially written entries are not.
	Session struct {
		store *store.Store
		l     *log.Logger

		mu        sync.RWMutex
		telemetry map[string][]model.TelemetrySample
		lapEvents map[string][]model.LapEvent
		lapTimes  map[string][]model.LapTime
		vehicles  map[string][]model.Vehicle
		golden    map[string]model.GoldenLap
		results   map[string]*model.RaceResultsSummary
		weather   map[string]*model.WeatherSummary
	}
)

func WithLogger(arg *log.Logger) Option {
	return func(s *Session) {
		s.l = arg
	}
}

func New(st *store.Store, opts ...Option) *Session {
	ret := &Session{
		store:     st,
		l:         log.GetLogger("session"),
		telemetry: map[string][]model.TelemetrySample{},
		lapEvents: map[string][]model.LapEvent{},
		lapTimes:  map[string][]model.LapTime{},
		vehicles:  map[string][]model.Vehicle{},
		golden:    map[string]model.GoldenLap{},
		results:   map[string]*model.RaceResultsSummary{},
		weather:   map[string]*model.WeatherSummary{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Session) Store() *store.Store { return s.store }

func sessionKey(circuit, race string) string {
	return fmt.Sprintf("%s_%s", circuit, race)
}

// CachedGolden returns the memoized golden lap of a session, if any.
func (s *Session) CachedGolden(circuit, race string) (model.GoldenLap, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret, ok := s.golden[sessionKey(circuit, race)]
	return ret, ok
}

func (s *Session) SetGolden(arg model.GoldenLap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.golden[sessionKey(arg.Circuit, arg.Race)] = arg
}

// Clear drops the derived per-session tables. The support summaries (race
// results, weather) are static files and survive until restart.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry = map[string][]model.TelemetrySample{}
	s.lapEvents = map[string][]model.LapEvent{}
	s.lapTimes = map[string][]model.LapTime{}
	s.vehicles = map[string][]model.Vehicle{}
	s.golden = map[string]model.GoldenLap{}
	s.l.Info("session caches cleared")
}
