package analysis

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/session"
)

//nolint:gochecknoglobals // single meter for this package
var meter = otel.Meter("analysis")

var (
	// ErrNoValidLap signals that a session has no plausible lap times at all.
	ErrNoValidLap = errors.New("no valid lap times found")
	// ErrNoTelemetry signals that no lap candidate has usable telemetry.
	ErrNoTelemetry = errors.New("no lap with telemetry available")
	// ErrNoOverlappingSectors signals that two laps share no track sector.
	ErrNoOverlappingSectors = errors.New("no overlapping sectors between laps")
	// ErrNoValidTelemetry signals an empty telemetry slice after cleaning.
	ErrNoValidTelemetry = errors.New("no valid telemetry data after cleaning")
)

const (
	// DefaultSectorSize is the sector bucket length in meters.
	DefaultSectorSize = 200

	// braking harder than the golden lap by more than this many bar flags a
	// braking issue
	brakeDeltaThreshold = 20.0
	// throttle more than this many percent below the golden lap flags a
	// hesitant exit
	throttleDeltaThreshold = -10.0
	// EstimatedGainPerKPH converts sector speed loss (km/h) into an estimated
	// lap time gain (s).
	EstimatedGainPerKPH = 0.04

	worstSectorCount    = 3
	telemetrySampleSize = 250

	outlierSigma = 2.0
	pushSigma    = 0.5
	dropSigma    = 1.5
	plateauDelta = 0.1

	hotZoneWindow     = 6
	varianceExcellent = 1.5
	varianceGood      = 3.5
	varianceOK        = 7.0

	ghostLapLimit = 3
)

type (
	Option func(*Analyzer)

	// Analyzer derives golden laps, comparisons and the coaching metrics from
	// a session cache.
	Analyzer struct {
		session      *session.Session
		l            *log.Logger
		tracer       trace.Tracer
		compareTimer metric.Float64Histogram
	}
)

func WithLogger(arg *log.Logger) Option {
	return func(a *Analyzer) {
		a.l = arg
	}
}

func New(s *session.Session, opts ...Option) *Analyzer {
	compareTimer, _ := meter.Float64Histogram("lap_compare",
		metric.WithDescription("processing of a lap comparison"),
		metric.WithUnit("s"))
	ret := &Analyzer{
		session:      s,
		l:            log.GetLogger("analysis"),
		tracer:       otel.Tracer("analysis"),
		compareTimer: compareTimer,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
