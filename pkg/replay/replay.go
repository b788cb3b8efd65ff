package replay

import (
	"context"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/model"
	"github.com/apexreplay/apexreplay-service-go/pkg/session"
)

const (
	// DefaultMaxPoints bounds the timeline payload for the renderer.
	DefaultMaxPoints = 4500

	// metersPerMinute converts GPS angular minutes to meters
	metersPerMinute = 1852.0

	// a physical or odometer jump above this length is suspicious
	glitchMeters = 50.0
	// ... when it also disagrees with the other measurement by this factor
	glitchRatio = 5.0

	// below ~1 m/s the speed signal is unusable for time steps, walk at 1 m/s
	minAvgSpeedMS = 1.0
)

type (
	Option func(*Normalizer)

	// Normalizer turns distance-indexed lap telemetry into a time-indexed
	// replay timeline.
	Normalizer struct {
		session   *session.Session
		l         *log.Logger
		maxPoints int
		tracer    trace.Tracer
	}
)

func WithLogger(arg *log.Logger) Option {
	return func(n *Normalizer) {
		n.l = arg
	}
}

func WithMaxPoints(arg int) Option {
	return func(n *Normalizer) {
		n.maxPoints = arg
	}
}

func New(s *session.Session, opts ...Option) *Normalizer {
	ret := &Normalizer{
		session:   s,
		l:         log.GetLogger("replay"),
		maxPoints: DefaultMaxPoints,
		tracer:    otel.Tracer("replay"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// NormalizeLap converts one lap to a replay timeline: channels are
// interpolated and edge-filled, consecutive samples are walked with the
// glitch filters applied, and the time axis accumulates distance over the
// average pair speed. Output time values never decrease.
func (n *Normalizer) NormalizeLap(
	ctx context.Context, circuit, chassis string, carNumber, lap int, race string,
) (*model.ReplayTimeline, error) {
	ctx, span := n.tracer.Start(ctx, "replay.NormalizeLap")
	defer span.End()

	samples, err := n.session.LapTelemetry(ctx, circuit, chassis, carNumber, lap, race)
	if err != nil {
		return nil, err
	}

	clean := make([]model.TelemetrySample, len(samples))
	copy(clean, samples)
	for _, sel := range []model.ChannelSelector{
		model.ChannelDistance, model.ChannelSpeed, model.ChannelLon,
		model.ChannelLat, model.ChannelThrottle, model.ChannelBrake,
	} {
		interpolateChannel(clean, sel)
	}

	timeline := buildTimeline(clean)
	timeline = downsampleTimeline(timeline, n.maxPoints)

	ret := &model.ReplayTimeline{
		Circuit:     circuit,
		Chassis:     chassis,
		CarNumber:   carNumber,
		Lap:         lap,
		Duration:    timeline[len(timeline)-1].Time,
		Timeline:    timeline,
		Bounds:      trackBounds(clean),
		MaxDistance: cleanNumber(maxDistance(clean)),
		PointCount:  len(timeline),
	}
	n.l.Debug("lap normalized",
		log.String("circuit", circuit), log.Int("lap", lap),
		log.Int("points", ret.PointCount), log.Float64("duration", ret.Duration))
	return ret, nil
}

// interpolateChannel fills NaN gaps linearly over the sample index, extends
// the edge values outward and zeroes channels that are entirely unknown.
func interpolateChannel(samples []model.TelemetrySample, sel model.ChannelSelector) {
	known := make([]int, 0, len(samples))
	for i := range samples {
		if !math.IsNaN(sel.Get(&samples[i])) {
			known = append(known, i)
		}
	}
	if len(known) == 0 {
		for i := range samples {
			sel.Set(&samples[i], 0)
		}
		return
	}

	first, last := known[0], known[len(known)-1]
	for i := 0; i < first; i++ {
		sel.Set(&samples[i], sel.Get(&samples[first]))
	}
	for i := last + 1; i < len(samples); i++ {
		sel.Set(&samples[i], sel.Get(&samples[last]))
	}
	for k := 0; k < len(known)-1; k++ {
		lo, hi := known[k], known[k+1]
		if hi == lo+1 {
			continue
		}
		v0 := sel.Get(&samples[lo])
		v1 := sel.Get(&samples[hi])
		for i := lo + 1; i < hi; i++ {
			frac := float64(i-lo) / float64(hi-lo)
			sel.Set(&samples[i], v0+(v1-v0)*frac)
		}
	}
}

func buildTimeline(samples []model.TelemetrySample) []model.TimelinePoint {
	timeline := make([]model.TimelinePoint, 0, len(samples))
	timeline = append(timeline, timelinePoint(&samples[0], 0))

	cumulative := 0.0
	for i := 0; i < len(samples)-1; i++ {
		current, next := &samples[i], &samples[i+1]

		distance := next.Distance - current.Distance
		if distance <= 0 {
			continue
		}

		dLat := next.Lat - current.Lat
		dLon := next.Lon - current.Lon
		displacement := math.Sqrt(dLat*dLat+dLon*dLon) * metersPerMinute

		// teleport: the car physically jumped but the odometer did not
		if displacement > glitchMeters && displacement > distance*glitchRatio {
			continue
		}
		// odometer spike: trust the physical displacement instead
		if distance > glitchMeters && distance > displacement*glitchRatio {
			distance = displacement
		}

		avgSpeedMS := (current.Speed + next.Speed) / 2 / 3.6
		if avgSpeedMS > minAvgSpeedMS {
			cumulative += distance / avgSpeedMS
		} else {
			cumulative += distance / minAvgSpeedMS
		}
		timeline = append(timeline, timelinePoint(next, cumulative))
	}
	return timeline
}

func timelinePoint(s *model.TelemetrySample, at float64) model.TimelinePoint {
	return model.TimelinePoint{
		Time: cleanNumber(at),
		Position: model.Position{
			X: cleanNumber(s.Lon),
			Y: 0,
			Z: cleanNumber(s.Lat),
		},
		Speed:    cleanNumber(s.Speed),
		Throttle: cleanNumber(s.Throttle),
		Brake:    cleanNumber(s.Brake),
		Distance: cleanNumber(s.Distance),
	}
}

// downsampleTimeline keeps at most maxPoints uniformly spaced points
// including the first and last.
func downsampleTimeline(timeline []model.TimelinePoint, maxPoints int) []model.TimelinePoint {
	if len(timeline) <= maxPoints || maxPoints < 2 {
		return timeline
	}
	ret := make([]model.TimelinePoint, 0, maxPoints)
	prev := -1
	for i := 0; i < maxPoints; i++ {
		idx := int(float64(i) * float64(len(timeline)-1) / float64(maxPoints-1))
		if idx == prev {
			continue
		}
		ret = append(ret, timeline[idx])
		prev = idx
	}
	return ret
}

func trackBounds(samples []model.TelemetrySample) model.Bounds {
	ret := model.Bounds{
		MinX: math.Inf(1), MaxX: math.Inf(-1),
		MinZ: math.Inf(1), MaxZ: math.Inf(-1),
	}
	for i := range samples {
		ret.MinX = math.Min(ret.MinX, samples[i].Lon)
		ret.MaxX = math.Max(ret.MaxX, samples[i].Lon)
		ret.MinZ = math.Min(ret.MinZ, samples[i].Lat)
		ret.MaxZ = math.Max(ret.MaxZ, samples[i].Lat)
	}
	ret.MinX = cleanNumber(ret.MinX)
	ret.MaxX = cleanNumber(ret.MaxX)
	ret.MinZ = cleanNumber(ret.MinZ)
	ret.MaxZ = cleanNumber(ret.MaxZ)
	return ret
}

func maxDistance(samples []model.TelemetrySample) float64 {
	ret := math.Inf(-1)
	for i := range samples {
		ret = math.Max(ret, samples[i].Distance)
	}
	return ret
}

// cleanNumber keeps payload floats JSON-safe.
func cleanNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
