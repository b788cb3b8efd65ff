package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/model"
)

// CompareRequest identifies the lap to hold against the golden lap.
type CompareRequest struct {
	Circuit    string `json:"circuit"`
	Chassis    string `json:"chassis"`
	CarNumber  int    `json:"car_number"`
	Lap        int    `json:"lap"`
	Race       string `json:"race"`
	SectorSize int    `json:"sector_size"`
}

// Normalized returns the request with the defaults applied.
func (r CompareRequest) Normalized() CompareRequest {
	if r.Race == "" {
		r.Race = "R1"
	}
	if r.SectorSize <= 0 {
		r.SectorSize = DefaultSectorSize
	}
	return r
}

// Key is the result cache key of this request.
func (r CompareRequest) Key() string {
	return fmt.Sprintf("%s:%s:%d:%d:%s:%d",
		r.Circuit, r.Chassis, r.CarNumber, r.Lap, r.Race, r.SectorSize)
}

// Compare holds one lap against the golden lap of its session: cleaned
// channels are bucketed into track sectors, aggregated, inner-joined on the
// sector index and diffed, then enriched with the vehicle's lap history
// analytics and session context.
func (a *Analyzer) Compare(ctx context.Context, req CompareRequest) (*model.ComparisonResult, error) {
	req = req.Normalized()
	ctx, span := a.tracer.Start(ctx, "analysis.Compare")
	defer span.End()
	start := time.Now()
	defer func() { a.compareTimer.Record(ctx, time.Since(start).Seconds()) }()

	golden, err := a.GoldenLap(ctx, req.Circuit, req.Race)
	if err != nil {
		return nil, err
	}
	a.l.Info("comparing laps",
		log.String("circuit", req.Circuit), log.Int("lap", req.Lap),
		log.Int("goldenLap", golden.Lap))

	userData, err := a.session.LapTelemetry(
		ctx, req.Circuit, req.Chassis, req.CarNumber, req.Lap, req.Race)
	if err != nil {
		return nil, err
	}
	goldenData, err := a.session.LapTelemetry(
		ctx, req.Circuit, golden.Chassis, golden.CarNumber, golden.Lap, req.Race)
	if err != nil {
		return nil, err
	}

	userClean := cleanChannels(userData)
	goldenClean := cleanChannels(goldenData)
	if len(userClean) == 0 || len(goldenClean) == 0 {
		return nil, ErrNoValidTelemetry
	}

	userSectors := aggregateSectors(userClean, req.SectorSize)
	goldenSectors := aggregateSectors(goldenClean, req.SectorSize)
	sectors := mergeSectors(userSectors, goldenSectors)
	if len(sectors) == 0 {
		return nil, ErrNoOverlappingSectors
	}
	recommendations := buildRecommendations(sectors)

	lapTimes, err := a.session.LapTimes(ctx, req.Circuit, req.Race)
	if err != nil {
		return nil, err
	}
	history := vehicleHistory(lapTimes, req.Chassis, req.CarNumber)

	var userLapTime *float64
	for _, lt := range history {
		if lt.Lap == req.Lap {
			userLapTime = lo.ToPtr(lt.Seconds)
			break
		}
	}

	ret := &model.ComparisonResult{
		UserLapTime:        userLapTime,
		GoldenLapTime:      golden.Seconds,
		GoldenLapFormatted: golden.Formatted,
		Sectors:            sectors,
		Recommendations:    recommendations,
		Consistency:        buildConsistency(history),
		Progression:        buildProgression(history),
		HotZones:           a.buildHotZones(ctx, req, history),
		SessionContext: model.SessionContext{
			RaceResults: a.session.RaceResults(ctx, req.Circuit, req.Race),
			Weather:     a.session.Weather(ctx, req.Circuit, req.Race),
		},
		RaceTimeline: buildRaceTimeline(history, lapTimes, golden),
		GhostLaps:    a.buildGhostLaps(ctx, req, history),
		Telemetry: model.ComparisonTelemetry{
			User:   serializeTelemetry(userClean, telemetrySampleSize, false),
			Golden: serializeTelemetry(goldenClean, telemetrySampleSize, false),
		},
	}
	if userLapTime != nil {
		ret.UserLapFormatted = lo.ToPtr(model.FormatLapTime(*userLapTime))
		ret.TimeDiff = lo.ToPtr(*userLapTime - golden.Seconds)
	}
	return ret, nil
}

func vehicleHistory(lapTimes []model.LapTime, chassis string, carNumber int) []model.LapTime {
	ret := lo.Filter(lapTimes, func(lt model.LapTime, _ int) bool {
		return lt.Chassis == chassis && lt.CarNumber == carNumber
	})
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].Lap < ret[j].Lap })
	return ret
}

// cleanChannels copies the slice and runs forward-fill, backward-fill and
// zero-fill over the comparison channels, so downstream aggregation never
// sees NaN.
func cleanChannels(samples []model.TelemetrySample) []model.TelemetrySample {
	ret := make([]model.TelemetrySample, len(samples))
	copy(ret, samples)
	for _, sel := range []model.ChannelSelector{
		model.ChannelDistance, model.ChannelSpeed, model.ChannelThrottle, model.ChannelBrake,
	} {
		fillChannel(ret, sel)
	}
	return ret
}

func fillChannel(samples []model.TelemetrySample, sel model.ChannelSelector) {
	last := math.NaN()
	for i := range samples {
		if v := sel.Get(&samples[i]); !math.IsNaN(v) {
			last = v
		} else if !math.IsNaN(last) {
			sel.Set(&samples[i], last)
		}
	}
	next := math.NaN()
	for i := len(samples) - 1; i >= 0; i-- {
		if v := sel.Get(&samples[i]); !math.IsNaN(v) {
			next = v
		} else if !math.IsNaN(next) {
			sel.Set(&samples[i], next)
		}
	}
	for i := range samples {
		if math.IsNaN(sel.Get(&samples[i])) {
			sel.Set(&samples[i], 0)
		}
	}
}

type sectorAgg struct {
	sector   int
	speed    float64 // mean
	distance float64 // first
	throttle float64 // mean
	brake    float64 // max
}

// aggregateSectors buckets samples by floor(distance / sectorSize) and
// aggregates each bucket, returned in ascending sector order.
func aggregateSectors(samples []model.TelemetrySample, sectorSize int) []sectorAgg {
	type accum struct {
		speedSum    float64
		throttleSum float64
		brakeMax    float64
		distance    float64
		n           int
	}
	buckets := map[int]*accum{}
	for i := range samples {
		sector := int(math.Floor(samples[i].Distance / float64(sectorSize)))
		b, ok := buckets[sector]
		if !ok {
			b = &accum{distance: samples[i].Distance, brakeMax: math.Inf(-1)}
			buckets[sector] = b
		}
		b.speedSum += samples[i].Speed
		b.throttleSum += samples[i].Throttle
		b.brakeMax = math.Max(b.brakeMax, samples[i].Brake)
		b.n++
	}

	ret := make([]sectorAgg, 0, len(buckets))
	for sector, b := range buckets {
		ret = append(ret, sectorAgg{
			sector:   sector,
			speed:    b.speedSum / float64(b.n),
			distance: b.distance,
			throttle: b.throttleSum / float64(b.n),
			brake:    b.brakeMax,
		})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].sector < ret[j].sector })
	return ret
}

// mergeSectors inner-joins both aggregations on the sector index and derives
// the user-golden deltas.
func mergeSectors(user, golden []sectorAgg) []model.SectorComparison {
	goldenBySector := lo.SliceToMap(golden, func(g sectorAgg) (int, sectorAgg) {
		return g.sector, g
	})
	ret := make([]model.SectorComparison, 0, len(user))
	for _, u := range user {
		g, ok := goldenBySector[u.sector]
		if !ok {
			continue
		}
		ret = append(ret, model.SectorComparison{
			Sector:         u.sector,
			SpeedUser:      u.speed,
			SpeedGolden:    g.speed,
			DistanceUser:   u.distance,
			DistanceGolden: g.distance,
			ThrottleUser:   u.throttle,
			ThrottleGolden: g.throttle,
			BrakeUser:      u.brake,
			BrakeGolden:    g.brake,
			SpeedDiff:      u.speed - g.speed,
			ThrottleDiff:   u.throttle - g.throttle,
			BrakeDiff:      u.brake - g.brake,
		})
	}
	return ret
}

// buildRecommendations picks the sectors with the largest speed deficit and
// classifies each one. Equal deficits resolve to the earlier sector.
func buildRecommendations(sectors []model.SectorComparison) []model.Recommendation {
	worst := make([]model.SectorComparison, len(sectors))
	copy(worst, sectors)
	sort.SliceStable(worst, func(i, j int) bool {
		if worst[i].SpeedDiff != worst[j].SpeedDiff {
			return worst[i].SpeedDiff < worst[j].SpeedDiff
		}
		return worst[i].Sector < worst[j].Sector
	})
	worst = lo.Slice(worst, 0, worstSectorCount)

	ret := make([]model.Recommendation, 0, len(worst))
	for _, sc := range worst {
		issue, suggestion := classifySector(sc)
		ret = append(ret, model.Recommendation{
			Sector:        sc.Sector,
			Distance:      int(sc.DistanceUser),
			SpeedLoss:     math.Abs(sc.SpeedDiff),
			Issue:         issue,
			Suggestion:    suggestion,
			EstimatedGain: math.Abs(sc.SpeedDiff) * EstimatedGainPerKPH,
		})
	}
	return ret
}

func classifySector(sc model.SectorComparison) (issue, suggestion string) {
	switch {
	case sc.BrakeDiff > brakeDeltaThreshold:
		return "Braking too aggressively",
			fmt.Sprintf("Bleed off ~%d bar of brake pressure", int(sc.BrakeDiff))
	case sc.ThrottleDiff < throttleDeltaThreshold:
		return "Hesitant throttle application",
			fmt.Sprintf("Increase throttle by ~%d%% exiting the corner",
				absInt(int(sc.ThrottleDiff)))
	default:
		return "Suboptimal corner speed",
			"Tighten the line and release the brake earlier to carry more speed"
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// serializeTelemetry downsamples a cleaned slice to at most max points
// keeping first and last. With requireGPS, slices lacking any of the
// distance/speed/GPS channels serialize to nothing (ghost lap contract).
func serializeTelemetry(
	samples []model.TelemetrySample, max int, requireGPS bool,
) []model.TelemetryPoint {
	if requireGPS {
		for _, sel := range []model.ChannelSelector{
			model.ChannelDistance, model.ChannelSpeed, model.ChannelLon, model.ChannelLat,
		} {
			if !channelPresent(samples, sel) {
				return nil
			}
		}
	}
	clean := lo.Filter(samples, func(ts model.TelemetrySample, _ int) bool {
		return !math.IsNaN(ts.Distance)
	})
	if len(clean) == 0 {
		return nil
	}
	clean = downsample(clean, max)

	ret := make([]model.TelemetryPoint, 0, len(clean))
	for i := range clean {
		ret = append(ret, model.TelemetryPoint{
			Distance:  clean[i].Distance,
			Speed:     finitePtr(clean[i].Speed),
			Lon:       finitePtr(clean[i].Lon),
			Lat:       finitePtr(clean[i].Lat),
			Timestamp: clean[i].Timestamp.Format("2006-01-02 15:04:05.999999999"),
		})
	}
	return ret
}

func channelPresent(samples []model.TelemetrySample, sel model.ChannelSelector) bool {
	for i := range samples {
		if !math.IsNaN(sel.Get(&samples[i])) {
			return true
		}
	}
	return false
}

// downsample picks max uniformly spaced samples including first and last.
func downsample(samples []model.TelemetrySample, max int) []model.TelemetrySample {
	if len(samples) <= max || max < 2 {
		return samples
	}
	ret := make([]model.TelemetrySample, 0, max)
	for i := 0; i < max; i++ {
		idx := int(float64(i) * float64(len(samples)-1) / float64(max-1))
		ret = append(ret, samples[idx])
	}
	return ret
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
