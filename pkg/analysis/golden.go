package analysis

import (
	"context"
	"sort"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/model"
)

// GoldenLap finds the fastest lap of a session that has usable telemetry.
// The result is memoized in the session cache.
func (a *Analyzer) GoldenLap(ctx context.Context, circuit, race string) (model.GoldenLap, error) {
	if cached, ok := a.session.CachedGolden(circuit, race); ok {
		return cached, nil
	}
	ctx, span := a.tracer.Start(ctx, "analysis.GoldenLap")
	defer span.End()

	lapTimes, err := a.session.LapTimes(ctx, circuit, race)
	if err != nil {
		return model.GoldenLap{}, err
	}
	if len(lapTimes) == 0 {
		return model.GoldenLap{}, ErrNoValidLap
	}

	candidates := make([]model.LapTime, len(lapTimes))
	copy(candidates, lapTimes)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Seconds != candidates[j].Seconds {
			return candidates[i].Seconds < candidates[j].Seconds
		}
		if candidates[i].Lap != candidates[j].Lap {
			return candidates[i].Lap < candidates[j].Lap
		}
		if candidates[i].Chassis != candidates[j].Chassis {
			return candidates[i].Chassis < candidates[j].Chassis
		}
		return candidates[i].CarNumber < candidates[j].CarNumber
	})

	for _, candidate := range candidates {
		if !a.lapHasTelemetry(ctx, circuit, candidate, race) {
			continue
		}
		ret := model.GoldenLap{
			Circuit:   circuit,
			Race:      race,
			Chassis:   candidate.Chassis,
			CarNumber: candidate.CarNumber,
			Lap:       candidate.Lap,
			Seconds:   candidate.Seconds,
			Formatted: model.FormatLapTime(candidate.Seconds),
		}
		a.l.Info("golden lap found",
			log.String("circuit", circuit), log.String("race", race),
			log.String("chassis", ret.Chassis), log.Int("carNumber", ret.CarNumber),
			log.Int("lap", ret.Lap), log.String("time", ret.Formatted))
		a.session.SetGolden(ret)
		return ret, nil
	}
	return model.GoldenLap{}, ErrNoTelemetry
}

func (a *Analyzer) lapHasTelemetry(
	ctx context.Context, circuit string, candidate model.LapTime, race string,
) bool {
	samples, err := a.session.LapTelemetry(
		ctx, circuit, candidate.Chassis, candidate.CarNumber, candidate.Lap, race)
	if err != nil {
		a.l.Debug("no telemetry for candidate lap",
			log.Int("lap", candidate.Lap), log.String("chassis", candidate.Chassis),
			log.ErrorField(err))
		return false
	}
	return len(samples) > 0
}
