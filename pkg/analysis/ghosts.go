package analysis

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/apexreplay/apexreplay-service-go/pkg/model"
)

// buildGhostLaps picks up to three reference laps of the same vehicle (best,
// slowest, most recent), excluding the lap under comparison. Laps without
// serializable telemetry are skipped.
func (a *Analyzer) buildGhostLaps(
	ctx context.Context, req CompareRequest, history []model.LapTime,
) []model.GhostLap {
	if len(history) == 0 {
		return []model.GhostLap{}
	}

	bySeconds := make([]model.LapTime, len(history))
	copy(bySeconds, history)
	sort.SliceStable(bySeconds, func(i, j int) bool {
		return bySeconds[i].Seconds < bySeconds[j].Seconds
	})
	byLapDesc := make([]model.LapTime, len(history))
	copy(byLapDesc, history)
	sort.SliceStable(byLapDesc, func(i, j int) bool {
		return byLapDesc[i].Lap > byLapDesc[j].Lap
	})

	type candidate struct {
		label string
		lap   model.LapTime
	}
	candidates := make([]candidate, 0, 3)
	for _, c := range []candidate{
		{label: "Best Lap", lap: bySeconds[0]},
		{label: "Slowest Lap", lap: bySeconds[len(bySeconds)-1]},
		{label: "Most Recent Lap", lap: byLapDesc[0]},
	} {
		if c.lap.Lap != req.Lap {
			candidates = append(candidates, c)
		}
	}

	ghosts := make([]model.GhostLap, 0, ghostLapLimit)
	seen := map[int]struct{}{}
	for _, c := range candidates {
		if _, ok := seen[c.lap.Lap]; ok {
			continue
		}
		samples, err := a.session.LapTelemetry(
			ctx, req.Circuit, req.Chassis, req.CarNumber, c.lap.Lap, req.Race)
		if err != nil {
			continue
		}
		serialized := serializeTelemetry(samples, telemetrySampleSize, true)
		if len(serialized) == 0 {
			continue
		}
		ghosts = append(ghosts, model.GhostLap{
			Label:     c.label,
			Lap:       c.lap.Lap,
			LapTime:   model.FormatLapTime(c.lap.Seconds),
			Telemetry: serialized,
		})
		seen[c.lap.Lap] = struct{}{}
		if len(ghosts) >= ghostLapLimit {
			break
		}
	}
	return ghosts
}

// buildRaceTimeline accumulates the vehicle's session against a simultaneous
// run of the golden vehicle. The gap stays unknown on laps the golden vehicle
// did not complete.
func buildRaceTimeline(
	history, lapTimes []model.LapTime, golden model.GoldenLap,
) []model.TimelineEntry {
	if len(history) == 0 {
		return []model.TimelineEntry{}
	}
	goldenHistory := vehicleHistory(lapTimes, golden.Chassis, golden.CarNumber)
	goldenByLap := lo.SliceToMap(goldenHistory, func(lt model.LapTime) (int, float64) {
		return lt.Lap, lt.Seconds
	})

	userCum := 0.0
	goldenCum := 0.0
	ret := make([]model.TimelineEntry, 0, len(history))
	for _, lt := range history {
		userCum += lt.Seconds
		entry := model.TimelineEntry{
			Lap:        lt.Lap,
			LapTime:    lt.Seconds,
			Formatted:  model.FormatLapTime(lt.Seconds),
			Cumulative: userCum,
		}
		if goldenSeconds, ok := goldenByLap[lt.Lap]; ok {
			goldenCum += goldenSeconds
			entry.GapToGolden = lo.ToPtr(userCum - goldenCum)
		}
		ret = append(ret, entry)
	}
	return ret
}
