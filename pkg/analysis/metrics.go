package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/apexreplay/apexreplay-service-go/pkg/model"
)

// buildConsistency scores how repeatable the vehicle's lap times are.
// Population statistics on purpose: the history is the whole session, not a
// sample of it.
func buildConsistency(history []model.LapTime) *model.Consistency {
	if len(history) == 0 {
		return nil
	}
	times := lo.Map(history, func(lt model.LapTime, _ int) float64 { return lt.Seconds })
	avg := stat.Mean(times, nil)
	stdDev := 0.0
	if len(times) > 1 {
		stdDev = stat.PopStdDev(times, nil)
	}
	best := lo.Min(times)
	worst := lo.Max(times)
	score := 0.0
	if avg > 0 {
		score = 100.0 - stdDev/avg*100.0
	} else {
		score = 100.0
	}
	score = math.Max(0, score)

	outliers := make([]int, 0)
	laps := make([]model.LapStatus, 0, len(history))
	for _, lt := range history {
		delta := lt.Seconds - avg
		if stdDev > 0 && math.Abs(delta) > stdDev*outlierSigma {
			outliers = append(outliers, lt.Lap)
		}
		status, icon := classifyLap(lt.Seconds, delta, best, worst, stdDev)
		laps = append(laps, model.LapStatus{
			Lap:        lt.Lap,
			Time:       lt.Seconds,
			Formatted:  model.FormatLapTime(lt.Seconds),
			DeltaToAvg: delta,
			Status:     status,
			Icon:       icon,
		})
	}

	recommendation := "Great consistency overall. Keep building rhythm."
	if len(outliers) > 0 {
		lapList := strings.Join(lo.Map(outliers, func(lap int, _ int) string {
			return strconv.Itoa(lap)
		}), ", ")
		recommendation = fmt.Sprintf(
			"Watch laps %s: pace dropped well below the average.", lapList)
	}

	return &model.Consistency{
		AverageTime:      avg,
		AverageFormatted: model.FormatLapTime(avg),
		BestTime:         best,
		BestFormatted:    model.FormatLapTime(best),
		WorstTime:        worst,
		WorstFormatted:   model.FormatLapTime(worst),
		StdDev:           stdDev,
		Score:            math.Round(score*10) / 10,
		Outliers:         outliers,
		Laps:             laps,
		Recommendation:   recommendation,
	}
}

func classifyLap(seconds, delta, best, worst, stdDev float64) (status, icon string) {
	switch {
	case seconds == best:
		return "Personal best", "🏆"
	case seconds == worst:
		return "Slowest lap", "❌"
	case delta < -stdDev*pushSigma:
		return "Excellent push", "✅"
	case delta > stdDev*dropSigma:
		return "Major drop", "⚠️"
	default:
		return "Consistent", "✅"
	}
}

// buildProgression tracks how the pace developed over the session and spots
// plateaus.
func buildProgression(history []model.LapTime) *model.Progression {
	if len(history) == 0 {
		return nil
	}
	times := lo.Map(history, func(lt model.LapTime, _ int) float64 { return lt.Seconds })
	startTime := times[0]
	best := lo.Min(times)
	totalImprovement := startTime - best

	laps := make([]model.ProgressionLap, 0, len(history))
	plateauStart := 0
	plateauDetected := 0
	for idx, lt := range history {
		deltaPrev := 0.0
		if idx > 0 {
			deltaPrev = times[idx-1] - lt.Seconds
			if math.Abs(deltaPrev) < plateauDelta {
				if plateauStart == 0 {
					plateauStart = lt.Lap
				}
			} else {
				plateauStart = 0
			}
		}
		if plateauStart != 0 && math.Abs(deltaPrev) < plateauDelta {
			plateauDetected = plateauStart
		}
		laps = append(laps, model.ProgressionLap{
			Lap:                  lt.Lap,
			Time:                 lt.Seconds,
			Formatted:            model.FormatLapTime(lt.Seconds),
			DeltaPrev:            deltaPrev,
			ImprovementFromStart: startTime - lt.Seconds,
		})
	}

	insights := make([]string, 0, 2)
	if totalImprovement > 0 {
		insights = append(insights,
			fmt.Sprintf("Improved %.2fs from lap 1 to best lap.", totalImprovement))
	} else {
		insights = append(insights, "Pace stayed flat versus the opening lap.")
	}
	if plateauDetected != 0 {
		insights = append(insights,
			fmt.Sprintf("Pace plateau detected around lap %d.", plateauDetected))
	}

	return &model.Progression{
		TotalImprovement: totalImprovement,
		Laps:             laps,
		Insights:         insights,
	}
}

// buildHotZones rates per-sector repeatability over the most recent laps:
// high speed variance across laps marks a sector the driver has not nailed
// down yet. Laps without telemetry are skipped.
func (a *Analyzer) buildHotZones(
	ctx context.Context, req CompareRequest, history []model.LapTime,
) *model.HotZones {
	if len(history) == 0 {
		return nil
	}
	recent := lo.Map(history, func(lt model.LapTime, _ int) int { return lt.Lap })
	if len(recent) > hotZoneWindow {
		recent = recent[len(recent)-hotZoneWindow:]
	}

	sectorSpeeds := map[int][]float64{}
	for _, lap := range recent {
		samples, err := a.session.LapTelemetry(
			ctx, req.Circuit, req.Chassis, req.CarNumber, lap, req.Race)
		if err != nil {
			continue
		}
		means := sectorSpeedMeans(samples, req.SectorSize)
		for sector, speed := range means {
			sectorSpeeds[sector] = append(sectorSpeeds[sector], speed)
		}
	}
	if len(sectorSpeeds) == 0 {
		return nil
	}

	sectors := make([]model.HotZoneSector, 0, len(sectorSpeeds))
	for _, sector := range lo.Keys(sectorSpeeds) {
		speeds := sectorSpeeds[sector]
		variance := 0.0
		if len(speeds) > 1 {
			variance = stat.PopVariance(speeds, nil)
		}
		sectors = append(sectors, model.HotZoneSector{
			Sector:   sector,
			Samples:  len(speeds),
			Variance: variance,
			AvgSpeed: stat.Mean(speeds, nil),
			Rating:   classifyVariance(variance),
		})
	}
	sort.SliceStable(sectors, func(i, j int) bool {
		if sectors[i].Variance != sectors[j].Variance {
			return sectors[i].Variance > sectors[j].Variance
		}
		return sectors[i].Sector < sectors[j].Sector
	})

	pick := func(rating string) []model.HotZoneSector {
		return lo.Slice(lo.Filter(sectors, func(s model.HotZoneSector, _ int) bool {
			return s.Rating == rating
		}), 0, 3)
	}
	return &model.HotZones{
		Sectors: sectors,
		Weak:    pick("weak"),
		Strong:  pick("excellent"),
	}
}

// sectorSpeedMeans computes the mean speed per sector of one lap, dropping
// samples with unknown distance or speed.
func sectorSpeedMeans(samples []model.TelemetrySample, sectorSize int) map[int]float64 {
	sums := map[int]float64{}
	counts := map[int]int{}
	for i := range samples {
		if math.IsNaN(samples[i].Distance) || math.IsNaN(samples[i].Speed) {
			continue
		}
		sector := int(math.Floor(samples[i].Distance / float64(sectorSize)))
		sums[sector] += samples[i].Speed
		counts[sector]++
	}
	ret := make(map[int]float64, len(sums))
	for sector, sum := range sums {
		ret[sector] = sum / float64(counts[sector])
	}
	return ret
}

func classifyVariance(variance float64) string {
	switch {
	case variance < varianceExcellent:
		return "excellent"
	case variance < varianceGood:
		return "good"
	case variance < varianceOK:
		return "ok"
	default:
		return "weak"
	}
}
