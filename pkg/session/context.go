package session

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/model"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

// RaceResults loads the official results summary of a session. Missing or
// unparseable files yield a nil summary, never an error: results are context,
// not primary data.
func (s *Session) RaceResults(ctx context.Context, circuit, race string) *model.RaceResultsSummary {
	key := sessionKey(circuit, race)
	s.mu.RLock()
	cached, ok := s.results[key]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	summary := s.loadRaceResults(ctx, circuit, race)

	s.mu.Lock()
	s.results[key] = summary
	s.mu.Unlock()
	return summary
}

func (s *Session) loadRaceResults(ctx context.Context, circuit, race string) *model.RaceResultsSummary {
	path, err := s.store.Resolve(ctx, circuit, race, store.KindResults)
	if err != nil {
		return nil
	}
	tbl, err := s.store.ReadTable(ctx, path, ";")
	if err != nil {
		s.l.Warn("could not parse race results", log.String("file", path), log.ErrorField(err))
		return nil
	}

	classCol := -1
	for _, candidate := range []string{"CLASS_TYPE", "CLASS", "CLASS NAME"} {
		if idx := tbl.Col(candidate); idx >= 0 {
			classCol = idx
			break
		}
	}
	posCol := tbl.Col("POS")
	if classCol < 0 || posCol < 0 {
		return nil
	}

	type ranked struct {
		pos   float64
		class string
		row   model.ResultRow
	}
	rows := make([]ranked, 0, len(tbl.Rows))
	for _, raw := range tbl.Rows {
		pos, err := strconv.ParseFloat(strings.TrimSpace(raw[posCol]), 64)
		if err != nil {
			continue
		}
		rows = append(rows, ranked{
			pos:   pos,
			class: raw[classCol],
			row:   buildResultRow(tbl, raw, int(pos)),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].pos < rows[j].pos })

	summary := &model.RaceResultsSummary{
		Source:  filepath.Base(path),
		Overall: rows[0].row,
	}

	if best := lo.MinBy(
		lo.Filter(rows, func(r ranked, _ int) bool { return parseTimeString(r.row.BestLap) != nil }),
		func(a, b ranked) bool { return *parseTimeString(a.row.BestLap) < *parseTimeString(b.row.BestLap) },
	); parseTimeString(best.row.BestLap) != nil {
		summary.BestLap = &model.BestLapResult{
			Number: best.row.Number,
			Time:   best.row.BestLap,
			Kph:    best.row.BestKph,
		}
	}

	byClass := lo.GroupBy(rows, func(r ranked) string { return r.class })
	for _, class := range lo.Keys(byClass) {
		group := byClass[class]
		top := lo.Slice(group, 0, 3)
		summary.Classes = append(summary.Classes, model.ClassResult{
			Class: class,
			Top:   lo.Map(top, func(r ranked, _ int) model.ResultRow { return r.row }),
		})
	}
	sort.Slice(summary.Classes, func(i, j int) bool {
		return summary.Classes[i].Class < summary.Classes[j].Class
	})
	return summary
}

func buildResultRow(tbl *store.Table, raw []string, pos int) model.ResultRow {
	get := func(name string) string {
		if idx := tbl.Col(name); idx >= 0 {
			return raw[idx]
		}
		return ""
	}
	ret := model.ResultRow{
		Pos:      pos,
		Number:   get("NUMBER"),
		Elapsed:  get("ELAPSED"),
		GapFirst: get("GAP_FIRST"),
		BestLap:  get("BEST_LAP_TIME"),
		BestKph:  get("BEST_LAP_KPH"),
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(get("LAPS")), 64); err == nil {
		ret.Laps = lo.ToPtr(int(v))
	}
	return ret
}

// parseTimeString parses colon-separated lap times ("1:33.512") to seconds.
func parseTimeString(arg string) *float64 {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil
	}
	parts := strings.Split(strings.ReplaceAll(arg, ",", "."), ":")
	total := 0.0
	factor := 1.0
	for i := len(parts) - 1; i >= 0; i-- {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return nil
		}
		total += v * factor
		factor *= 60
	}
	return &total
}

// Weather loads the weather summary of a session, nil when absent or
// unparseable.
func (s *Session) Weather(ctx context.Context, circuit, race string) *model.WeatherSummary {
	key := sessionKey(circuit, race)
	s.mu.RLock()
	cached, ok := s.weather[key]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	summary := s.loadWeather(ctx, circuit, race)

	s.mu.Lock()
	s.weather[key] = summary
	s.mu.Unlock()
	return summary
}

func (s *Session) loadWeather(ctx context.Context, circuit, race string) *model.WeatherSummary {
	path, err := s.store.Resolve(ctx, circuit, race, store.KindWeather)
	if err != nil {
		return nil
	}
	tbl, err := s.store.ReadTable(ctx, path, ";")
	if err != nil {
		s.l.Warn("could not parse weather", log.String("file", path), log.ErrorField(err))
		return nil
	}
	tbl = splitPackedColumns(tbl)
	tbl.Columns = lo.Map(tbl.Columns, func(c string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(c))
	})

	series := func(name string) []float64 {
		idx := tbl.Col(name)
		if idx < 0 {
			return nil
		}
		ret := make([]float64, 0, len(tbl.Rows))
		for _, row := range tbl.Rows {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
			if err != nil {
				continue
			}
			if name == "TRACK_TEMP" && v == 0 {
				// a cold sensor reports zero, not a real track temperature
				continue
			}
			ret = append(ret, v)
		}
		return ret
	}

	summary := &model.WeatherSummary{
		AirTemp:   rangeStat(series("AIR_TEMP")),
		TrackTemp: rangeStat(series("TRACK_TEMP")),
		Humidity:  rangeStat(series("HUMIDITY")),
		Pressure:  rangeStat(series("PRESSURE")),
		WindSpeed: rangeStat(series("WIND_SPEED")),
		Samples:   len(tbl.Rows),
	}
	if dirs := series("WIND_DIRECTION"); len(dirs) > 0 {
		summary.WindDirection = lo.ToPtr(roundTo(median(dirs), 1))
	}
	summary.Rain = lo.SomeBy(series("RAIN"), func(v float64) bool { return v > 0 })
	return summary
}

// splitPackedColumns unpacks tables where the whole semicolon-separated row
// landed in a single column (seen in some weather Parquet exports).
func splitPackedColumns(tbl *store.Table) *store.Table {
	if len(tbl.Columns) != 1 || !strings.Contains(tbl.Columns[0], ";") {
		return tbl
	}
	names := lo.Map(strings.Split(tbl.Columns[0], ";"), func(c string, _ int) string {
		return strings.TrimSpace(c)
	})
	ret := &store.Table{Columns: names}
	for _, row := range tbl.Rows {
		parts := strings.Split(row[0], ";")
		if len(parts) != len(names) {
			continue
		}
		ret.Rows = append(ret.Rows, parts)
	}
	return ret
}

func rangeStat(values []float64) *model.RangeStat {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return &model.RangeStat{
		Min: roundTo(lo.Min(values), 2),
		Max: roundTo(lo.Max(values), 2),
		Avg: roundTo(sum/float64(len(values)), 2),
	}
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func roundTo(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}

// IsNotFound reports whether an error is any of the not-found kinds.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrNoTelemetryForLap)
}
