package session

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/model"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

const (
	// valid lap time window in seconds, everything outside is an out-lap,
	// in-lap or data glitch
	MinValidLapSeconds = 60.0
	MaxValidLapSeconds = 200.0

	// transponder lap counters overflow into the high bits
	lapCounterMask = 0x7FFF
)

// LapEvents loads the lap trigger crossings of a session.
func (s *Session) LapEvents(ctx context.Context, circuit, race string) ([]model.LapEvent, error) {
	key := sessionKey(circuit, race) + "_lap_events"
	s.mu.RLock()
	cached, ok := s.lapEvents[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path, err := s.store.Resolve(ctx, circuit, race, store.KindLapTime)
	if err != nil {
		return nil, err
	}
	tbl, err := s.store.ReadTable(ctx, path, "")
	if err != nil {
		return nil, err
	}
	events, err := parseLapEvents(tbl, path)
	if err != nil {
		return nil, err
	}
	s.l.Debug("lap events loaded", log.String("key", key), log.Int("events", len(events)))

	s.mu.Lock()
	s.lapEvents[key] = events
	s.mu.Unlock()
	return events, nil
}

func parseLapEvents(tbl *store.Table, path string) ([]model.LapEvent, error) {
	tsCol := -1
	for _, candidate := range []string{"timestamp", "meta_time", "time"} {
		if idx := tbl.Col(candidate); idx >= 0 {
			tsCol = idx
			break
		}
	}
	if tsCol < 0 {
		return nil, fmt.Errorf("%w: no timestamp column in %s", ErrInvalidInput, path)
	}
	idCol := tbl.Col("vehicle_id")
	if idCol < 0 {
		return nil, fmt.Errorf("%w: no vehicle_id column in %s", ErrInvalidInput, path)
	}
	lapCol := tbl.Col("lap")

	events := make([]model.LapEvent, 0, len(tbl.Rows))
	maxLap := 0
	for _, row := range tbl.Rows {
		ts, err := parseTimestamp(row[tsCol])
		if err != nil {
			return nil, err
		}
		chassis, carNumber, ok := parseVehicleID(row[idCol])
		if !ok {
			continue
		}
		lap := 0
		if lapCol >= 0 {
			// numeric coercion, unparseable values count as lap 0
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[lapCol]), 64); err == nil {
				lap = int(v)
			}
		}
		if lap > maxLap {
			maxLap = lap
		}
		events = append(events, model.LapEvent{
			Timestamp: ts,
			VehicleID: row[idCol],
			Chassis:   chassis,
			CarNumber: carNumber,
			Lap:       lap,
		})
	}

	if maxLap > 1000 {
		for i := range events {
			events[i].Lap &= lapCounterMask
		}
	}
	if lapCol >= 0 {
		events = lo.Filter(events, func(e model.LapEvent, _ int) bool { return e.Lap > 0 })
	}
	return events, nil
}

// LapTimes derives lap times from consecutive lap events of each vehicle and
// keeps only plausible laps.
func (s *Session) LapTimes(ctx context.Context, circuit, race string) ([]model.LapTime, error) {
	key := sessionKey(circuit, race) + "_laptimes"
	s.mu.RLock()
	cached, ok := s.lapTimes[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	events, err := s.LapEvents(ctx, circuit, race)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no lap data available for %s %s", ErrInvalidInput, circuit, race)
	}

	ret := deriveLapTimes(events)
	s.l.Debug("lap times calculated", log.String("key", key), log.Int("validLaps", len(ret)))

	s.mu.Lock()
	s.lapTimes[key] = ret
	s.mu.Unlock()
	return ret, nil
}

// deriveLapTimes turns lap events into lap times via consecutive-event
// differences per vehicle, keeping only the plausible window.
func deriveLapTimes(events []model.LapEvent) []model.LapTime {
	sorted := make([]model.LapEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].VehicleID != sorted[j].VehicleID {
			return sorted[i].VehicleID < sorted[j].VehicleID
		}
		return sorted[i].Lap < sorted[j].Lap
	})

	ret := make([]model.LapTime, 0, len(sorted))
	for i := 1; i < len(sorted); i++ {
		if sorted[i].VehicleID != sorted[i-1].VehicleID {
			continue
		}
		seconds := sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Seconds()
		if seconds < MinValidLapSeconds || seconds > MaxValidLapSeconds {
			continue
		}
		ret = append(ret, model.LapTime{
			Chassis:   sorted[i].Chassis,
			CarNumber: sorted[i].CarNumber,
			Lap:       sorted[i].Lap,
			Seconds:   seconds,
		})
	}
	return ret
}

// Vehicles lists the vehicles of a session with their distinct lap counts.
func (s *Session) Vehicles(ctx context.Context, circuit, race string) ([]model.Vehicle, error) {
	key := sessionKey(circuit, race) + "_vehicles"
	s.mu.RLock()
	cached, ok := s.vehicles[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	events, err := s.LapEvents(ctx, circuit, race)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w for %s %s", store.ErrNotFound, circuit, race)
	}

	type vehicleKey struct {
		chassis   string
		carNumber int
	}
	laps := map[vehicleKey]map[int]struct{}{}
	for _, e := range events {
		k := vehicleKey{chassis: e.Chassis, carNumber: e.CarNumber}
		if laps[k] == nil {
			laps[k] = map[int]struct{}{}
		}
		laps[k][e.Lap] = struct{}{}
	}
	ret := lo.MapToSlice(laps, func(k vehicleKey, v map[int]struct{}) model.Vehicle {
		return model.Vehicle{Chassis: k.chassis, CarNumber: k.carNumber, TotalLaps: len(v)}
	})
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Chassis != ret[j].Chassis {
			return ret[i].Chassis < ret[j].Chassis
		}
		return ret[i].CarNumber < ret[j].CarNumber
	})

	s.mu.Lock()
	s.vehicles[key] = ret
	s.mu.Unlock()
	return ret, nil
}

// Laps returns the valid laps of one vehicle sorted by lap number.
func (s *Session) Laps(
	ctx context.Context, circuit, chassis string, carNumber int, race string,
) ([]model.LapSummary, error) {
	lapTimes, err := s.LapTimes(ctx, circuit, race)
	if err != nil {
		return nil, err
	}
	mine := lo.Filter(lapTimes, func(lt model.LapTime, _ int) bool {
		return lt.Chassis == chassis && lt.CarNumber == carNumber
	})
	sort.Slice(mine, func(i, j int) bool { return mine[i].Lap < mine[j].Lap })
	return lo.Map(mine, func(lt model.LapTime, _ int) model.LapSummary {
		return model.LapSummary{
			Lap:       lt.Lap,
			Seconds:   lt.Seconds,
			Formatted: model.FormatLapTime(lt.Seconds),
		}
	}), nil
}
