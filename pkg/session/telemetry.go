package session

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/model"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

//nolint:gochecknoglobals // fixed layout table
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(arg string) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	for _, layout := range timestampLayouts {
		if ret, err := time.Parse(layout, arg); err == nil {
			return ret, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrInvalidInput, arg)
}

// parseVehicleID extracts chassis and car number from ids like "GT4-992-17".
func parseVehicleID(id string) (chassis string, carNumber int, ok bool) {
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		return "", 0, false
	}
	var num int
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[2]), "%d", &num); err != nil {
		return "", 0, false
	}
	return parts[1], num, true
}

// channelPlan resolves which raw channel names feed the wide columns. The
// decision is made once per load over the distinct channel set, mirroring how
// a column-level rename would behave.
type channelPlan struct {
	speed    string
	throttle string
	brake    string
	distance string
	lon      string
	lat      string
}

func planChannels(names []string) channelPlan {
	has := lo.SliceToMap(names, func(n string) (string, bool) { return n, true })
	pick := func(candidates ...string) string {
		for _, c := range candidates {
			if has[c] {
				return c
			}
		}
		return ""
	}
	plan := channelPlan{
		speed:    pick("Speed", "speed"),
		throttle: pick("aps", "ath"),
		brake:    pick("pbrake_f"),
		distance: pick("Laptrigger_lapdist_dls"),
		lon:      pick("VBOX_Long_Minutes"),
		lat:      pick("VBOX_Lat_Min"),
	}
	if plan.distance == "" {
		candidates := lo.Filter(names, func(n string, _ int) bool {
			ln := strings.ToLower(n)
			return strings.Contains(ln, "lap") && strings.Contains(ln, "dist")
		})
		sort.Strings(candidates)
		if len(candidates) > 0 {
			plan.distance = candidates[0]
		}
	}
	return plan
}

// Telemetry loads the wide-format telemetry of a session, optionally
// restricted to one lap. The result is cached per (circuit, race, lap).
func (s *Session) Telemetry(
	ctx context.Context, circuit, race string, lap *int,
) ([]model.TelemetrySample, error) {
	key := sessionKey(circuit, race)
	if lap != nil {
		key += fmt.Sprintf("_lap%d", *lap)
	}
	s.mu.RLock()
	cached, ok := s.telemetry[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path, err := s.store.Resolve(ctx, circuit, race, store.KindTelemetry)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.TelemetryRows(ctx, path, lap)
	if err != nil {
		return nil, err
	}
	samples, err := pivotTelemetry(rows)
	if err != nil {
		return nil, err
	}
	s.l.Debug("telemetry loaded",
		log.String("key", key), log.Int("points", len(samples)))

	s.mu.Lock()
	s.telemetry[key] = samples
	s.mu.Unlock()
	return samples, nil
}

// LapTelemetry returns the telemetry of one vehicle lap sorted by timestamp.
func (s *Session) LapTelemetry(
	ctx context.Context, circuit, chassis string, carNumber, lap int, race string,
) ([]model.TelemetrySample, error) {
	all, err := s.Telemetry(ctx, circuit, race, &lap)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w %d", ErrNoTelemetryForLap, lap)
	}
	ret := lo.Filter(all, func(ts model.TelemetrySample, _ int) bool {
		return ts.Chassis == chassis && ts.CarNumber == carNumber
	})
	if len(ret) == 0 {
		return nil, fmt.Errorf("%w %d (%s/%d)", ErrNoTelemetryForLap, lap, chassis, carNumber)
	}
	return ret, nil
}

// pivotTelemetry turns long rows into wide samples: one sample per
// (timestamp, vehicle, lap) with first-wins channel values, then the channel
// normalization and distance passes.
func pivotTelemetry(rows []store.TelemetryRow) ([]model.TelemetrySample, error) {
	if len(rows) == 0 {
		return []model.TelemetrySample{}, nil
	}
	names := lo.Uniq(lo.Map(rows, func(r store.TelemetryRow, _ int) string { return r.Name }))
	plan := planChannels(names)

	type pivotKey struct {
		ts      string
		vehicle string
		lap     int
	}
	byKey := map[pivotKey]*model.TelemetrySample{}
	order := make([]pivotKey, 0, len(rows)/8)

	for i := range rows {
		row := &rows[i]
		key := pivotKey{ts: row.Timestamp, vehicle: row.VehicleID, lap: row.Lap}
		sample, ok := byKey[key]
		if !ok {
			ts, err := parseTimestamp(row.Timestamp)
			if err != nil {
				return nil, err
			}
			chassis, carNumber, _ := parseVehicleID(row.VehicleID)
			fresh := model.NewTelemetrySample()
			fresh.Timestamp = ts
			fresh.VehicleID = row.VehicleID
			fresh.Chassis = chassis
			fresh.CarNumber = carNumber
			fresh.Lap = row.Lap
			sample = &fresh
			byKey[key] = sample
			order = append(order, key)
		}
		if !row.Valid {
			continue
		}
		var sel *model.ChannelSelector
		switch row.Name {
		case plan.speed:
			sel = &model.ChannelSpeed
		case plan.throttle:
			sel = &model.ChannelThrottle
		case plan.brake:
			sel = &model.ChannelBrake
		case plan.distance:
			sel = &model.ChannelDistance
		case plan.lon:
			sel = &model.ChannelLon
		case plan.lat:
			sel = &model.ChannelLat
		default:
			continue
		}
		if math.IsNaN(sel.Get(sample)) {
			sel.Set(sample, row.Value)
		}
	}

	ret := make([]model.TelemetrySample, 0, len(order))
	for _, key := range order {
		ret = append(ret, *byKey[key])
	}
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].VehicleID != ret[j].VehicleID {
			return ret[i].VehicleID < ret[j].VehicleID
		}
		if ret[i].Lap != ret[j].Lap {
			return ret[i].Lap < ret[j].Lap
		}
		return ret[i].Timestamp.Before(ret[j].Timestamp)
	})

	if plan.speed == "" {
		deriveSpeedFromGPS(ret)
	}
	if plan.distance == "" {
		integrateDistance(ret)
	}
	return ret, nil
}

// deriveSpeedFromGPS estimates speed from consecutive GPS fixes when no speed
// channel was recorded. Result is clamped to [0, 250] km/h.
func deriveSpeedFromGPS(samples []model.TelemetrySample) {
	for i := range samples {
		speed := 0.0
		if i > 0 && samples[i].VehicleID == samples[i-1].VehicleID {
			dist := haversineMeters(
				samples[i-1].Lon, samples[i-1].Lat, samples[i].Lon, samples[i].Lat)
			dt := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Seconds()
			if dt > 0 {
				speed = dist / dt * 3.6
			}
		}
		if math.IsNaN(speed) {
			speed = 0
		}
		samples[i].Speed = math.Min(math.Max(speed, 0), 250)
	}
}

func haversineMeters(lon1, lat1, lon2, lat2 float64) float64 {
	if math.IsNaN(lon1) || math.IsNaN(lat1) || math.IsNaN(lon2) || math.IsNaN(lat2) {
		return 0
	}
	const earthRadius = 6371000.0
	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLon := toRad(lon2 - lon1)
	dLat := toRad(lat2 - lat1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Pow(math.Sin(dLon/2), 2)
	return 2 * math.Asin(math.Sqrt(a)) * earthRadius
}

// integrateDistance fills the distance channel by integrating speed over time
// per vehicle and lap when no lap-distance channel was recorded.
func integrateDistance(samples []model.TelemetrySample) {
	var cum float64
	for i := range samples {
		newGroup := i == 0 ||
			samples[i].VehicleID != samples[i-1].VehicleID ||
			samples[i].Lap != samples[i-1].Lap
		if newGroup {
			cum = 0
			samples[i].Distance = cum
			continue
		}
		dt := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Seconds()
		if dt < 0 {
			dt = 0
		}
		step := samples[i].Speed / 3.6 * dt
		if math.IsNaN(step) {
			samples[i].Distance = math.NaN()
			continue
		}
		cum += step
		samples[i].Distance = cum
	}
}
