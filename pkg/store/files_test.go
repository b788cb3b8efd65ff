package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestMatchesKind(t *testing.T) {
	assert.True(t, matchesKind("R1 Barber Telemetry.csv", KindTelemetry))
	assert.True(t, matchesKind("r1_lap_time.parquet", KindLapTime))
	assert.True(t, matchesKind("R2 Lap Start.csv", KindLapStart))
	assert.True(t, matchesKind("Race 1 Provisional Results.csv", KindResults))
	assert.True(t, matchesKind("R1 Results by Class.CSV", KindResults))
	assert.True(t, matchesKind("barber weather R1.csv", KindWeather))
	assert.False(t, matchesKind("R1 Weather.csv", KindTelemetry))
}

func TestShouldConvert(t *testing.T) {
	assert.True(t, shouldConvert("R1 Telemetry.csv"))
	assert.True(t, shouldConvert("r1 lap_end.csv"))
	assert.False(t, shouldConvert("R1 Results.csv"))
	assert.False(t, shouldConvert("R1 Weather.csv"))
}

func TestRaceTokens(t *testing.T) {
	assert.Equal(t, []string{"race 1", "r1", "race1"}, raceTokens("R1"))
	assert.Equal(t, []string{"race 10", "r10", "race10"}, raceTokens("R10"))
	assert.Empty(t, raceTokens(""))
}

func TestNameMatchesRace(t *testing.T) {
	tokens := raceTokens("R1")
	assert.True(t, nameMatchesRace("Barber R1 Telemetry.csv", tokens))
	assert.True(t, nameMatchesRace("barber race 1 telemetry.csv", tokens))
	assert.True(t, nameMatchesRace("barber_race1_telemetry.csv", tokens))
	assert.False(t, nameMatchesRace("Barber R2 Telemetry.csv", tokens))
	// no race filter matches everything
	assert.True(t, nameMatchesRace("anything.csv", nil))
}

func TestFindFilePrefersFreshParquet(t *testing.T) {
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "barber")
	require.NoError(t, os.Mkdir(dir, 0o755))

	now := time.Now()
	csv := touch(t, dir, "R1 Telemetry.csv", now.Add(-time.Hour))
	parquet := touch(t, dir, "R1 Telemetry.parquet", now)

	s := &Store{dataDir: dataDir}
	got, err := s.findFile("barber", "R1", KindTelemetry)
	require.NoError(t, err)
	assert.Equal(t, parquet, got)

	// stale parquet falls back to the newer csv
	require.NoError(t, os.Chtimes(parquet, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	got, err = s.findFile("barber", "R1", KindTelemetry)
	require.NoError(t, err)
	assert.Equal(t, csv, got)
}

func TestFindFileFiltersByRace(t *testing.T) {
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "barber")
	require.NoError(t, os.Mkdir(dir, 0o755))
	now := time.Now()
	touch(t, dir, "R1 Telemetry.csv", now)
	r2 := touch(t, dir, "R2 Telemetry.csv", now)

	s := &Store{dataDir: dataDir}
	got, err := s.findFile("barber", "R2", KindTelemetry)
	require.NoError(t, err)
	assert.Equal(t, r2, got)

	_, err = s.findFile("barber", "R3", KindTelemetry)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.findFile("nowhere", "R1", KindTelemetry)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCircuitDirs(t *testing.T) {
	dataDir := t.TempDir()
	full := filepath.Join(dataDir, "barber")
	half := filepath.Join(dataDir, "cota")
	require.NoError(t, os.Mkdir(full, 0o755))
	require.NoError(t, os.Mkdir(half, 0o755))
	now := time.Now()
	touch(t, full, "R1 Telemetry.parquet", now)
	touch(t, full, "R1 Lap Time.csv", now)
	touch(t, half, "R1 Telemetry.csv", now)

	s := &Store{dataDir: dataDir}
	assert.Equal(t, []string{"barber"}, s.CircuitDirs())
}

func TestDiscoverRaces(t *testing.T) {
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "barber")
	require.NoError(t, os.Mkdir(dir, 0o755))
	now := time.Now()
	touch(t, dir, "R1 Telemetry.csv", now)
	touch(t, dir, "r2 lap_time.csv", now)
	touch(t, dir, "R2 Weather.csv", now)
	touch(t, dir, "notes.txt", now)

	s := &Store{dataDir: dataDir}
	assert.Equal(t, []string{"R1", "R2"}, s.DiscoverRaces("barber"))
}

func TestTableCol(t *testing.T) {
	tbl := &Table{Columns: []string{"POS", "CLASS", "BEST_LAP_TIME"}}
	assert.Equal(t, 1, tbl.Col("CLASS"))
	assert.Equal(t, -1, tbl.Col("missing"))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'/data/it''s.csv'", quoteLiteral("/data/it's.csv"))
}
