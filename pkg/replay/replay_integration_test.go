package replay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexreplay/apexreplay-service-go/pkg/replay"
	"github.com/apexreplay/apexreplay-service-go/pkg/session"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
	"github.com/apexreplay/apexreplay-service-go/testsupport/basedata"
)

func setupNormalizer(t *testing.T) *replay.Normalizer {
	t.Helper()
	dataDir := t.TempDir()
	_, err := basedata.SetupCircuit(dataDir)
	require.NoError(t, err)

	st, err := store.New(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return replay.New(session.New(st))
}

func TestNormalizeLapEndToEnd(t *testing.T) {
	n := setupNormalizer(t)
	timeline, err := n.NormalizeLap(context.Background(),
		basedata.CircuitID, basedata.ChassisA, basedata.CarNumberA, 2, basedata.Race)
	require.NoError(t, err)

	assert.Equal(t, basedata.CircuitID, timeline.Circuit)
	assert.Equal(t, 2, timeline.Lap)
	assert.Equal(t, len(timeline.Timeline), timeline.PointCount)
	require.NotEmpty(t, timeline.Timeline)
	assert.LessOrEqual(t, timeline.PointCount, replay.DefaultMaxPoints)
	assert.InDelta(t, 3600.0, timeline.MaxDistance, 0.01)
	assert.Greater(t, timeline.Duration, 0.0)

	for i := 1; i < len(timeline.Timeline); i++ {
		assert.GreaterOrEqual(t,
			timeline.Timeline[i].Time, timeline.Timeline[i-1].Time)
	}
}

func TestNormalizeLapMissingTelemetry(t *testing.T) {
	n := setupNormalizer(t)
	_, err := n.NormalizeLap(context.Background(),
		basedata.CircuitID, basedata.ChassisA, basedata.CarNumberA, 99, basedata.Race)
	assert.ErrorIs(t, err, session.ErrNoTelemetryForLap)
}
