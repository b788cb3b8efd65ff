package replay

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCommentator(seed int64) *Commentator {
	return NewCommentator(WithRand(rand.New(rand.NewSource(seed)))) //nolint:gosec // test
}

func raceState(leadDistance, secondDistance, leadSpeed float64) RaceState {
	return RaceState{
		Cars: []CarState{
			{Name: "Ghost", Position: 2, Distance: secondDistance, Speed: 140},
			{Name: "Golden", Position: 1, Distance: leadDistance, Speed: leadSpeed},
		},
		CurrentTime: 45,
	}
}

func collect(c *Commentator, state RaceState, n int) []string {
	ret := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if line := c.Commentary(state); line != nil {
			ret = append(ret, *line)
		}
	}
	return ret
}

func TestCommentaryNeedsTwoCars(t *testing.T) {
	c := fixedCommentator(1)
	assert.Nil(t, c.Commentary(RaceState{Cars: []CarState{{Name: "Solo"}}}))
}

func TestCommentaryLargeGap(t *testing.T) {
	c := fixedCommentator(1)
	lines := collect(c, raceState(1000, 900, 150), 200)
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Contains(t, line, "Golden")
	}
	assert.True(t, strings.Contains(strings.Join(lines, "\n"), "100m ahead") ||
		strings.Contains(strings.Join(lines, "\n"), "running away"))
}

func TestCommentaryTightBattle(t *testing.T) {
	c := fixedCommentator(2)
	lines := collect(c, raceState(1000, 995, 150), 200)
	require.NotEmpty(t, lines)
	joined := strings.Join(lines, "\n")
	assert.True(t, strings.Contains(joined, "gearbox") ||
		strings.Contains(joined, "Tight battle"))
}

func TestCommentaryTopSpeed(t *testing.T) {
	// medium gap: only the top speed template applies
	c := fixedCommentator(3)
	lines := collect(c, raceState(1000, 980, 170), 200)
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Contains(t, line, "170 km/h")
	}
}

func TestCommentaryNothingToSay(t *testing.T) {
	// medium gap, modest speed: never a line regardless of dice
	c := fixedCommentator(4)
	assert.Empty(t, collect(c, raceState(1000, 980, 150), 200))
}
