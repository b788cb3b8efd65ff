package replay

import (
	"fmt"
	"math/rand"
	"sort"
)

const (
	// emit commentary on roughly a third of the ticks to avoid spam
	commentaryChance = 0.3

	largeGapMeters = 50.0
	tightGapMeters = 10.0
	topSpeedKPH    = 160.0
)

// CarState is one car of a synchronized replay tick.
type CarState struct {
	Name     string  `json:"name"`
	Position int     `json:"position"`
	Distance float64 `json:"distance"`
	Speed    float64 `json:"speed"`
}

// RaceState is the playback state the frontend reports per tick.
type RaceState struct {
	Cars        []CarState `json:"cars"`
	CurrentTime float64    `json:"current_time"`
}

type (
	CommentaryOption func(*Commentator)

	// Commentator produces occasional race commentary for synchronized
	// playback. Emission is probabilistic; the randomness source is
	// injectable so tests stay deterministic.
	Commentator struct {
		rand *rand.Rand
	}
)

func WithRand(arg *rand.Rand) CommentaryOption {
	return func(c *Commentator) {
		c.rand = arg
	}
}

func NewCommentator(opts ...CommentaryOption) *Commentator {
	ret := &Commentator{
		rand: rand.New(rand.NewSource(rand.Int63())), //nolint:gosec // not crypto
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Commentary returns a line about the current race state or nil when there is
// nothing worth saying (or the dice said keep quiet).
func (c *Commentator) Commentary(state RaceState) *string {
	if len(state.Cars) < 2 {
		return nil
	}
	cars := make([]CarState, len(state.Cars))
	copy(cars, state.Cars)
	sort.SliceStable(cars, func(i, j int) bool { return cars[i].Distance > cars[j].Distance })

	leader, second := cars[0], cars[1]
	gap := leader.Distance - second.Distance

	if c.rand.Float64() > commentaryChance {
		return nil
	}

	templates := make([]string, 0, 3)
	switch {
	case gap > largeGapMeters:
		templates = append(templates,
			fmt.Sprintf("%s is building a solid lead, %dm ahead.", leader.Name, int(gap)),
			fmt.Sprintf("%s is running away with it!", leader.Name))
	case gap < tightGapMeters:
		templates = append(templates,
			fmt.Sprintf("%s is right on the gearbox of %s!", second.Name, leader.Name),
			fmt.Sprintf("Tight battle for the lead! Only %dm separates them.", int(gap)))
	}
	if leader.Speed > topSpeedKPH {
		templates = append(templates,
			fmt.Sprintf("%s hitting top speeds of %d km/h.", leader.Name, int(leader.Speed)))
	}
	if len(templates) == 0 {
		return nil
	}
	ret := templates[c.rand.Intn(len(templates))]
	return &ret
}
