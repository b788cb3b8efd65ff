package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/apexreplay/apexreplay-service-go/pkg/model"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

// static circuit metadata keyed by directory slug
//
//nolint:gochecknoglobals // fixed lookup table
var circuitMetadata = map[string]model.Circuit{
	"barber": {
		ID:          "barber",
		Name:        "Barber Motorsports Park",
		Location:    "Birmingham, Alabama",
		LengthMiles: lo.ToPtr(2.28),
		LengthKM:    lo.ToPtr(3.67),
		Sectors:     lo.ToPtr(3),
		FinishLineGPS: &model.FinishLineGPS{
			Lat: 33.5326722,
			Lon: -86.6196083,
		},
	},
}

func formatCircuitName(slug string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(slug)
	return strings.Title(cleaned) //nolint:staticcheck // ASCII slugs only
}

func (s *Session) circuit(id string, extended bool) model.Circuit {
	ret := model.Circuit{
		ID:    id,
		Name:  formatCircuitName(id),
		Races: s.store.DiscoverRaces(id),
	}
	meta, ok := circuitMetadata[id]
	if !ok {
		return ret
	}
	ret.Name = meta.Name
	ret.LengthMiles = meta.LengthMiles
	ret.LengthKM = meta.LengthKM
	ret.Sectors = meta.Sectors
	if extended {
		ret.Location = meta.Location
		ret.FinishLineGPS = meta.FinishLineGPS
	}
	return ret
}

// Circuits lists the circuits that carry usable session data, sorted by
// display name.
func (s *Session) Circuits() []model.Circuit {
	ret := lo.Map(s.store.CircuitDirs(), func(id string, _ int) model.Circuit {
		return s.circuit(id, false)
	})
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

// Circuit returns the extended metadata of one circuit.
func (s *Session) Circuit(id string) (model.Circuit, error) {
	if !lo.Contains(s.store.CircuitDirs(), id) {
		return model.Circuit{}, fmt.Errorf("%w: circuit %s", store.ErrNotFound, id)
	}
	return s.circuit(id, true), nil
}
