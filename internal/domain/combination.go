// Package domain holds the entities shared by the matcher, the gap detector and its collaborators.
package domain

import "errors"

// ErrEmptyInput is returned when services, locations or URLs are empty.
var ErrEmptyInput = errors.New("empty input")

// Combination is one (service, location) pair under evaluation. Values keep the caller's
// casing for display; matching folds case separately.
type Combination struct {
	Service  string `json:"service"`
	Location string `json:"location"`
}

// DisplayText returns "{service} in {location}".
func (c Combination) DisplayText() string {
	return c.Service + " in " + c.Location
}

// Combinations returns the service-major, location-minor cross product.
func Combinations(services, locations []string) []Combination {
	out := make([]Combination, 0, len(services)*len(locations))
	for _, s := range services {
		for _, l := range locations {
			out = append(out, Combination{Service: s, Location: l})
		}
	}
	return out
}
