// Package generator provides the primary-vertex generator backends and the
// registry the primary generator action selects its active backend from.
package generator

import (
	"github.com/banshee-data/primarygen/internal/event"
)

// Generator produces one or more primary vertices for an event.
type Generator interface {
	GeneratePrimaryVertex(evt *event.Event) error
}
