// Package detector describes the simulated calorimeter geometry: an ordered
// stack of sampling sections inside a world box centred on the origin, with
// the beam travelling along +z.
package detector

import (
	"fmt"

	"github.com/banshee-data/primarygen/internal/units"
)

// Detector is the geometry view the primary generator consumes.
type Detector interface {
	// WorldSizeZ is the full extent of the world volume along the beam axis, in mm.
	WorldSizeZ() float64
	// Structure lists the sampling sections from upstream to downstream.
	Structure() []SamplingSection
}

// SamplingSection is one layer of the calorimeter stack.
type SamplingSection struct {
	Name      string  `json:"name"`
	Material  string  `json:"material"`
	Thickness float64 `json:"thickness_mm"`
}

// Model selectors.
const (
	ModelFull      = 0
	ModelPrototype = 1
	ModelBareSi    = 2
)

// worldMargin is added on each side of the stack along z.
const worldMargin = 10 * units.CM

// Construction is the concrete detector built from a model selector.
type Construction struct {
	model      int
	sections   []SamplingSection
	worldSizeZ float64
}

// New builds the detector for the given model. A positive worldSizeZ overrides
// the size derived from the stack.
func New(model int, worldSizeZ float64) (*Construction, error) {
	var sections []SamplingSection
	switch model {
	case ModelFull:
		sections = samplingStack(28, 3*units.MM)
	case ModelPrototype:
		sections = samplingStack(8, 6*units.MM)
	case ModelBareSi:
		sections = []SamplingSection{siLayer(0)}
	default:
		return nil, fmt.Errorf("unknown detector model %d", model)
	}

	if worldSizeZ < 0 {
		return nil, fmt.Errorf("world size z must be positive, got %g", worldSizeZ)
	}
	if worldSizeZ == 0 {
		worldSizeZ = StackThickness(sections) + 2*worldMargin
	}

	return &Construction{model: model, sections: sections, worldSizeZ: worldSizeZ}, nil
}

func samplingStack(layers int, absorber float64) []SamplingSection {
	sections := make([]SamplingSection, 0, layers*3)
	for i := 0; i < layers; i++ {
		sections = append(sections,
			SamplingSection{Name: fmt.Sprintf("W%d", i), Material: "G4_W", Thickness: absorber},
			siLayer(i),
			SamplingSection{Name: fmt.Sprintf("PCB%d", i), Material: "FR4", Thickness: 1.2 * units.MM},
		)
	}
	return sections
}

func siLayer(i int) SamplingSection {
	return SamplingSection{Name: fmt.Sprintf("Si%d", i), Material: "G4_Si", Thickness: 0.3 * units.MM}
}

// StackThickness sums the thickness of the given sections.
func StackThickness(sections []SamplingSection) float64 {
	total := 0.0
	for _, s := range sections {
		total += s.Thickness
	}
	return total
}

// Model returns the model selector the detector was built from.
func (c *Construction) Model() int { return c.model }

// WorldSizeZ implements Detector.
func (c *Construction) WorldSizeZ() float64 { return c.worldSizeZ }

// Structure implements Detector. The returned slice is a copy.
func (c *Construction) Structure() []SamplingSection {
	out := make([]SamplingSection, len(c.sections))
	copy(out, c.sections)
	return out
}
