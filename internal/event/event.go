// Package event holds the per-event data model: the primary vertices injected
// into an event and the generated-particle records kept for analysis.
package event

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// PrimaryParticle is one particle attached to a primary vertex.
// Momentum is in MeV, KineticEnergy and Mass in MeV.
type PrimaryParticle struct {
	PDGCode       int     `json:"pdg_code"`
	Momentum      r3.Vec  `json:"momentum"`
	KineticEnergy float64 `json:"kinetic_energy_mev"`
	Mass          float64 `json:"mass_mev"`
}

// PrimaryVertex is a space-time point (mm, ns) with the particles leaving it.
type PrimaryVertex struct {
	Position  r3.Vec            `json:"position"`
	Time      float64           `json:"time_ns"`
	Particles []PrimaryParticle `json:"particles"`
}

// Event is the mutable event handle generators write primary vertices into.
type Event struct {
	ID       int             `json:"id"`
	Vertices []PrimaryVertex `json:"vertices"`
}

// New returns an empty event.
func New(id int) *Event {
	return &Event{ID: id}
}

// AddPrimaryVertex appends a vertex to the event.
func (e *Event) AddPrimaryVertex(v PrimaryVertex) {
	e.Vertices = append(e.Vertices, v)
}

// NumPrimaries counts the primary particles over all vertices.
func (e *Event) NumPrimaries() int {
	n := 0
	for _, v := range e.Vertices {
		n += len(v.Particles)
	}
	return n
}

// GenParticle is the generated-particle record kept for each event.
// VertexKE is recorded in GeV; VertexPos in mm.
type GenParticle struct {
	VertexKE  float64 `json:"vertex_ke"`
	VertexPos r3.Vec  `json:"vertex_pos"`
	PDGID     int     `json:"pdgid"`
}
