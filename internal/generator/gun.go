package generator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/primarygen/internal/event"
	"github.com/banshee-data/primarygen/internal/particle"
)

// ErrNoDefinition is returned when the gun fires without a particle species.
var ErrNoDefinition = errors.New("particle gun has no particle definition")

// ErrNoDirection is returned when the gun fires with a zero momentum direction.
var ErrNoDirection = errors.New("particle gun has no momentum direction")

// ParticleGun shoots a fixed number of identical particles from one vertex.
type ParticleGun struct {
	n          int
	definition *particle.Definition
	direction  r3.Vec
	energy     float64
	position   r3.Vec
	time       float64
}

// NewParticleGun returns a gun that shoots n particles per event. n < 1 is
// treated as 1.
func NewParticleGun(n int) *ParticleGun {
	if n < 1 {
		n = 1
	}
	return &ParticleGun{n: n, direction: r3.Vec{Z: 1}}
}

// NumberOfParticles returns how many particles each vertex carries.
func (g *ParticleGun) NumberOfParticles() int { return g.n }

// SetParticleDefinition sets the species to shoot.
func (g *ParticleGun) SetParticleDefinition(d *particle.Definition) { g.definition = d }

// ParticleDefinition returns the current species, or nil.
func (g *ParticleGun) ParticleDefinition() *particle.Definition { return g.definition }

// SetMomentumDirection sets the direction of flight. Non-zero vectors are
// normalised; a zero vector is stored as-is and rejected when firing.
func (g *ParticleGun) SetMomentumDirection(v r3.Vec) {
	if r3.Norm(v) > 0 {
		v = r3.Unit(v)
	}
	g.direction = v
}

// MomentumDirection returns the unit direction of flight.
func (g *ParticleGun) MomentumDirection() r3.Vec { return g.direction }

// SetEnergy sets the kinetic energy in MeV.
func (g *ParticleGun) SetEnergy(e float64) { g.energy = e }

// Energy returns the kinetic energy in MeV.
func (g *ParticleGun) Energy() float64 { return g.energy }

// SetPosition sets the vertex position in mm.
func (g *ParticleGun) SetPosition(p r3.Vec) { g.position = p }

// Position returns the vertex position in mm.
func (g *ParticleGun) Position() r3.Vec { return g.position }

// SetTime sets the vertex time in ns.
func (g *ParticleGun) SetTime(t float64) { g.time = t }

// GeneratePrimaryVertex implements Generator.
func (g *ParticleGun) GeneratePrimaryVertex(evt *event.Event) error {
	if g.definition == nil {
		return ErrNoDefinition
	}
	if r3.Norm(g.direction) == 0 {
		return ErrNoDirection
	}

	m := g.definition.Mass
	p := math.Sqrt(g.energy * (g.energy + 2*m))
	momentum := r3.Scale(p, g.direction)

	particles := make([]event.PrimaryParticle, g.n)
	for i := range particles {
		particles[i] = event.PrimaryParticle{
			PDGCode:       g.definition.PDGCode,
			Momentum:      momentum,
			KineticEnergy: g.energy,
			Mass:          m,
		}
	}
	evt.AddPrimaryVertex(event.PrimaryVertex{
		Position:  g.position,
		Time:      g.time,
		Particles: particles,
	})
	return nil
}
