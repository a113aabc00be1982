// Package primary implements the per-event primary generator action.
//
// An Action is created once per worker. For every event it fires a 4 GeV
// electron along +z from a random transverse position on the upstream face of
// the world volume, delegates vertex creation to the active generator backend
// and appends one generated-particle record to the event's record sink.
package primary

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/primarygen/internal/detector"
	"github.com/banshee-data/primarygen/internal/event"
	"github.com/banshee-data/primarygen/internal/generator"
	"github.com/banshee-data/primarygen/internal/messenger"
	"github.com/banshee-data/primarygen/internal/monitoring"
	"github.com/banshee-data/primarygen/internal/particle"
	"github.com/banshee-data/primarygen/internal/rng"
	"github.com/banshee-data/primarygen/internal/units"
)

const (
	beamParticle = "e-"
	beamEnergy   = 4 * units.GeV
	// transverse start positions are drawn from [-beamSpread, beamSpread] mm
	beamSpread = 10.0
)

var beamDirection = r3.Vec{Z: 1}

// Sink receives the detector structure once and one generated-particle record
// per successfully generated event.
type Sink interface {
	Add(structure []detector.SamplingSection)
	AddGenParticle(rec event.GenParticle)
}

// Options are accepted from the run configuration and passed through
// untouched. BridgeCommand enables the external generator bridge.
type Options struct {
	Mode          int
	Signal        bool
	Data          string
	BridgeCommand string
	BridgeArgs    []string
}

// Deps are the collaborators an Action is wired to.
type Deps struct {
	Detector  detector.Detector
	Sink      Sink
	Particles *particle.Table
	RNG       rng.Engine
}

func (d Deps) validate() error {
	switch {
	case d.Detector == nil:
		return errors.New("primary: detector is required")
	case d.Sink == nil:
		return errors.New("primary: record sink is required")
	case d.Particles == nil:
		return errors.New("primary: particle table is required")
	case d.RNG == nil:
		return errors.New("primary: random engine is required")
	}
	return nil
}

// Action generates the primaries of each event.
type Action struct {
	opts      Options
	detector  detector.Detector
	sink      Sink
	particles *particle.Table
	rng       rng.Engine

	gun       *generator.ParticleGun
	hepmc     *generator.HepMCAscii
	registry  *generator.Registry
	messenger *messenger.Messenger
	closed    bool
}

// New builds an action with the particle gun as the active generator.
func New(opts Options, deps Deps) (*Action, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	electron, ok := deps.Particles.Find(beamParticle)
	if !ok {
		return nil, fmt.Errorf("primary: particle %q not in table", beamParticle)
	}

	bridge := generator.Absent(generator.KindBridge)
	if opts.BridgeCommand != "" {
		b, err := generator.NewBridge(opts.BridgeCommand, opts.BridgeArgs...)
		if err != nil {
			return nil, fmt.Errorf("primary: %w", err)
		}
		bridge = generator.Present(generator.KindBridge, b)
	}

	a := &Action{
		opts:      opts,
		detector:  deps.Detector,
		sink:      deps.Sink,
		particles: deps.Particles,
		rng:       deps.RNG,
		gun:       generator.NewParticleGun(1),
		hepmc:     generator.NewHepMCAscii(),
		registry:  generator.NewRegistry(),
	}
	a.registry.Register(generator.NameParticleGun, generator.Present(generator.KindParticleGun, a.gun))
	a.registry.Register(generator.NameHepMCAscii, generator.Present(generator.KindHepMCAscii, a.hepmc))
	a.registry.Register(generator.NameBridge, bridge)
	if err := a.registry.Select(generator.NameParticleGun); err != nil {
		return nil, err
	}

	a.messenger = messenger.New(a)
	a.sink.Add(a.detector.Structure())

	z := a.gunZ()
	a.gun.SetParticleDefinition(electron)
	a.gun.SetMomentumDirection(beamDirection)
	a.gun.SetEnergy(beamEnergy)
	a.gun.SetPosition(r3.Vec{X: 0, Y: 0, Z: z})
	monitoring.Logf(" -- Gun position set to: 0,0,%g", z)

	return a, nil
}

// gunZ is the upstream edge of the world volume.
func (a *Action) gunZ() float64 {
	return -0.5 * a.detector.WorldSizeZ()
}

// GeneratePrimaries fills evt with this event's primary vertices and appends
// one generated-particle record to the sink. With no active generator it
// returns a *FatalError and appends nothing; the run must stop.
func (a *Action) GeneratePrimaries(evt *event.Event) error {
	electron, ok := a.particles.Find(beamParticle)
	if !ok {
		return fmt.Errorf("primary: particle %q not in table", beamParticle)
	}
	a.gun.SetParticleDefinition(electron)
	a.gun.SetEnergy(beamEnergy)
	a.gun.SetMomentumDirection(beamDirection)

	y0 := a.rng.Flat(-beamSpread, beamSpread)
	x0 := a.rng.Flat(-beamSpread, beamSpread)
	z0 := a.gunZ()
	pos := r3.Vec{X: x0, Y: y0, Z: z0}
	a.gun.SetPosition(pos)

	rec := event.GenParticle{
		VertexKE:  beamEnergy / units.GeV,
		VertexPos: pos,
		PDGID:     electron.PDGCode,
	}

	gen, name, ok := a.registry.Active()
	if !ok {
		return &FatalError{
			Origin:  originGeneratePrimaries,
			Code:    CodeNoGenerator,
			Message: "generator is not instantiated.",
			Err:     ErrNoGenerator,
		}
	}
	if err := gen.GeneratePrimaryVertex(evt); err != nil {
		return fmt.Errorf("generator %s, event %d: %w", name, evt.ID, err)
	}
	a.sink.AddGenParticle(rec)
	monitoring.Verbosef(2, "event %d: %s primary at (%.3f, %.3f, %.3f)", evt.ID, name, x0, y0, z0)
	return nil
}

// Mode returns the model selector the action was built with.
func (a *Action) Mode() int { return a.opts.Mode }

// Signal returns the signal flag the action was built with.
func (a *Action) Signal() bool { return a.opts.Signal }

// Data returns the data source string the action was built with.
func (a *Action) Data() string { return a.opts.Data }

// Registry returns the generator registry.
func (a *Action) Registry() *generator.Registry { return a.registry }

// Gun returns the particle gun backend.
func (a *Action) Gun() *generator.ParticleGun { return a.gun }

// HepMC returns the HepMC ASCII reader backend.
func (a *Action) HepMC() *generator.HepMCAscii { return a.hepmc }

// Messenger returns the command interface bound to this action.
func (a *Action) Messenger() *messenger.Messenger { return a.messenger }

// SelectGenerator makes the named backend active.
func (a *Action) SelectGenerator(name string) error { return a.registry.Select(name) }

// ClearGenerator unsets the active backend.
func (a *Action) ClearGenerator() { a.registry.Clear() }

// Close releases the backends and the messenger. It is safe to call more
// than once.
func (a *Action) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.messenger.Close()
	return a.registry.Close()
}
