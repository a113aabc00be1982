// Package messenger exposes run-time generator controls as text commands,
// one command per line, in the style of simulation macro files:
//
//	/generator/select hepmcAscii
//	/generator/hepmc/open events.hepmc
//	/generator/hepmc/verbose 1
//
// Lines starting with '#' are comments. Gun settings made here are defaults
// only; the primary generator action re-fixes them for every event.
package messenger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/primarygen/internal/generator"
	"github.com/banshee-data/primarygen/internal/monitoring"
	"github.com/banshee-data/primarygen/internal/units"
)

// ErrUnknownCommand is returned for a command path with no handler.
var ErrUnknownCommand = errors.New("unknown command")

// ErrDetached is returned once the messenger has been released by its owner.
var ErrDetached = errors.New("messenger is detached")

// Target is the action a messenger is bound to.
type Target interface {
	Registry() *generator.Registry
	HepMC() *generator.HepMCAscii
	Gun() *generator.ParticleGun
}

type command struct {
	usage string
	nargs int
	run   func(t Target, args []string) (string, error)
}

// Messenger parses and applies commands against its target.
type Messenger struct {
	target   Target
	commands map[string]command
}

// New binds a messenger to t.
func New(t Target) *Messenger {
	return &Messenger{
		target: t,
		commands: map[string]command{
			"/generator/select": {
				usage: "/generator/select <name>",
				nargs: 1,
				run: func(t Target, args []string) (string, error) {
					if err := t.Registry().Select(args[0]); err != nil {
						return "", err
					}
					return "active generator: " + args[0], nil
				},
			},
			"/generator/clear": {
				usage: "/generator/clear",
				run: func(t Target, _ []string) (string, error) {
					t.Registry().Clear()
					return "active generator cleared", nil
				},
			},
			"/generator/list": {
				usage: "/generator/list",
				run:   listGenerators,
			},
			"/generator/hepmc/open": {
				usage: "/generator/hepmc/open <path>",
				nargs: 1,
				run: func(t Target, args []string) (string, error) {
					if err := t.HepMC().Open(args[0]); err != nil {
						return "", err
					}
					return "hepmc input: " + args[0], nil
				},
			},
			"/generator/hepmc/verbose": {
				usage: "/generator/hepmc/verbose <level>",
				nargs: 1,
				run: func(t Target, args []string) (string, error) {
					level, err := strconv.Atoi(args[0])
					if err != nil {
						return "", fmt.Errorf("invalid verbose level %q", args[0])
					}
					t.HepMC().SetVerbose(level)
					return fmt.Sprintf("hepmc verbose: %d", level), nil
				},
			},
			"/gun/position": {
				usage: "/gun/position <x> <y> <z> <" + units.ValidLengthUnitsString() + ">",
				nargs: 4,
				run:   setGunPosition,
			},
			"/gun/energy": {
				usage: "/gun/energy <value> <" + units.ValidEnergyUnitsString() + ">",
				nargs: 2,
				run:   setGunEnergy,
			},
			"/control/verbose": {
				usage: "/control/verbose <level>",
				nargs: 1,
				run: func(_ Target, args []string) (string, error) {
					level, err := strconv.Atoi(args[0])
					if err != nil {
						return "", fmt.Errorf("invalid verbose level %q", args[0])
					}
					monitoring.SetVerbosity(level)
					return fmt.Sprintf("verbose: %d", level), nil
				},
			},
		},
	}
}

func setGunPosition(t Target, args []string) (string, error) {
	if !units.IsValidLength(args[3]) {
		return "", fmt.Errorf("invalid length unit %q, valid units: %s", args[3], units.ValidLengthUnitsString())
	}
	unit, _ := units.Length(args[3])
	var xyz [3]float64
	for i := range xyz {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return "", fmt.Errorf("invalid coordinate %q", args[i])
		}
		xyz[i] = v * unit
	}
	pos := r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	t.Gun().SetPosition(pos)
	return fmt.Sprintf("gun position: %g,%g,%g mm", pos.X, pos.Y, pos.Z), nil
}

func setGunEnergy(t Target, args []string) (string, error) {
	if !units.IsValidEnergy(args[1]) {
		return "", fmt.Errorf("invalid energy unit %q, valid units: %s", args[1], units.ValidEnergyUnitsString())
	}
	unit, _ := units.Energy(args[1])
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || v < 0 {
		return "", fmt.Errorf("invalid energy %q", args[0])
	}
	t.Gun().SetEnergy(v * unit)
	return fmt.Sprintf("gun energy: %g MeV", v*unit), nil
}

func listGenerators(t Target, _ []string) (string, error) {
	reg := t.Registry()
	_, active, _ := reg.Active()
	var b strings.Builder
	for i, name := range reg.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		if e, _ := reg.Lookup(name); !e.IsPresent() {
			b.WriteString(" (absent)")
		}
		if name == active {
			b.WriteString(" *")
		}
	}
	return b.String(), nil
}

// Commands lists the usage line of every command in sorted order.
func (m *Messenger) Commands() []string {
	out := make([]string, 0, len(m.commands))
	for _, c := range m.commands {
		out = append(out, c.usage)
	}
	sort.Strings(out)
	return out
}

// Apply runs a single command line and returns its response.
func (m *Messenger) Apply(line string) (string, error) {
	if m.target == nil {
		return "", ErrDetached
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, ok := m.commands[fields[0]]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	args := fields[1:]
	if len(args) != cmd.nargs {
		return "", fmt.Errorf("usage: %s", cmd.usage)
	}
	resp, err := cmd.run(m.target, args)
	if err != nil {
		return "", fmt.Errorf("%s: %w", fields[0], err)
	}
	monitoring.Verbosef(1, "messenger: %s", resp)
	return resp, nil
}

// ApplyMacro applies every command in r, stopping at the first failure.
func (m *Messenger) ApplyMacro(r io.Reader) error {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := m.Apply(line); err != nil {
			return fmt.Errorf("macro line %d: %w", n, err)
		}
	}
	return sc.Err()
}

// Close detaches the messenger from its target.
func (m *Messenger) Close() {
	m.target = nil
}
