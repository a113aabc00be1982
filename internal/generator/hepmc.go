package generator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/primarygen/internal/event"
	"github.com/banshee-data/primarygen/internal/monitoring"
	"github.com/banshee-data/primarygen/internal/units"
)

// ErrEndOfInput is returned when the event listing has no more events.
var ErrEndOfInput = errors.New("hepmc: end of event listing")

// ErrNotOpen is returned when the reader is asked for an event before a
// source has been opened.
var ErrNotOpen = errors.New("hepmc: no input open")

// speed of light in mm/ns
const cLight = 299.792458

const (
	listingStart = "HepMC::IO_GenEvent-START_EVENT_LISTING"
	listingEnd   = "HepMC::IO_GenEvent-END_EVENT_LISTING"
	// statusFinal marks a stable final-state particle
	statusFinal = 1
)

// HepMCAscii reads events in the HepMC2 IO_GenEvent ASCII format and turns
// every final-state particle into a primary attached to its production vertex.
type HepMCAscii struct {
	path    string
	verbose int
	src     io.Closer
	dec     *hepmcDecoder
}

// NewHepMCAscii returns a reader with no open input.
func NewHepMCAscii() *HepMCAscii {
	return &HepMCAscii{}
}

// Open (re)opens the reader on a file, closing any previous input.
func (h *HepMCAscii) Open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open hepmc file: %w", err)
	}
	if err := h.Close(); err != nil {
		monitoring.Logf("hepmc: failed to close previous input %s: %v", h.path, err)
	}
	h.path = path
	h.attach(f, f)
	monitoring.Logf("hepmc: reading events from %s", path)
	return nil
}

// Attach reads events from r. If r is also an io.Closer it is closed by Close.
func (h *HepMCAscii) Attach(r io.Reader) {
	var c io.Closer
	if rc, ok := r.(io.Closer); ok {
		c = rc
	}
	h.attach(r, c)
}

func (h *HepMCAscii) attach(r io.Reader, c io.Closer) {
	h.src = c
	h.dec = newHepMCDecoder(r)
}

// Path returns the currently opened file, if any.
func (h *HepMCAscii) Path() string { return h.path }

// SetVerbose sets the reader's verbosity. Level 1 logs each event read.
func (h *HepMCAscii) SetVerbose(level int) { h.verbose = level }

// Verbose returns the reader's verbosity.
func (h *HepMCAscii) Verbose() int { return h.verbose }

// GeneratePrimaryVertex implements Generator by consuming the next event.
func (h *HepMCAscii) GeneratePrimaryVertex(evt *event.Event) error {
	if h.dec == nil {
		return ErrNotOpen
	}
	ge, err := h.dec.next()
	if err != nil {
		return err
	}
	if h.verbose > 0 {
		monitoring.Logf("hepmc: event %d with %d vertices", ge.number, len(ge.vertices))
	}
	ge.fill(evt)
	return nil
}

// Close releases the input. It is safe to call more than once.
func (h *HepMCAscii) Close() error {
	src := h.src
	h.src = nil
	h.dec = nil
	if src == nil {
		return nil
	}
	return src.Close()
}

type genParticle struct {
	barcode int
	pdg     int
	p       r3.Vec
	e       float64
	m       float64
	status  int
}

type genVertex struct {
	barcode   int
	pos       r3.Vec
	ctau      float64
	nOrphan   int
	particles []genParticle
}

type genEvent struct {
	number   int
	momUnit  float64
	lenUnit  float64
	vertices []genVertex
}

// fill converts the final-state particles of the event into primary vertices.
func (ge *genEvent) fill(evt *event.Event) {
	for _, v := range ge.vertices {
		var primaries []event.PrimaryParticle
		for i, p := range v.particles {
			// the first nOrphan particles of a vertex are incoming
			if i < v.nOrphan || p.status != statusFinal {
				continue
			}
			mass := p.m * ge.momUnit
			primaries = append(primaries, event.PrimaryParticle{
				PDGCode:       p.pdg,
				Momentum:      r3.Scale(ge.momUnit, p.p),
				KineticEnergy: p.e*ge.momUnit - mass,
				Mass:          mass,
			})
		}
		if len(primaries) == 0 {
			continue
		}
		evt.AddPrimaryVertex(event.PrimaryVertex{
			Position:  r3.Scale(ge.lenUnit, v.pos),
			Time:      v.ctau * ge.lenUnit / cLight,
			Particles: primaries,
		})
	}
}

type hepmcDecoder struct {
	sc      *bufio.Scanner
	line    int
	pending []string
	done    bool
}

func newHepMCDecoder(r io.Reader) *hepmcDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &hepmcDecoder{sc: sc}
}

// readLine returns the fields of the next non-empty line, or nil at EOF.
func (d *hepmcDecoder) readLine() ([]string, error) {
	if d.pending != nil {
		f := d.pending
		d.pending = nil
		return f, nil
	}
	for d.sc.Scan() {
		d.line++
		f := strings.Fields(d.sc.Text())
		if len(f) > 0 {
			return f, nil
		}
	}
	if err := d.sc.Err(); err != nil {
		return nil, fmt.Errorf("hepmc: read line %d: %w", d.line, err)
	}
	return nil, nil
}

func (d *hepmcDecoder) errorf(format string, v ...interface{}) error {
	return fmt.Errorf("hepmc: line %d: %s", d.line, fmt.Sprintf(format, v...))
}

// next decodes the next event record.
func (d *hepmcDecoder) next() (*genEvent, error) {
	if d.done {
		return nil, ErrEndOfInput
	}

	// skip header lines up to the first E record
	var ge *genEvent
	for ge == nil {
		f, err := d.readLine()
		if err != nil {
			return nil, err
		}
		if f == nil || f[0] == listingEnd {
			d.done = true
			return nil, ErrEndOfInput
		}
		if f[0] != "E" {
			continue
		}
		n, err := d.atoi(f, 1)
		if err != nil {
			return nil, err
		}
		ge = &genEvent{number: n, momUnit: units.GeV, lenUnit: units.MM}
	}

	for {
		f, err := d.readLine()
		if err != nil {
			return nil, err
		}
		if f == nil {
			d.done = true
			return ge, nil
		}
		switch f[0] {
		case "E", listingEnd, listingStart:
			d.pending = f
			return ge, nil
		case "U":
			if err := d.units(ge, f); err != nil {
				return nil, err
			}
		case "V":
			v, err := d.vertex(f)
			if err != nil {
				return nil, err
			}
			ge.vertices = append(ge.vertices, v)
		case "P":
			if len(ge.vertices) == 0 {
				return nil, d.errorf("particle before any vertex")
			}
			p, err := d.particle(f)
			if err != nil {
				return nil, err
			}
			last := &ge.vertices[len(ge.vertices)-1]
			last.particles = append(last.particles, p)
		default:
			// N, C, H, F and version lines carry nothing the reader uses
		}
	}
}

func (d *hepmcDecoder) units(ge *genEvent, f []string) error {
	if len(f) < 3 {
		return d.errorf("short units line")
	}
	switch f[1] {
	case "GEV":
		ge.momUnit = units.GeV
	case "MEV":
		ge.momUnit = units.MeV
	default:
		return d.errorf("unknown momentum unit %q", f[1])
	}
	switch f[2] {
	case "MM":
		ge.lenUnit = units.MM
	case "CM":
		ge.lenUnit = units.CM
	default:
		return d.errorf("unknown length unit %q", f[2])
	}
	return nil
}

// V barcode id x y z ctau n_orphan n_out n_weights [weights]
func (d *hepmcDecoder) vertex(f []string) (genVertex, error) {
	if len(f) < 9 {
		return genVertex{}, d.errorf("short vertex line")
	}
	var v genVertex
	var err error
	if v.barcode, err = d.atoi(f, 1); err != nil {
		return v, err
	}
	xyzt := make([]float64, 4)
	for i := range xyzt {
		if xyzt[i], err = d.atof(f, 3+i); err != nil {
			return v, err
		}
	}
	v.pos = r3.Vec{X: xyzt[0], Y: xyzt[1], Z: xyzt[2]}
	v.ctau = xyzt[3]
	if v.nOrphan, err = d.atoi(f, 7); err != nil {
		return v, err
	}
	return v, nil
}

// P barcode pdg px py pz e m status theta phi end_vtx n_flow [flows]
func (d *hepmcDecoder) particle(f []string) (genParticle, error) {
	if len(f) < 9 {
		return genParticle{}, d.errorf("short particle line")
	}
	var p genParticle
	var err error
	if p.barcode, err = d.atoi(f, 1); err != nil {
		return p, err
	}
	if p.pdg, err = d.atoi(f, 2); err != nil {
		return p, err
	}
	kin := make([]float64, 5)
	for i := range kin {
		if kin[i], err = d.atof(f, 3+i); err != nil {
			return p, err
		}
	}
	p.p = r3.Vec{X: kin[0], Y: kin[1], Z: kin[2]}
	p.e = kin[3]
	p.m = kin[4]
	if p.status, err = d.atoi(f, 8); err != nil {
		return p, err
	}
	return p, nil
}

func (d *hepmcDecoder) atoi(f []string, i int) (int, error) {
	if i >= len(f) {
		return 0, d.errorf("missing field %d", i)
	}
	n, err := strconv.Atoi(f[i])
	if err != nil {
		return 0, d.errorf("field %d: %v", i, err)
	}
	return n, nil
}

func (d *hepmcDecoder) atof(f []string, i int) (float64, error) {
	if i >= len(f) {
		return 0, d.errorf("missing field %d", i)
	}
	v, err := strconv.ParseFloat(f[i], 64)
	if err != nil {
		return 0, d.errorf("field %d: %v", i, err)
	}
	return v, nil
}
