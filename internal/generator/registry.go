package generator

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// Registry names of the three backends.
const (
	NameParticleGun = "particleGun"
	NameHepMCAscii  = "hepmcAscii"
	NameBridge      = "pythia"
)

// ErrUnknownGenerator is returned when selecting a name that is not registered.
var ErrUnknownGenerator = errors.New("unknown generator")

// ErrGeneratorAbsent is returned when selecting a registered backend that is
// not available in this build or configuration.
var ErrGeneratorAbsent = errors.New("generator not available")

// Kind identifies a backend family.
type Kind int

const (
	KindParticleGun Kind = iota
	KindHepMCAscii
	KindBridge
)

func (k Kind) String() string {
	switch k {
	case KindParticleGun:
		return "particle gun"
	case KindHepMCAscii:
		return "hepmc ascii reader"
	case KindBridge:
		return "external bridge"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entry is one registry slot: a backend of some kind that is either present
// or explicitly absent.
type Entry struct {
	kind Kind
	gen  Generator
}

// Present returns an entry holding gen.
func Present(kind Kind, gen Generator) Entry {
	return Entry{kind: kind, gen: gen}
}

// Absent returns an entry for a backend that is not available.
func Absent(kind Kind) Entry {
	return Entry{kind: kind}
}

// Kind returns the backend family.
func (e Entry) Kind() Kind { return e.kind }

// IsPresent reports whether the entry holds a backend.
func (e Entry) IsPresent() bool { return e.gen != nil }

// Generator returns the backend and whether it is present.
func (e Entry) Generator() (Generator, bool) { return e.gen, e.gen != nil }

// Registry maps generator names to entries and tracks the active one.
// It is owned by a single action and is not safe for concurrent use.
type Registry struct {
	entries map[string]Entry
	active  string
	closed  bool
}

// NewRegistry returns an empty registry with no active generator.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds or replaces a named entry.
func (r *Registry) Register(name string, e Entry) {
	r.entries[name] = e
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Select makes the named backend the active generator.
func (r *Registry) Select(name string) error {
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}
	if !e.IsPresent() {
		return fmt.Errorf("%w: %q (%s)", ErrGeneratorAbsent, name, e.kind)
	}
	r.active = name
	return nil
}

// Clear unsets the active generator.
func (r *Registry) Clear() {
	r.active = ""
}

// Active returns the active generator and its name. ok is false when none is set.
func (r *Registry) Active() (gen Generator, name string, ok bool) {
	if r.active == "" {
		return nil, "", false
	}
	gen, ok = r.entries[r.active].Generator()
	return gen, r.active, ok
}

// Close releases every present backend that owns resources. Subsequent calls
// do nothing.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.active = ""

	var errs []error
	for _, name := range r.Names() {
		gen, ok := r.entries[name].Generator()
		if !ok {
			continue
		}
		if c, ok := gen.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
