// Package particle provides the particle-type lookup table used to resolve
// species names to definitions carrying their PDG code, mass and charge.
package particle

import (
	"sort"
)

// PDG codes for the species the default table carries.
const (
	PDGElectron = 11
	PDGPositron = -11
	PDGMuon     = 13
	PDGAntiMuon = -13
	PDGGamma    = 22
	PDGPiPlus   = 211
	PDGPiMinus  = -211
	PDGProton   = 2212
	PDGNeutron  = 2112
	PDGGeantino = 0
)

// Definition describes one particle species. Mass is in MeV, charge in units
// of the positron charge.
type Definition struct {
	Name    string  `json:"name"`
	PDGCode int     `json:"pdg_code"`
	Mass    float64 `json:"mass_mev"`
	Charge  float64 `json:"charge"`
}

// Table maps species names to definitions. It is read-only once built and
// may be shared between workers.
type Table struct {
	byName map[string]*Definition
	byPDG  map[int]*Definition
}

// NewTable builds a table from the given definitions. A later definition with
// a duplicate name replaces the earlier one.
func NewTable(defs ...Definition) *Table {
	t := &Table{
		byName: make(map[string]*Definition, len(defs)),
		byPDG:  make(map[int]*Definition, len(defs)),
	}
	for i := range defs {
		d := defs[i]
		t.byName[d.Name] = &d
		t.byPDG[d.PDGCode] = &d
	}
	return t
}

// DefaultTable returns the species available to the particle gun.
func DefaultTable() *Table {
	return NewTable(
		Definition{Name: "e-", PDGCode: PDGElectron, Mass: 0.51099895, Charge: -1},
		Definition{Name: "e+", PDGCode: PDGPositron, Mass: 0.51099895, Charge: 1},
		Definition{Name: "mu-", PDGCode: PDGMuon, Mass: 105.6583755, Charge: -1},
		Definition{Name: "mu+", PDGCode: PDGAntiMuon, Mass: 105.6583755, Charge: 1},
		Definition{Name: "gamma", PDGCode: PDGGamma, Mass: 0, Charge: 0},
		Definition{Name: "pi+", PDGCode: PDGPiPlus, Mass: 139.57039, Charge: 1},
		Definition{Name: "pi-", PDGCode: PDGPiMinus, Mass: 139.57039, Charge: -1},
		Definition{Name: "proton", PDGCode: PDGProton, Mass: 938.27208816, Charge: 1},
		Definition{Name: "neutron", PDGCode: PDGNeutron, Mass: 939.56542052, Charge: 0},
		Definition{Name: "geantino", PDGCode: PDGGeantino, Mass: 0, Charge: 0},
	)
}

// Find looks up a species by name.
func (t *Table) Find(name string) (*Definition, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// FindByPDG looks up a species by PDG code.
func (t *Table) FindByPDG(code int) (*Definition, bool) {
	d, ok := t.byPDG[code]
	return d, ok
}

// Names returns the known species names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
