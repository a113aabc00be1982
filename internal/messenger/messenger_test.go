package messenger

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/primarygen/internal/generator"
	"github.com/banshee-data/primarygen/internal/monitoring"
)

type fakeTarget struct {
	reg   *generator.Registry
	hepmc *generator.HepMCAscii
	gun   *generator.ParticleGun
}

func (f *fakeTarget) Registry() *generator.Registry { return f.reg }

func (f *fakeTarget) HepMC() *generator.HepMCAscii { return f.hepmc }

func (f *fakeTarget) Gun() *generator.ParticleGun { return f.gun }

func newFakeTarget(t *testing.T) *fakeTarget {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })

	ft := &fakeTarget{reg: generator.NewRegistry(), hepmc: generator.NewHepMCAscii(), gun: generator.NewParticleGun(1)}
	ft.reg.Register(generator.NameParticleGun, generator.Present(generator.KindParticleGun, ft.gun))
	ft.reg.Register(generator.NameHepMCAscii, generator.Present(generator.KindHepMCAscii, ft.hepmc))
	ft.reg.Register(generator.NameBridge, generator.Absent(generator.KindBridge))
	require.NoError(t, ft.reg.Select(generator.NameParticleGun))
	t.Cleanup(func() { ft.reg.Close() })
	return ft
}

func TestApply_Select(t *testing.T) {
	ft := newFakeTarget(t)
	m := New(ft)

	resp, err := m.Apply("/generator/select hepmcAscii")
	require.NoError(t, err)
	assert.Equal(t, "active generator: hepmcAscii", resp)
	_, name, ok := ft.reg.Active()
	assert.True(t, ok)
	assert.Equal(t, generator.NameHepMCAscii, name)

	_, err = m.Apply("/generator/select pythia")
	assert.ErrorIs(t, err, generator.ErrGeneratorAbsent)
}

func TestApply_ListAndClear(t *testing.T) {
	ft := newFakeTarget(t)
	m := New(ft)

	resp, err := m.Apply("/generator/list")
	require.NoError(t, err)
	assert.Equal(t, "hepmcAscii, particleGun *, pythia (absent)", resp)

	_, err = m.Apply("/generator/clear")
	require.NoError(t, err)
	_, _, ok := ft.reg.Active()
	assert.False(t, ok)
}

func TestApply_HepMC(t *testing.T) {
	ft := newFakeTarget(t)
	m := New(ft)

	path := filepath.Join("..", "generator", "testdata", "two_events.hepmc")
	_, err := m.Apply("/generator/hepmc/open " + path)
	require.NoError(t, err)
	assert.Equal(t, path, ft.hepmc.Path())

	_, err = m.Apply("/generator/hepmc/verbose 2")
	require.NoError(t, err)
	assert.Equal(t, 2, ft.hepmc.Verbose())

	_, err = m.Apply("/generator/hepmc/verbose loud")
	assert.Error(t, err)

	_, err = m.Apply("/generator/hepmc/open " + filepath.Join(t.TempDir(), "nope.hepmc"))
	assert.Error(t, err)
}

func TestApply_ControlVerbose(t *testing.T) {
	original := monitoring.Verbosity()
	defer monitoring.SetVerbosity(original)

	m := New(newFakeTarget(t))
	_, err := m.Apply("/control/verbose 2")
	require.NoError(t, err)
	assert.Equal(t, 2, monitoring.Verbosity())
}

func TestApply_Gun(t *testing.T) {
	ft := newFakeTarget(t)
	m := New(ft)

	resp, err := m.Apply("/gun/position 1 -2 -50 cm")
	require.NoError(t, err)
	assert.Equal(t, "gun position: 10,-20,-500 mm", resp)
	assert.Equal(t, r3.Vec{X: 10, Y: -20, Z: -500}, ft.gun.Position())

	resp, err = m.Apply("/gun/energy 4 GeV")
	require.NoError(t, err)
	assert.Equal(t, "gun energy: 4000 MeV", resp)
	assert.Equal(t, 4000.0, ft.gun.Energy())

	tests := []struct {
		name string
		line string
		want string
	}{
		{"bad length unit", "/gun/position 1 2 3 furlong", "invalid length unit"},
		{"bad coordinate", "/gun/position 1 x 3 mm", "invalid coordinate"},
		{"bad energy unit", "/gun/energy 4 eV", "invalid energy unit"},
		{"negative energy", "/gun/energy -1 MeV", "invalid energy"},
		{"wrong arg count", "/gun/position 1 2 mm", "usage: /gun/position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Apply(tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Equal(t, 4000.0, ft.gun.Energy(), "failed commands leave the gun untouched")
}

func TestApply_Errors(t *testing.T) {
	m := New(newFakeTarget(t))

	resp, err := m.Apply("   ")
	assert.NoError(t, err)
	assert.Empty(t, resp)

	_, err = m.Apply("/gun/teleport")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = m.Apply("/generator/select")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: /generator/select <name>")

	m.Close()
	_, err = m.Apply("/generator/list")
	assert.ErrorIs(t, err, ErrDetached)
}

func TestApplyMacro(t *testing.T) {
	ft := newFakeTarget(t)
	m := New(ft)

	macro := strings.Join([]string{
		"# switch to the reader",
		"",
		"/generator/select hepmcAscii",
		"/generator/hepmc/verbose 1",
	}, "\n")
	require.NoError(t, m.ApplyMacro(strings.NewReader(macro)))
	_, name, _ := ft.reg.Active()
	assert.Equal(t, generator.NameHepMCAscii, name)
	assert.Equal(t, 1, ft.hepmc.Verbose())

	err := m.ApplyMacro(strings.NewReader("/generator/list\n/generator/select herwig\n/generator/clear\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "macro line 2")
	// lines after the failure are not applied
	_, _, ok := ft.reg.Active()
	assert.True(t, ok)
}

func TestCommands(t *testing.T) {
	m := New(newFakeTarget(t))
	cmds := m.Commands()
	assert.Len(t, cmds, 8)
	assert.Contains(t, cmds, "/generator/select <name>")
}
