package particle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_Electron(t *testing.T) {
	table := DefaultTable()

	e, ok := table.Find("e-")
	require.True(t, ok)
	assert.Equal(t, 11, e.PDGCode)
	assert.Equal(t, -1.0, e.Charge)
	assert.InDelta(t, 0.511, e.Mass, 1e-3)

	byCode, ok := table.FindByPDG(PDGElectron)
	require.True(t, ok)
	assert.Same(t, e, byCode)
}

func TestTable_Unknown(t *testing.T) {
	table := DefaultTable()

	_, ok := table.Find("chargino")
	assert.False(t, ok)
	_, ok = table.FindByPDG(1000024)
	assert.False(t, ok)
}

func TestTable_Names(t *testing.T) {
	table := NewTable(
		Definition{Name: "proton", PDGCode: PDGProton},
		Definition{Name: "e-", PDGCode: PDGElectron},
		Definition{Name: "gamma", PDGCode: PDGGamma},
	)
	assert.Equal(t, []string{"e-", "gamma", "proton"}, table.Names())
}

func TestNewTable_CopiesDefinitions(t *testing.T) {
	defs := []Definition{{Name: "e-", PDGCode: PDGElectron}}
	table := NewTable(defs...)
	defs[0].PDGCode = 99

	e, ok := table.Find("e-")
	require.True(t, ok)
	assert.Equal(t, PDGElectron, e.PDGCode)
}
