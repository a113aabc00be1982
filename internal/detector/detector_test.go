package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Models(t *testing.T) {
	tests := []struct {
		name     string
		model    int
		sections int
	}{
		{"full", ModelFull, 84},
		{"prototype", ModelPrototype, 24},
		{"bare silicon", ModelBareSi, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.model, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.model, d.Model())
			assert.Len(t, d.Structure(), tt.sections)
			assert.InDelta(t, StackThickness(d.Structure())+2*worldMargin, d.WorldSizeZ(), 1e-9)
		})
	}
}

func TestNew_WorldSizeOverride(t *testing.T) {
	d, err := New(ModelFull, 100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, d.WorldSizeZ())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(42, 0)
	assert.Error(t, err)

	_, err = New(ModelFull, -1)
	assert.Error(t, err)
}

func TestStructure_ReturnsCopy(t *testing.T) {
	d, err := New(ModelPrototype, 0)
	require.NoError(t, err)

	s := d.Structure()
	s[0].Name = "changed"
	assert.Equal(t, "W0", d.Structure()[0].Name)
}
