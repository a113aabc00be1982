package generator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/primarygen/internal/event"
)

func TestNewBridge_Errors(t *testing.T) {
	_, err := NewBridge("")
	assert.Error(t, err)

	_, err = NewBridge("definitely-not-a-generator-binary")
	assert.Error(t, err)
}

func TestBridge_ReadsFromProcess(t *testing.T) {
	b, err := NewBridge("cat", filepath.Join("testdata", "two_events.hepmc"))
	require.NoError(t, err)
	assert.Contains(t, b.Command(), "two_events.hepmc")

	evt := event.New(0)
	require.NoError(t, b.GeneratePrimaryVertex(evt))
	assert.Equal(t, 3, evt.NumPrimaries())

	evt = event.New(1)
	require.NoError(t, b.GeneratePrimaryVertex(evt))
	assert.Equal(t, 1, evt.NumPrimaries())

	err = b.GeneratePrimaryVertex(event.New(2))
	assert.ErrorIs(t, err, ErrEndOfInput)

	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}
