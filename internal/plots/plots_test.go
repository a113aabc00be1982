package plots

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/primarygen/internal/event"
)

func sampleRecords(n int) []event.GenParticle {
	recs := make([]event.GenParticle, n)
	for i := range recs {
		f := float64(i%21) - 10
		recs[i] = event.GenParticle{
			VertexKE:  4,
			VertexPos: r3.Vec{X: f, Y: -f / 2, Z: -50},
			PDGID:     11,
		}
	}
	return recs
}

func TestVertexHistograms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := VertexHistograms(sampleRecords(100), dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), "%s should not be empty", p)
	}
	assert.Equal(t, filepath.Join(dir, "vertex_x.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "vertex_y.png"), paths[1])
}

func TestVertexHistograms_NoRecords(t *testing.T) {
	_, err := VertexHistograms(nil, t.TempDir())
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestVertexScatterHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, VertexScatterHTML(&buf, "run abc", sampleRecords(5)))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "run abc")
	assert.Contains(t, html, "vertices=5")
}

func TestVertexScatterHTML_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, VertexScatterHTML(&buf, "empty", nil))
	assert.Contains(t, buf.String(), "vertices=0")
}
