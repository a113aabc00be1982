// Package plots renders vertex distributions of generated-particle records.
package plots

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/primarygen/internal/event"
)

// ErrNoRecords is returned when there is nothing to plot.
var ErrNoRecords = errors.New("plots: no records")

const histBins = 40

// axisPad is the half-width of the scatter axes in mm.
const axisPad = 12.0

// VertexHistograms writes vertex_x.png and vertex_y.png into outDir and
// returns the written paths.
func VertexHistograms(recs []event.GenParticle, outDir string) ([]string, error) {
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot directory: %w", err)
	}

	xs := make(plotter.Values, len(recs))
	ys := make(plotter.Values, len(recs))
	for i, r := range recs {
		xs[i] = r.VertexPos.X
		ys[i] = r.VertexPos.Y
	}

	var paths []string
	for _, h := range []struct {
		name string
		axis string
		vals plotter.Values
	}{
		{"vertex_x.png", "x0 (mm)", xs},
		{"vertex_y.png", "y0 (mm)", ys},
	} {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Primary vertex %s, %d events", h.axis, len(recs))
		p.X.Label.Text = h.axis
		p.Y.Label.Text = "events"

		hist, err := plotter.NewHist(h.vals, histBins)
		if err != nil {
			return paths, fmt.Errorf("histogram %s: %w", h.name, err)
		}
		p.Add(hist)

		path := filepath.Join(outDir, h.name)
		if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// VertexScatterHTML renders an interactive (x0, y0) scatter chart as HTML.
func VertexScatterHTML(w io.Writer, title string, recs []event.GenParticle) error {
	data := make([]opts.ScatterData, 0, len(recs))
	for _, r := range recs {
		data = append(data, opts.ScatterData{Value: []interface{}{r.VertexPos.X, r.VertexPos.Y}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Primary Vertices", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("vertices=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -axisPad, Max: axisPad, Name: "x0 (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -axisPad, Max: axisPad, Name: "y0 (mm)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("vertices", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render scatter: %w", err)
	}
	return nil
}
