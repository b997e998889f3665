package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// viridis is the visual map ramp used for HTML charts.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// HTMLOptions control WriteHTML.
type HTMLOptions struct {
	Title    string
	Subtitle string
	// SymbolSize is the marker size in pixels.
	SymbolSize int
}

// WriteHTML renders the non-null cells of g as a colour-mapped scatter
// chart.
func WriteHTML(w io.Writer, g *Grid, o HTMLOptions) error {
	lo, hi, ok := g.Range()
	if !ok {
		return fmt.Errorf("%w: every cell is null", ErrEmptyGrid)
	}
	if o.SymbolSize <= 0 {
		o.SymbolSize = 6
	}
	if o.Title == "" {
		o.Title = "Raster"
	}

	data := make([]opts.ScatterData, 0, len(g.Values))
	for r := 0; r < g.NumY; r++ {
		for c := 0; c < g.NumX; c++ {
			v := g.Z(c, r)
			if math.IsNaN(v) {
				continue
			}
			data = append(data, opts.ScatterData{Value: []interface{}{g.X(c), g.Y(r), v}})
		}
	}

	halfX, halfY := math.Abs(g.DX)/2, math.Abs(g.DY)/2
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: fmt.Sprintf("%s cells=%d/%d", o.Subtitle, len(data), len(g.Values))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: g.X(0) - halfX, Max: g.X(g.NumX-1) + halfX, Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: g.Y(0) - halfY, Max: g.Y(g.NumY-1) + halfY, Name: "y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("z", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: o.SymbolSize}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
