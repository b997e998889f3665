package render

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PNGOptions control WritePNG.
type PNGOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Colors is the palette size.
	Colors int
}

func (o PNGOptions) withDefaults() PNGOptions {
	if o.Width <= 0 {
		o.Width = 8 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 8 * vg.Inch
	}
	if o.Colors <= 1 {
		o.Colors = 64
	}
	return o
}

// WritePNG draws g as a heat map. Null cells are left blank.
func WritePNG(w io.Writer, g *Grid, o PNGOptions) error {
	o = o.withDefaults()
	lo, hi, ok := g.Range()
	if !ok {
		return fmt.Errorf("%w: every cell is null", ErrEmptyGrid)
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(0)
	cmap.SetMax(1)
	hm := plotter.NewHeatMap(g, cmap.Palette(o.Colors))
	hm.Min, hm.Max = lo, hi
	if hi == lo {
		hm.Max = lo + 1
	}

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(hm)

	wt, err := p.WriterTo(o.Width, o.Height, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
