package visualization

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveHistogram plots a histogram of the given values, typically
// nearest-neighbor distances, and writes it to filename. The output format
// follows the file extension (png, pdf, svg).
func SaveHistogram(values []float64, bins int, title, xlabel, filename string) error {
	if len(values) == 0 {
		return fmt.Errorf("no values to plot")
	}
	if bins <= 0 {
		bins = 20
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	p.Add(h)

	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}
