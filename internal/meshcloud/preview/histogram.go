package preview

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/meshcloud/internal/meshcloud/labels"
	"github.com/banshee-data/meshcloud/internal/meshcloud/pointcloud"
)

// WriteClassHistogram renders a PNG bar chart of point counts per class,
// each bar in its class colour.
func WriteClassHistogram(w io.Writer, sceneID string, s pointcloud.Summary, t *labels.Tables) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %d points", sceneID, s.Points)
	p.Y.Label.Text = "points"

	names := make([]string, 0, len(s.Classes))
	for i, cc := range s.Classes {
		bars, err := plotter.NewBarChart(plotter.Values{float64(cc.Points)}, vg.Points(20))
		if err != nil {
			return fmt.Errorf("bar for class %d: %w", cc.Semantic, err)
		}
		col, _ := t.Color(cc.Semantic)
		bars.Color = color.RGBA{R: col[0], G: col[1], B: col[2], A: 255}
		bars.LineStyle.Width = vg.Length(0)
		bars.XMin = float64(i)
		p.Add(bars)
		names = append(names, t.Name(cc.Semantic))
	}
	if len(names) > 0 {
		p.NominalX(names...)
	}

	width := vg.Length(len(names)+2) * vg.Centimeter * 1.5
	if width < 12*vg.Centimeter {
		width = 12 * vg.Centimeter
	}
	wt, err := p.WriterTo(width, 10*vg.Centimeter, "png")
	if err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
