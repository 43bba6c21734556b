package preview

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/labels"
	"github.com/banshee-data/meshcloud/internal/meshcloud/pointcloud"
)

// WriteScatterHTML renders the points at idx as a top-down (x, z)
// scatter, one series per semantic class in its table colour.
func WriteScatterHTML(w io.Writer, sceneID string, c *pointcloud.Cloud, idx []int, t *labels.Tables) error {
	series := make(map[meshcloud.SemanticID][]opts.ScatterData)
	maxAbs := 0.0
	for _, i := range idx {
		p := c.Positions[i]
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(p.X), math.Abs(p.Z)))
		sem := c.SemanticIDs[i]
		series[sem] = append(series[sem], opts.ScatterData{
			Value: []interface{}{p.X, p.Z, c.InstanceIDs[i]},
		})
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Point cloud " + sceneID, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: sceneID, Subtitle: fmt.Sprintf("points=%d of %d", len(idx), c.Len())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Z", NameLocation: "middle", NameGap: 30}),
	)

	sems := make([]meshcloud.SemanticID, 0, len(series))
	for sem := range series {
		sems = append(sems, sem)
	}
	sort.Slice(sems, func(i, j int) bool { return sems[i] < sems[j] })
	for _, sem := range sems {
		col, _ := t.Color(sem)
		scatter.AddSeries(t.Name(sem), series[sem],
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: col.Hex()}),
		)
	}
	return scatter.Render(w)
}
