package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"breach-analyzer/internal/analysis"
	"breach-analyzer/internal/models"
)

var (
	seriesColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	thresholdColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// RenderSignificanceCharts draws one PNG per test kind plotting p-values over
// center dates with a dashed line at the significance threshold. Failed
// outcomes are left out of the series. A run without results yields no charts.
func RenderSignificanceCharts(run *analysis.Run, dir string) ([]string, error) {
	if len(run.Results) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	first := float64(run.Results[0].Window.Center.Unix())
	last := float64(run.Results[len(run.Results)-1].Window.Center.Unix())
	if last == first {
		first -= 86400
		last += 86400
	}

	var paths []string
	for _, kind := range models.TestKinds {
		var pts plotter.XYs
		for _, r := range run.Results {
			o := r.Outcome(kind)
			if o.Failed() {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(r.Window.Center.Unix()), Y: o.PValue})
		}

		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s p-values over time", kind.Label())
		p.X.Label.Text = "Disclosure date"
		p.Y.Label.Text = "P-value"
		p.X.Tick.Marker = plot.TimeTicks{Format: models.DateLayout}
		p.X.Min, p.X.Max = first, last
		p.Y.Min, p.Y.Max = 0, 1
		p.Add(plotter.NewGrid())

		if len(pts) > 0 {
			line, scatter, err := plotter.NewLinePoints(pts)
			if err != nil {
				return paths, fmt.Errorf("failed to build %s series: %w", kind, err)
			}
			line.Color = seriesColor
			scatter.Color = seriesColor
			p.Add(line, scatter)
			p.Legend.Add("p-value", line, scatter)
		}

		threshold := plotter.NewFunction(func(float64) float64 { return models.Alpha })
		threshold.Color = thresholdColor
		threshold.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(threshold)
		p.Legend.Add(fmt.Sprintf("significance (%.2f)", models.Alpha), threshold)

		path := filepath.Join(dir, chartName(run.Company.ID, kind))
		if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("failed to save %s chart: %w", kind, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func chartName(companyID int64, kind models.TestKind) string {
	return fmt.Sprintf("significance_%d_%s.png", companyID, strings.ReplaceAll(string(kind), "-", "_"))
}
