package forecast

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// renderChart writes a PNG with the historical series and the dashed
// projection, returning the artifact path.
func (s *Service) renderChart(pair string, closes, projection []float64) (string, error) {
	if err := s.ensureArtifactsDir(); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Price Forecast", pair)
	p.X.Label.Text = "Day"
	p.Y.Label.Text = "Price in USD"
	p.Add(plotter.NewGrid())

	historyXY := make(plotter.XYs, len(closes))
	for i, value := range closes {
		historyXY[i].X = float64(i)
		historyXY[i].Y = value
	}

	projectionXY := make(plotter.XYs, len(projection))
	for i, value := range projection {
		projectionXY[i].X = float64(len(closes) + i)
		projectionXY[i].Y = value
	}

	historyLine, err := plotter.NewLine(historyXY)
	if err != nil {
		return "", fmt.Errorf("build history line: %w", err)
	}

	projectionLine, err := plotter.NewLine(projectionXY)
	if err != nil {
		return "", fmt.Errorf("build projection line: %w", err)
	}
	projectionLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

	p.Add(historyLine, projectionLine)
	p.Legend.Add("Historical Price", historyLine)
	p.Legend.Add("Forecast", projectionLine)

	path := s.artifactPath(pair)
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save chart %s: %w", path, err)
	}

	return path, nil
}
