// Package forecast produces a short-horizon price projection and a rendered
// chart artifact for a currency pair.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"

	apperrors "github.com/ratespy/ratespy-bot/internal/errors"
)

// Trend is the coarse direction of the projection relative to the last close.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Result is the outcome of a forecast run. ChartPath points at a rendered PNG
// that exists by the time Forecast returns; completion is signaled by the
// return itself, never by waiting out a delay.
type Result struct {
	Predicted float64
	Trend     Trend
	ChartPath string
}

// Service fits an ordinary least-squares line over recent daily closes and
// extrapolates it over the configured horizon.
type Service struct {
	history      HistorySource
	daysBack     int
	horizonDays  int
	artifactsDir string
	log          *slog.Logger
}

// NewService builds a forecasting service. Zero window values fall back to
// 60 days of history and a 7 day horizon.
func NewService(history HistorySource, daysBack, horizonDays int, artifactsDir string, log *slog.Logger) *Service {
	if daysBack <= 0 {
		daysBack = 60
	}
	if horizonDays <= 0 {
		horizonDays = 7
	}
	if artifactsDir == "" {
		artifactsDir = "artifacts"
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		history:      history,
		daysBack:     daysBack,
		horizonDays:  horizonDays,
		artifactsDir: artifactsDir,
		log:          log,
	}
}

// Forecast fetches history for pair, fits the model, renders the chart and
// returns the first projected price. The predicted price is the next period's
// value; the trend compares that same point against the last close.
func (s *Service) Forecast(ctx context.Context, pair string) (*Result, error) {
	closes, err := s.history.DailyCloses(ctx, pair, s.daysBack)
	if err != nil {
		return nil, err
	}

	if len(closes) < 2 {
		return nil, apperrors.NewUpstreamError("binance", fmt.Errorf("not enough history for %s: %d points", pair, len(closes)))
	}

	projection := extrapolate(closes, s.horizonDays)

	trend := TrendDown
	if projection[0] > closes[len(closes)-1] {
		trend = TrendUp
	}

	chartPath, err := s.renderChart(pair, closes, projection)
	if err != nil {
		return nil, fmt.Errorf("render forecast chart: %w", err)
	}

	s.log.Info("forecast completed",
		slog.String("pair", pair),
		slog.Float64("predicted", projection[0]),
		slog.String("trend", string(trend)),
	)

	return &Result{
		Predicted: projection[0],
		Trend:     trend,
		ChartPath: chartPath,
	}, nil
}

// extrapolate fits y = alpha + beta*x over the series and projects horizon
// further points.
func extrapolate(closes []float64, horizon int) []float64 {
	xs := make([]float64, len(closes))
	for i := range xs {
		xs[i] = float64(i)
	}

	alpha, beta := stat.LinearRegression(xs, closes, nil, false)

	projection := make([]float64, horizon)
	for i := range projection {
		x := float64(len(closes) + i)
		projection[i] = alpha + beta*x
	}

	return projection
}

func (s *Service) artifactPath(pair string) string {
	return filepath.Join(s.artifactsDir, fmt.Sprintf("%s-forecast.png", pair))
}

func (s *Service) ensureArtifactsDir() error {
	return os.MkdirAll(s.artifactsDir, 0o755)
}
