package forecast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	closes []float64
	err    error
}

func (s *stubHistory) DailyCloses(_ context.Context, _ string, _ int) ([]float64, error) {
	return s.closes, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForecast_LinearSeries(t *testing.T) {
	// closes 100, 101, ..., 109: a perfect slope of one per day
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	svc := NewService(&stubHistory{closes: closes}, 10, 7, t.TempDir(), testLogger())

	result, err := svc.Forecast(context.Background(), "BTC-USD")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.InDelta(t, 110, result.Predicted, 1e-6)
	assert.Equal(t, TrendUp, result.Trend)
	assert.FileExists(t, result.ChartPath)
}

func TestForecast_DownwardTrend(t *testing.T) {
	closes := []float64{200, 190, 180, 170, 160}

	svc := NewService(&stubHistory{closes: closes}, 5, 7, t.TempDir(), testLogger())

	result, err := svc.Forecast(context.Background(), "ETH-USD")
	require.NoError(t, err)
	assert.Equal(t, TrendDown, result.Trend)
	assert.Less(t, result.Predicted, closes[len(closes)-1])
}

func TestForecast_TrendFollowsFirstForecastPoint(t *testing.T) {
	// A late spike leaves the fitted line well below the last close, so the
	// next projected point sits under it even though the slope is positive.
	closes := []float64{1, 2, 3, 4, 100}

	svc := NewService(&stubHistory{closes: closes}, 5, 7, t.TempDir(), testLogger())

	result, err := svc.Forecast(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.InDelta(t, 82, result.Predicted, 1e-6)
	assert.Equal(t, TrendDown, result.Trend)
}

func TestForecast_HistoryFailure(t *testing.T) {
	svc := NewService(&stubHistory{err: errors.New("upstream down")}, 10, 7, t.TempDir(), testLogger())

	result, err := svc.Forecast(context.Background(), "BTC-USD")
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestForecast_NotEnoughHistory(t *testing.T) {
	svc := NewService(&stubHistory{closes: []float64{42}}, 10, 7, t.TempDir(), testLogger())

	_, err := svc.Forecast(context.Background(), "BTC-USD")
	assert.Error(t, err)
}

func TestBinanceSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", binanceSymbol("BTC-USD"))
	assert.Equal(t, "ETHUSDT", binanceSymbol("eth-usd"))
	assert.Equal(t, "SOLUSDT", binanceSymbol("SOL-USDT"))
}
