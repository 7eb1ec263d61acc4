package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	binance "github.com/adshao/go-binance/v2"

	apperrors "github.com/ratespy/ratespy-bot/internal/errors"
)

// HistorySource provides daily closing prices for a currency pair such as "BTC-USD".
type HistorySource interface {
	DailyCloses(ctx context.Context, pair string, days int) ([]float64, error)
}

// BinanceHistory fetches daily klines from the public Binance API.
type BinanceHistory struct {
	client *binance.Client
	log    *slog.Logger
}

// NewBinanceHistory builds a history source using unauthenticated market data endpoints.
func NewBinanceHistory(log *slog.Logger) *BinanceHistory {
	if log == nil {
		log = slog.Default()
	}

	return &BinanceHistory{
		client: binance.NewClient("", ""),
		log:    log,
	}
}

// DailyCloses returns up to days closing prices, oldest first. The most recent
// kline is still forming and is discarded.
func (b *BinanceHistory) DailyCloses(ctx context.Context, pair string, days int) ([]float64, error) {
	symbol := binanceSymbol(pair)

	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval("1d").
		Limit(days + 1).
		Do(ctx)
	if err != nil {
		b.log.Error("failed to fetch klines", slog.String("symbol", symbol), slog.Any("error", err))
		return nil, apperrors.NewUpstreamError("binance", err)
	}

	closes := make([]float64, 0, len(klines))
	for i, kline := range klines {
		// the last candle is incomplete
		if i == len(klines)-1 {
			break
		}

		value, err := strconv.ParseFloat(kline.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close price %q: %w", kline.Close, err)
		}
		closes = append(closes, value)
	}

	return closes, nil
}

// binanceSymbol maps a "BTC-USD" pair to the Binance spot symbol "BTCUSDT".
func binanceSymbol(pair string) string {
	symbol := strings.ToUpper(strings.ReplaceAll(pair, "-", ""))
	if strings.HasSuffix(symbol, "USD") && !strings.HasSuffix(symbol, "USDT") {
		symbol += "T"
	}
	return symbol
}
