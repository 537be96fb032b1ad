package usecase

import (
	"context"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/forecast"
	"StockCast/pkg/logger"
)

// defaultHistoryDays is how much history the forecaster loads. Far more than
// the model window needs, so indicator back-fill gaps at the series head
// never reach the window tail.
const defaultHistoryDays = 180

// Forecaster runs the full prediction pipeline for allow-listed tickers:
// historical load, feature window, inference, calendar projection. Forecasts
// are computed from the stored daily series only; live ticks never feed the
// model.
type Forecaster struct {
	tickers *models.TickerSet
	store   drepo.PriceStore
	runner  *forecast.Runner
	log     *logger.Logger

	historyDays int
}

type ForecasterOption func(*Forecaster)

// WithHistoryDays overrides how many daily sessions are loaded per run.
func WithHistoryDays(days int) ForecasterOption {
	return func(f *Forecaster) {
		if days > 0 {
			f.historyDays = days
		}
	}
}

func NewForecaster(tickers *models.TickerSet, store drepo.PriceStore, runner *forecast.Runner, log *logger.Logger, opts ...ForecasterOption) *Forecaster {
	f := &Forecaster{
		tickers:     tickers,
		store:       store,
		runner:      runner,
		log:         log,
		historyDays: defaultHistoryDays,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forecast produces the multi-day close forecast for ticker.
func (f *Forecaster) Forecast(ctx context.Context, ticker string) (*models.ForecastResult, error) {
	if err := f.tickers.Require(ticker); err != nil {
		return nil, err
	}

	series, err := f.store.DailySeries(ctx, ticker, f.historyDays)
	if err != nil {
		return nil, err
	}
	points, err := f.runner.Predict(ctx, ticker, series)
	if err != nil {
		return nil, err
	}

	last := series[len(series)-1]
	f.log.Info("forecast generated",
		logger.String("ticker", ticker),
		logger.String("anchor", last.Date.String()),
		logger.Int("points", len(points)))

	return &models.ForecastResult{
		Ticker:      ticker,
		GeneratedAt: time.Now().UTC(),
		LastDate:    last.Date,
		LastClose:   last.Close,
		Points:      points,
	}, nil
}

// Prices returns the stored daily series for ticker, most recent days only.
func (f *Forecaster) Prices(ctx context.Context, ticker string, days int) ([]models.DailyPrice, error) {
	if err := f.tickers.Require(ticker); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = f.historyDays
	}
	return f.store.DailySeries(ctx, ticker, days)
}
