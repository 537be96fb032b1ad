package repository

import (
	"context"

	"StockCast/internal/domain/models"
)

// QuoteGateway fetches the freshest known quote for a ticker from the
// upstream provider. Latest returns ErrNoData when the provider has no
// usable point; transport and payload failures wrap ErrUpstream.
type QuoteGateway interface {
	Latest(ctx context.Context, ticker string) (*models.LiveQuote, error)
	Intraday(ctx context.Context, ticker string) (*models.IntradaySeries, error)
}

// PriceStore provides read access to the historical daily series. Rows come
// back chronologically ascending (oldest first) with unique dates.
type PriceStore interface {
	DailySeries(ctx context.Context, ticker string, days int) ([]models.DailyPrice, error)
	Health(ctx context.Context) error
	Close() error
}

// ArtifactStore retrieves per-ticker model artifacts produced by training.
type ArtifactStore interface {
	Scaler(ctx context.Context, ticker string) (*models.ScalerParams, error)
	Model(ctx context.Context, ticker string) ([]byte, error)
}

// QuotePublisher pushes accepted live quotes to out-of-process subscribers.
type QuotePublisher interface {
	Publish(ctx context.Context, q *models.LiveQuote) error
	Close() error
}

// Metrics records operational telemetry for the quote and forecast pipelines.
type Metrics interface {
	RecordQuoteFetch(ticker, outcome string)
	RecordQuoteEmit(ticker string)
	RecordLastPrice(ticker string, price float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
