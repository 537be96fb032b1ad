package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	phttp "StockCast/pkg/http"
	"StockCast/pkg/logger"
)

var (
	// ErrUpstream means the provider could not be reached or answered with a
	// non-2xx status or an error payload.
	ErrUpstream = errors.New("quote provider upstream failure")

	// ErrNoData means the provider answered but the payload carried no usable
	// price point.
	ErrNoData = errors.New("quote provider returned no data")
)

// DefaultTimeout bounds one chart request end to end.
const DefaultTimeout = 8 * time.Second

// Client fetches quotes from a chart-API compatible provider over HTTP.
type Client struct {
	baseURL string
	rng     string
	itv     string
	httpc   *phttp.Client
	log     *logger.Logger
}

type Option func(*Client)

// WithRange overrides the chart range requested from the provider.
func WithRange(rng string) Option {
	return func(c *Client) {
		if rng != "" {
			c.rng = rng
		}
	}
}

// WithInterval overrides the chart sampling interval.
func WithInterval(itv string) Option {
	return func(c *Client) {
		if itv != "" {
			c.itv = itv
		}
	}
}

// WithTimeout replaces the underlying HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpc = phttp.NewClient(phttp.WithTimeout(d))
		}
	}
}

// New creates a chart-API quote gateway.
func New(baseURL string, log *logger.Logger, opts ...Option) drepo.QuoteGateway {
	c := &Client{
		baseURL: baseURL,
		rng:     "1d",
		itv:     "1m",
		httpc:   phttp.NewClient(phttp.WithTimeout(DefaultTimeout)),
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chartResponse mirrors the provider's chart payload; only the fields the
// pipeline consumes are declared.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		RegularMarketTime *int64 `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Latest returns the most recent sample with a non-null close, scanning the
// chart backwards. Thin after-hours payloads often end in null buckets, so
// the last index is not trusted blindly.
func (c *Client) Latest(ctx context.Context, ticker string) (*models.LiveQuote, error) {
	result, err := c.fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}

	q := result.Indicators.Quote
	if len(q) == 0 || len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("%w: empty chart for %s", ErrNoData, ticker)
	}
	bars := q[0]

	for i := len(result.Timestamp) - 1; i >= 0; i-- {
		if i >= len(bars.Close) || bars.Close[i] == nil {
			continue
		}
		ts := result.Timestamp[i]
		quote := &models.LiveQuote{
			Ticker:    ticker,
			Date:      models.NewDay(time.Unix(ts, 0)),
			Timestamp: ts * 1000,
			Close:     bars.Close[i],
		}
		if i < len(bars.Open) {
			quote.Open = bars.Open[i]
		}
		if i < len(bars.High) {
			quote.High = bars.High[i]
		}
		if i < len(bars.Low) {
			quote.Low = bars.Low[i]
		}
		if i < len(bars.Volume) {
			quote.Volume = bars.Volume[i]
		}
		if !quote.Usable() {
			continue
		}
		return quote, nil
	}
	return nil, fmt.Errorf("%w: no non-null close for %s", ErrNoData, ticker)
}

// Intraday returns the day's sampled points with a non-null close, plus the
// latest one and the provider's market timestamp when present.
func (c *Client) Intraday(ctx context.Context, ticker string) (*models.IntradaySeries, error) {
	result, err := c.fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}

	q := result.Indicators.Quote
	if len(q) == 0 {
		return nil, fmt.Errorf("%w: empty chart for %s", ErrNoData, ticker)
	}
	bars := q[0]

	series := &models.IntradaySeries{
		Ticker:          ticker,
		MarketTimestamp: result.Meta.RegularMarketTime,
	}
	for i, ts := range result.Timestamp {
		if i >= len(bars.Close) || bars.Close[i] == nil {
			continue
		}
		pt := models.IntradayPoint{
			Timestamp: ts * 1000,
			Date:      models.NewDay(time.Unix(ts, 0)),
			Close:     *bars.Close[i],
		}
		if i < len(bars.Open) {
			pt.Open = bars.Open[i]
		}
		if i < len(bars.High) {
			pt.High = bars.High[i]
		}
		if i < len(bars.Low) {
			pt.Low = bars.Low[i]
		}
		if i < len(bars.Volume) {
			pt.Volume = bars.Volume[i]
		}
		series.Points = append(series.Points, pt)
	}
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("%w: no non-null close for %s", ErrNoData, ticker)
	}
	series.Latest = &series.Points[len(series.Points)-1]
	return series, nil
}

func (c *Client) fetch(ctx context.Context, ticker string) (*chartResult, error) {
	var payload chartResponse
	err := c.httpc.GetAndParse(ctx, &phttp.RequestOptions{
		URL: fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(ticker)),
		QueryParams: map[string][]string{
			"interval":       {c.itv},
			"range":          {c.rng},
			"includePrePost": {"false"},
		},
	}, &payload)
	if err != nil {
		c.log.Warn("chart fetch failed", logger.String("ticker", ticker), logger.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrUpstream, payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: no chart result for %s", ErrNoData, ticker)
	}
	return &payload.Chart.Result[0], nil
}
