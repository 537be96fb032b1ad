package models

import (
	"fmt"
	"math"
	"time"
)

// DayFormat is the wire format for trading-day dates.
const DayFormat = "2006-01-02"

// Day is a calendar date with day precision in UTC, marshaled as YYYY-MM-DD.
// Comparisons go through the embedded time.Time, not string ordering.
type Day struct {
	time.Time
}

// NewDay truncates t to day precision in UTC.
func NewDay(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return Day{t}, nil
}

// AddDays returns the day shifted by n calendar days.
func (d Day) AddDays(n int) Day { return Day{d.AddDate(0, 0, n)} }

// Equal reports whether two days are the same calendar date.
func (d Day) Equal(o Day) bool { return d.Time.Equal(o.Time) }

// After reports whether d falls strictly later than o.
func (d Day) After(o Day) bool { return d.Time.After(o.Time) }

// Before reports whether d falls strictly earlier than o.
func (d Day) Before(o Day) bool { return d.Time.Before(o.Time) }

func (d Day) String() string { return d.Format(DayFormat) }

func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DayFormat) + `"`), nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("day: invalid JSON value %s", s)
	}
	parsed, err := ParseDay(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DailyPrice represents one trading session for a ticker, including the
// indicator columns pre-computed by the ingest pipeline. Nullable columns are
// pointers; Close is the only price field guaranteed present.
type DailyPrice struct {
	Ticker    string `json:"ticker"`
	Date      Day    `json:"date"`
	Timestamp int64  `json:"timestamp,omitempty"` // epoch ms, 0 = unknown

	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  float64  `json:"close"`
	Volume *float64 `json:"volume"`

	Returns    *float64 `json:"returns"`
	MA5        *float64 `json:"ma5"`
	MA20       *float64 `json:"ma20"`
	RSI14      *float64 `json:"rsi14"`
	MACD       *float64 `json:"macd"`
	BBUpper    *float64 `json:"bb_upper"`
	BBLower    *float64 `json:"bb_lower"`
	Volatility *float64 `json:"volatility"`
	VolumeMA5  *float64 `json:"volume_ma5"`
}

// LiveQuote is a snapshot of the most recent intraday sample for a ticker.
// Replaced wholesale on each accepted tick, never mutated in place.
type LiveQuote struct {
	Ticker    string `json:"ticker"`
	Date      Day    `json:"date"`
	Timestamp int64  `json:"timestamp"` // epoch ms

	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
}

// Usable reports whether the quote carries a finite close price. Quotes
// without one are skipped by the scheduler and ignored by the merger.
func (q *LiveQuote) Usable() bool {
	if q == nil || q.Close == nil {
		return false
	}
	c := *q.Close
	return !math.IsNaN(c) && !math.IsInf(c, 0)
}

// ScalerParams holds per-feature min/max learned during training. One
// instance per ticker, immutable once loaded. JSON keys follow the scaler
// document produced by the training pipeline.
type ScalerParams struct {
	FeatureMin []float64 `json:"data_min_"`
	FeatureMax []float64 `json:"data_max_"`
}

// Features returns the number of feature columns, or 0 when min/max lengths
// disagree.
func (s *ScalerParams) Features() int {
	if s == nil || len(s.FeatureMin) != len(s.FeatureMax) {
		return 0
	}
	return len(s.FeatureMin)
}

// ForecastPoint pairs a predicted close with its future trading day.
type ForecastPoint struct {
	Date           Day     `json:"date"`
	PredictedClose float64 `json:"predictedClose"`
}

// ForecastResult is one complete forecast run for a ticker, anchored on the
// last historical session it was computed from.
type ForecastResult struct {
	Ticker      string          `json:"ticker"`
	GeneratedAt time.Time       `json:"generatedAt"`
	LastDate    Day             `json:"lastDate"`
	LastClose   float64         `json:"lastClose"`
	Points      []ForecastPoint `json:"points"`
}
