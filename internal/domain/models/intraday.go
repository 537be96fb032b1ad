package models

// IntradayPoint is one normalized intraday sample from the quote provider.
// Points without a close price are dropped during normalization, so Close is
// always present here.
type IntradayPoint struct {
	Timestamp int64    `json:"timestamp"` // epoch ms
	Date      Day      `json:"date"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     float64  `json:"close"`
	Volume    *float64 `json:"volume"`
}

// IntradaySeries is the simplified point list served by the intraday proxy.
type IntradaySeries struct {
	Ticker          string          `json:"ticker"`
	Points          []IntradayPoint `json:"points"`
	Latest          *IntradayPoint  `json:"latest"`
	MarketTimestamp *int64          `json:"marketTimestamp"` // epoch seconds
}
