package models

// Requests for the HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required"`
}

type PricesRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required"`
	Days   int    `query:"days" json:"days" default:"180" validate:"gte=1,lte=5000"`
}

type IntradayRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required"`
}

type QuoteStreamRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required"`
}
