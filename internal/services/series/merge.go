package series

import (
	"StockCast/internal/domain/models"
)

// Merge overlays the latest live quote onto a chronologically ascending
// historical daily series and returns the augmented series. Pure function:
// the inputs are never mutated, so it is safe to call on every recompute and
// is idempotent for a given (historical, live) pair.
//
// Rules, in order:
//  1. empty history: nothing to merge into, returned as-is
//  2. absent or unusable quote (no finite close): history unchanged
//  3. same date as the last session: the last element is replaced by an
//     overlay (intraday update of the still-open session)
//  4. later date: a new session is appended, carrying indicator columns
//     forward from the previous session
//  5. earlier date (stale or out-of-order tick): history unchanged
//
// The output stays sorted ascending with unique dates and grows by at most
// one element per call.
func Merge(historical []models.DailyPrice, live *models.LiveQuote) []models.DailyPrice {
	if len(historical) == 0 {
		return historical
	}
	if !live.Usable() {
		return historical
	}

	last := historical[len(historical)-1]

	switch {
	case live.Date.Equal(last.Date):
		out := make([]models.DailyPrice, len(historical))
		copy(out, historical)
		out[len(out)-1] = overlay(last, live)
		return out

	case live.Date.After(last.Date):
		out := make([]models.DailyPrice, len(historical), len(historical)+1)
		copy(out, historical)
		next := overlay(last, live)
		next.Date = live.Date
		return append(out, next)

	default:
		return historical
	}
}

// overlay copies base and applies every defined field of live on top of it.
// Indicator columns are never supplied by live quotes and always carry over.
func overlay(base models.DailyPrice, live *models.LiveQuote) models.DailyPrice {
	p := base
	if live.Ticker != "" {
		p.Ticker = live.Ticker
	}
	if live.Timestamp != 0 {
		p.Timestamp = live.Timestamp
	}
	if live.Open != nil {
		p.Open = clonePtr(live.Open)
	}
	if live.High != nil {
		p.High = clonePtr(live.High)
	}
	if live.Low != nil {
		p.Low = clonePtr(live.Low)
	}
	if live.Close != nil {
		p.Close = *live.Close
	}
	if live.Volume != nil {
		p.Volume = clonePtr(live.Volume)
	}
	return p
}

func clonePtr(v *float64) *float64 {
	c := *v
	return &c
}
