package features

import (
	"errors"
	"fmt"

	"StockCast/internal/domain/models"
)

// ErrInsufficientData means the series is shorter than the requested window.
var ErrInsufficientData = errors.New("insufficient data for feature window")

// WindowSize is the input sequence length the models were trained on.
const WindowSize = 7

// Feature binds a column name to its extraction rule. Missing indicator
// values get explicit defaults: price-anchored indicators fall back to the
// session's own close (neutral), RSI to its 50 midpoint, oscillators,
// volatility and volume averages to zero. The table keeps the defaulting
// policy in one place so it can be tested without the model.
type Feature struct {
	Name    string
	Extract func(p *models.DailyPrice) float64
}

// Columns is the fixed feature order the scaler was fit on. Reordering this
// table breaks every trained artifact.
var Columns = []Feature{
	{"close", func(p *models.DailyPrice) float64 { return p.Close }},
	{"returns", orZero(func(p *models.DailyPrice) *float64 { return p.Returns })},
	{"ma5", orClose(func(p *models.DailyPrice) *float64 { return p.MA5 })},
	{"ma20", orClose(func(p *models.DailyPrice) *float64 { return p.MA20 })},
	{"rsi14", orValue(func(p *models.DailyPrice) *float64 { return p.RSI14 }, 50)},
	{"macd", orZero(func(p *models.DailyPrice) *float64 { return p.MACD })},
	{"bb_upper", orClose(func(p *models.DailyPrice) *float64 { return p.BBUpper })},
	{"bb_lower", orClose(func(p *models.DailyPrice) *float64 { return p.BBLower })},
	{"volatility", orZero(func(p *models.DailyPrice) *float64 { return p.Volatility })},
	{"volume_ma5", orZero(func(p *models.DailyPrice) *float64 { return p.VolumeMA5 })},
}

// Count is the feature width K.
func Count() int { return len(Columns) }

// BuildWindow extracts the last windowSize sessions of series into a fully
// populated feature matrix, chronological order preserved. Fails with
// ErrInsufficientData when the series is too short.
func BuildWindow(series []models.DailyPrice, windowSize int) ([][]float64, error) {
	if windowSize <= 0 {
		windowSize = WindowSize
	}
	if len(series) < windowSize {
		return nil, fmt.Errorf("%w: have %d sessions, need %d", ErrInsufficientData, len(series), windowSize)
	}

	tail := series[len(series)-windowSize:]
	rows := make([][]float64, windowSize)
	for i := range tail {
		row := make([]float64, len(Columns))
		for j, col := range Columns {
			row[j] = col.Extract(&tail[i])
		}
		rows[i] = row
	}
	return rows, nil
}

func orZero(field func(p *models.DailyPrice) *float64) func(p *models.DailyPrice) float64 {
	return orValue(field, 0)
}

func orValue(field func(p *models.DailyPrice) *float64, def float64) func(p *models.DailyPrice) float64 {
	return func(p *models.DailyPrice) float64 {
		if v := field(p); v != nil {
			return *v
		}
		return def
	}
}

func orClose(field func(p *models.DailyPrice) *float64) func(p *models.DailyPrice) float64 {
	return func(p *models.DailyPrice) float64 {
		if v := field(p); v != nil {
			return *v
		}
		return p.Close
	}
}
