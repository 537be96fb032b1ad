package forecast

import (
	"math"

	"StockCast/internal/domain/models"
	"StockCast/pkg/util"
)

// Project assigns each predicted close to a future trading day, starting from
// the day after anchor and skipping weekends. Prices round to 2 decimals at
// this boundary only; upstream math stays full precision.
func Project(anchor models.Day, closes []float64) []models.ForecastPoint {
	points := make([]models.ForecastPoint, len(closes))
	cursor := anchor.Time
	for i, v := range closes {
		cursor = util.NextTradingDay(cursor)
		points[i] = models.ForecastPoint{
			Date:           models.NewDay(cursor),
			PredictedClose: math.Round(v*100) / 100,
		}
	}
	return points
}
