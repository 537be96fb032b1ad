package scaler

import (
	"errors"
	"fmt"

	"StockCast/internal/domain/models"
)

// ErrParamsMismatch means a row's width differs from the scaler parameters.
var ErrParamsMismatch = errors.New("scaler params do not match row width")

// Normalize applies per-column min-max scaling to rows and returns a new
// matrix; inputs are not mutated. A degenerate column (max == min) scales to
// 0: a constant column carries no information and dividing by zero would
// poison the whole window.
func Normalize(rows [][]float64, params *models.ScalerParams) ([][]float64, error) {
	k := params.Features()
	if k == 0 {
		return nil, fmt.Errorf("%w: min/max lengths %d/%d", ErrParamsMismatch, len(params.FeatureMin), len(params.FeatureMax))
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != k {
			return nil, fmt.Errorf("%w: row %d has %d columns, params have %d", ErrParamsMismatch, i, len(row), k)
		}
		scaled := make([]float64, k)
		for j, v := range row {
			span := params.FeatureMax[j] - params.FeatureMin[j]
			if span == 0 {
				scaled[j] = 0
				continue
			}
			scaled[j] = (v - params.FeatureMin[j]) / span
		}
		out[i] = scaled
	}
	return out, nil
}

// Denormalize inverts min-max scaling for values against a single feature
// column (for predictions, the close column).
func Denormalize(values []float64, params *models.ScalerParams, column int) ([]float64, error) {
	if column < 0 || column >= params.Features() {
		return nil, fmt.Errorf("%w: column %d out of range", ErrParamsMismatch, column)
	}
	span := params.FeatureMax[column] - params.FeatureMin[column]
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v*span + params.FeatureMin[column]
	}
	return out, nil
}
