package forecast

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/features"
	"StockCast/pkg/logger"
)

type fakeArtifacts struct {
	params    *models.ScalerParams
	model     []byte
	scalerErr error
	modelErr  error
	loads     int
}

func (f *fakeArtifacts) Scaler(_ context.Context, _ string) (*models.ScalerParams, error) {
	if f.scalerErr != nil {
		return nil, f.scalerErr
	}
	return f.params, nil
}

func (f *fakeArtifacts) Model(_ context.Context, _ string) ([]byte, error) {
	f.loads++
	if f.modelErr != nil {
		return nil, f.modelErr
	}
	return f.model, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordQuoteFetch(string, string) {}
func (noopMetrics) RecordQuoteEmit(string)          {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLatency(string, float64)   {}

func quietLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testSeries(n int) []models.DailyPrice {
	series := make([]models.DailyPrice, n)
	// Ends on Friday 2024-01-12.
	end := time.Date(2024, time.January, 12, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		series[i] = models.DailyPrice{
			Ticker: "ASML.AS",
			Date:   models.NewDay(end.AddDate(0, 0, i-n+1)),
			Close:  600 + float64(i),
		}
	}
	return series
}

func testStore(t *testing.T) *fakeArtifacts {
	t.Helper()
	k := features.Count()
	p := &models.ScalerParams{
		FeatureMin: make([]float64, k),
		FeatureMax: make([]float64, k),
	}
	for i := 0; i < k; i++ {
		p.FeatureMax[i] = 1
	}
	// Close column spans [100, 200].
	p.FeatureMin[0] = 100
	p.FeatureMax[0] = 200

	b := zeroBundle(features.WindowSize, k, 2, 3)
	b.Dense.Bias = []float64{0.5, 0.6, 0.7}
	return &fakeArtifacts{params: p, model: bundleJSON(t, b)}
}

func TestRunnerPredict(t *testing.T) {
	store := testStore(t)
	r := NewRunner(store, noopMetrics{}, quietLogger(t))

	points, err := r.Predict(context.Background(), "ASML.AS", testSeries(10))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}

	// Zero LSTM weights make the normalized output the dense bias; the close
	// column denormalizes as v*100 + 100.
	wantClose := []float64{150, 160, 170}
	wantDate := []string{"2024-01-15", "2024-01-16", "2024-01-17"}
	for i, p := range points {
		if p.PredictedClose != wantClose[i] {
			t.Fatalf("point %d close: got %v want %v", i, p.PredictedClose, wantClose[i])
		}
		if p.Date.String() != wantDate[i] {
			t.Fatalf("point %d date: got %s want %s", i, p.Date, wantDate[i])
		}
	}
}

func TestRunnerMemoizesArtifacts(t *testing.T) {
	store := testStore(t)
	r := NewRunner(store, noopMetrics{}, quietLogger(t))

	for i := 0; i < 3; i++ {
		if _, err := r.Predict(context.Background(), "ASML.AS", testSeries(10)); err != nil {
			t.Fatalf("predict %d: %v", i, err)
		}
	}
	if store.loads != 1 {
		t.Fatalf("expected 1 artifact load, got %d", store.loads)
	}

	r.Invalidate("ASML.AS")
	if _, err := r.Predict(context.Background(), "ASML.AS", testSeries(10)); err != nil {
		t.Fatalf("predict after invalidate: %v", err)
	}
	if store.loads != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", store.loads)
	}
}

func TestRunnerArtifactFailure(t *testing.T) {
	store := testStore(t)
	store.scalerErr = fmt.Errorf("bucket unreachable")
	r := NewRunner(store, noopMetrics{}, quietLogger(t))

	_, err := r.Predict(context.Background(), "ASML.AS", testSeries(10))
	if !errors.Is(err, ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
}

func TestRunnerScalerModelMismatch(t *testing.T) {
	store := testStore(t)
	// Scaler fitted on a different width than the model expects.
	store.params = &models.ScalerParams{
		FeatureMin: make([]float64, 3),
		FeatureMax: make([]float64, 3),
	}
	r := NewRunner(store, noopMetrics{}, quietLogger(t))

	_, err := r.Predict(context.Background(), "ASML.AS", testSeries(10))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestRunnerShortSeries(t *testing.T) {
	store := testStore(t)
	r := NewRunner(store, noopMetrics{}, quietLogger(t))

	_, err := r.Predict(context.Background(), "ASML.AS", testSeries(3))
	if !errors.Is(err, features.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
