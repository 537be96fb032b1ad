package forecast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/internal/services/features"
	"StockCast/internal/services/scaler"
	"StockCast/pkg/logger"
)

const (
	// closeColumn is the feature column predictions are denormalized against.
	closeColumn = 0

	defaultArtifactTTL = 15 * time.Minute
)

// artifactSet is one ticker's parsed model plus its scaler, loaded together
// so a half-refreshed pair can never be used.
type artifactSet struct {
	model    *Model
	params   *models.ScalerParams
	loadedAt time.Time
}

// Runner turns a daily price series into a multi-step close forecast. Parsed
// artifacts are memoized per ticker with a TTL so repeated requests do not
// re-decode weight bundles.
type Runner struct {
	artifacts repository.ArtifactStore
	metrics   repository.Metrics
	log       *logger.Logger

	ttl time.Duration

	mu    sync.RWMutex
	cache map[string]*artifactSet
}

type RunnerOption func(*Runner)

// WithArtifactTTL overrides how long parsed artifacts stay memoized.
func WithArtifactTTL(ttl time.Duration) RunnerOption {
	return func(r *Runner) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func NewRunner(artifacts repository.ArtifactStore, metrics repository.Metrics, log *logger.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		artifacts: artifacts,
		metrics:   metrics,
		log:       log,
		ttl:       defaultArtifactTTL,
		cache:     make(map[string]*artifactSet),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Predict builds the feature window from series, runs the ticker's model and
// returns denormalized forecast points dated on future trading days. The
// series must be chronologically ascending; the last entry anchors the
// forecast calendar.
func (r *Runner) Predict(ctx context.Context, ticker string, series []models.DailyPrice) ([]models.ForecastPoint, error) {
	start := time.Now()

	set, err := r.load(ctx, ticker)
	if err != nil {
		r.metrics.RecordError("artifact_load")
		return nil, err
	}

	if got, want := set.params.Features(), set.model.Features; got != want {
		r.metrics.RecordError("artifact_shape")
		return nil, fmt.Errorf("%w: scaler has %d features, model wants %d", ErrShapeMismatch, got, want)
	}
	if features.Count() != set.model.Features {
		r.metrics.RecordError("artifact_shape")
		return nil, fmt.Errorf("%w: extractor emits %d features, model wants %d", ErrShapeMismatch, features.Count(), set.model.Features)
	}

	window, err := features.BuildWindow(series, set.model.WindowSize)
	if err != nil {
		return nil, err
	}
	scaled, err := scaler.Normalize(window, set.params)
	if err != nil {
		return nil, err
	}
	normalized, err := set.model.Predict(scaled)
	if err != nil {
		return nil, err
	}
	closes, err := scaler.Denormalize(normalized, set.params, closeColumn)
	if err != nil {
		return nil, err
	}

	anchor := series[len(series)-1].Date
	points := Project(anchor, closes)

	r.metrics.RecordLatency("forecast_predict", time.Since(start).Seconds())
	r.log.Debug("forecast computed",
		logger.String("ticker", ticker),
		logger.Int("horizon", len(points)),
		logger.String("anchor", anchor.String()))
	return points, nil
}

// Invalidate drops a ticker's memoized artifacts, forcing a reload on the
// next Predict.
func (r *Runner) Invalidate(ticker string) {
	r.mu.Lock()
	delete(r.cache, ticker)
	r.mu.Unlock()
}

func (r *Runner) load(ctx context.Context, ticker string) (*artifactSet, error) {
	r.mu.RLock()
	set, ok := r.cache[ticker]
	r.mu.RUnlock()
	if ok && time.Since(set.loadedAt) < r.ttl {
		return set, nil
	}

	params, err := r.artifacts.Scaler(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: scaler for %s: %v", ErrArtifactLoad, ticker, err)
	}
	raw, err := r.artifacts.Model(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: model for %s: %v", ErrArtifactLoad, ticker, err)
	}
	model, err := ParseModel(raw)
	if err != nil {
		return nil, err
	}

	set = &artifactSet{model: model, params: params, loadedAt: time.Now()}
	r.mu.Lock()
	r.cache[ticker] = set
	r.mu.Unlock()

	r.log.Info("forecast artifacts loaded",
		logger.String("ticker", ticker),
		logger.Int("window_size", model.WindowSize),
		logger.Int("units", model.Units),
		logger.Int("horizon", model.Horizon))
	return set, nil
}
