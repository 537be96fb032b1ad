package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"StockCast/internal/domain/models"
	svccache "StockCast/internal/service/cache"
	phttp "StockCast/pkg/http"
	applogger "StockCast/pkg/logger"
)

const defaultArtifactCacheTTL = 30 * time.Minute

// HTTPArtifactStore fetches per-ticker training artifacts from an HTTP
// object store: <base>/models/<ticker>/scaler.json and model.json. Raw bytes
// go through a BytesCache so ticker switches do not hammer the bucket.
type HTTPArtifactStore struct {
	baseURL string
	httpc   *phttp.Client
	cache   svccache.BytesCache
	ttl     time.Duration
	l       *applogger.Logger
}

type ArtifactOption func(*HTTPArtifactStore)

// WithArtifactCacheTTL overrides how long fetched artifact bytes stay cached.
func WithArtifactCacheTTL(ttl time.Duration) ArtifactOption {
	return func(s *HTTPArtifactStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewHTTPArtifactStore(baseURL string, httpc *phttp.Client, cache svccache.BytesCache, l *applogger.Logger, opts ...ArtifactOption) *HTTPArtifactStore {
	s := &HTTPArtifactStore{
		baseURL: baseURL,
		httpc:   httpc,
		cache:   cache,
		ttl:     defaultArtifactCacheTTL,
		l:       l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPArtifactStore) Scaler(ctx context.Context, ticker string) (*models.ScalerParams, error) {
	raw, err := s.get(ctx, ticker, "scaler.json")
	if err != nil {
		return nil, err
	}
	var params models.ScalerParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode scaler for %s: %w", ticker, err)
	}
	if params.Features() == 0 {
		return nil, fmt.Errorf("scaler for %s: empty or inconsistent min/max", ticker)
	}
	return &params, nil
}

func (s *HTTPArtifactStore) Model(ctx context.Context, ticker string) ([]byte, error) {
	return s.get(ctx, ticker, "model.json")
}

func (s *HTTPArtifactStore) get(ctx context.Context, ticker, name string) ([]byte, error) {
	key := fmt.Sprintf("artifact:%s:%s", ticker, name)
	if s.cache != nil {
		if b, ok, err := s.cache.GetBytes(key); err == nil && ok {
			return b, nil
		}
	}

	var body []byte
	err := s.httpc.GetAndParse(ctx, &phttp.RequestOptions{
		URL: fmt.Sprintf("%s/models/%s/%s", s.baseURL, url.PathEscape(ticker), name),
	}, &body)
	if err != nil {
		if s.l != nil {
			s.l.Warn("artifact fetch failed",
				applogger.String("ticker", ticker),
				applogger.String("artifact", name),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("fetch %s for %s: %w", name, ticker, err)
	}

	if s.cache != nil {
		if err := s.cache.SetBytes(key, body, s.ttl); err != nil && s.l != nil {
			s.l.Warn("artifact cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return body, nil
}
