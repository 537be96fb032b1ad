package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/features"
	"StockCast/internal/services/forecast"
)

type fakePriceStore struct {
	series map[string][]models.DailyPrice
	calls  int
}

func (s *fakePriceStore) DailySeries(_ context.Context, ticker string, days int) ([]models.DailyPrice, error) {
	s.calls++
	rows := s.series[ticker]
	if days > 0 && days < len(rows) {
		rows = rows[len(rows)-days:]
	}
	out := make([]models.DailyPrice, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *fakePriceStore) Health(context.Context) error { return nil }
func (s *fakePriceStore) Close() error                 { return nil }

type fakeArtifactStore struct {
	params *models.ScalerParams
	model  []byte
}

func (s *fakeArtifactStore) Scaler(context.Context, string) (*models.ScalerParams, error) {
	return s.params, nil
}

func (s *fakeArtifactStore) Model(context.Context, string) ([]byte, error) {
	return s.model, nil
}

func testArtifacts(t *testing.T) *fakeArtifactStore {
	t.Helper()
	k := features.Count()
	u := 2
	zeros := func(r, c int) [][]float64 {
		m := make([][]float64, r)
		for i := range m {
			m[i] = make([]float64, c)
		}
		return m
	}
	bundle := map[string]interface{}{
		"window_size": features.WindowSize,
		"features":    k,
		"units":       u,
		"horizon":     3,
		"lstm": map[string]interface{}{
			"kernel":           zeros(k, 4*u),
			"recurrent_kernel": zeros(u, 4*u),
			"bias":             make([]float64, 4*u),
		},
		"dense": map[string]interface{}{
			"kernel": zeros(u, 3),
			"bias":   []float64{0.5, 0.5, 0.5},
		},
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}

	params := &models.ScalerParams{
		FeatureMin: make([]float64, k),
		FeatureMax: make([]float64, k),
	}
	for i := range params.FeatureMax {
		params.FeatureMax[i] = 1
	}
	params.FeatureMin[0] = 100
	params.FeatureMax[0] = 200
	return &fakeArtifactStore{params: params, model: raw}
}

func storeWithHistory(n int) *fakePriceStore {
	end := time.Date(2024, time.January, 12, 0, 0, 0, 0, time.UTC)
	rows := make([]models.DailyPrice, n)
	for i := 0; i < n; i++ {
		rows[i] = models.DailyPrice{
			Ticker: "ASML.AS",
			Date:   models.NewDay(end.AddDate(0, 0, i-n+1)),
			Close:  600 + float64(i),
		}
	}
	return &fakePriceStore{series: map[string][]models.DailyPrice{"ASML.AS": rows}}
}

func newTestManager(t *testing.T, gw *scriptedGateway) (*SessionManager, *fakePriceStore) {
	t.Helper()
	log := testLogger(t)
	store := storeWithHistory(10)
	runner := forecast.NewRunner(testArtifacts(t), newCountingMetrics(), log)
	fc := NewForecaster(models.NewTickerSet(nil), store, runner, log)
	mgr := NewSessionManager(models.NewTickerSet(nil), gw, nil, newCountingMetrics(), fc, log,
		WithSchedulerOptions(WithCadence(time.Hour, time.Hour)))
	return mgr, store
}

func TestSubscribeRejectsUnknownTicker(t *testing.T) {
	mgr, _ := newTestManager(t, &scriptedGateway{})
	defer mgr.Close()

	_, err := mgr.Subscribe(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrUnsupportedTicker) {
		t.Fatalf("expected ErrUnsupportedTicker, got %v", err)
	}
}

func TestSubscribeDeliversQuotesAndAugmentsSeries(t *testing.T) {
	// Tick on the day after the last stored session: Saturday 2024-01-13.
	ts := time.Date(2024, time.January, 13, 10, 0, 0, 0, time.UTC).UnixMilli()
	gw := &scriptedGateway{queue: []func() (*models.LiveQuote, error){quote(ts, 650)}}
	mgr, _ := newTestManager(t, gw)
	defer mgr.Close()

	sub, err := mgr.Subscribe(context.Background(), "ASML.AS")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	q := recv(t, sub.Quotes())
	if *q.Close != 650 {
		t.Fatalf("got close %v", *q.Close)
	}

	// Augmented series gains the live day.
	waitFor(t, func() bool {
		rows, err := mgr.Prices(context.Background(), "ASML.AS", 0)
		if err != nil {
			t.Fatalf("prices: %v", err)
		}
		return len(rows) == 11 && rows[10].Close == 650
	})

	if got := mgr.Latest("ASML.AS"); got == nil || *got.Close != 650 {
		t.Fatalf("latest quote not tracked: %+v", got)
	}
}

func TestSessionSharedAcrossSubscribers(t *testing.T) {
	gate := make(chan struct{})
	gw := &scriptedGateway{
		queue: []func() (*models.LiveQuote, error){quote(1000, 650)},
		gate:  gate,
	}
	mgr, _ := newTestManager(t, gw)
	defer mgr.Close()

	a, err := mgr.Subscribe(context.Background(), "ASML.AS")
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	b, err := mgr.Subscribe(context.Background(), "ASML.AS")
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}
	close(gate) // release the startup poll after both attached

	// One scheduler polls; both subscribers see the quote.
	qa := recv(t, a.Quotes())
	qb := recv(t, b.Quotes())
	if *qa.Close != 650 || *qb.Close != 650 {
		t.Fatalf("fan-out broken: %v %v", qa, qb)
	}
	if gw.callCount() != 1 {
		t.Fatalf("expected a single shared poll, got %d", gw.callCount())
	}

	a.Close()
	if got := mgr.Latest("ASML.AS"); got == nil {
		t.Fatalf("session must survive while a subscriber remains")
	}
	b.Close()
	if got := mgr.Latest("ASML.AS"); got != nil {
		t.Fatalf("session must stop with the last subscriber, still tracking %+v", got)
	}
}

func TestForecastCachedPerSession(t *testing.T) {
	gw := &scriptedGateway{}
	mgr, store := newTestManager(t, gw)
	defer mgr.Close()

	sub, err := mgr.Subscribe(context.Background(), "ASML.AS")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	callsAfterSubscribe := store.calls

	first, err := mgr.Forecast(context.Background(), "ASML.AS")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	second, err := mgr.Forecast(context.Background(), "ASML.AS")
	if err != nil {
		t.Fatalf("forecast again: %v", err)
	}
	if first != second {
		t.Fatalf("forecast not cached within a session")
	}
	if store.calls != callsAfterSubscribe+1 {
		t.Fatalf("history reloaded for cached forecast: %d calls", store.calls)
	}
	if len(first.Points) != 3 {
		t.Fatalf("expected 3 forecast points, got %d", len(first.Points))
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
