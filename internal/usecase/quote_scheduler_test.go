package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/service/quotes"
	"StockCast/pkg/logger"
)

type scriptedGateway struct {
	mu    sync.Mutex
	queue []func() (*models.LiveQuote, error)
	calls int
	gate  chan struct{} // when set, Latest blocks until closed
}

func (g *scriptedGateway) Latest(_ context.Context, _ string) (*models.LiveQuote, error) {
	if g.gate != nil {
		<-g.gate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.queue) == 0 {
		return nil, quotes.ErrNoData
	}
	next := g.queue[0]
	g.queue = g.queue[1:]
	return next()
}

func (g *scriptedGateway) Intraday(_ context.Context, _ string) (*models.IntradaySeries, error) {
	return nil, quotes.ErrNoData
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func quote(ts int64, close float64) func() (*models.LiveQuote, error) {
	return func() (*models.LiveQuote, error) {
		c := close
		return &models.LiveQuote{
			Ticker:    "ASML.AS",
			Date:      models.NewDay(time.UnixMilli(ts)),
			Timestamp: ts,
			Close:     &c,
		}, nil
	}
}

func failure() func() (*models.LiveQuote, error) {
	return func() (*models.LiveQuote, error) { return nil, fmt.Errorf("%w: boom", quotes.ErrUpstream) }
}

type countingMetrics struct {
	mu       sync.Mutex
	fetches  map[string]int
	emits    int
	errorsBy map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{fetches: map[string]int{}, errorsBy: map[string]int{}}
}

func (m *countingMetrics) RecordQuoteFetch(_, outcome string) {
	m.mu.Lock()
	m.fetches[outcome]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordQuoteEmit(string) {
	m.mu.Lock()
	m.emits++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordLastPrice(string, float64) {}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errorsBy[kind]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordLatency(string, float64) {}

func (m *countingMetrics) fetchCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[outcome]
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func recv(t *testing.T, ch <-chan *models.LiveQuote) *models.LiveQuote {
	t.Helper()
	select {
	case q := <-ch:
		return q
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for quote")
		return nil
	}
}

func TestSchedulerEmitsImmediately(t *testing.T) {
	gw := &scriptedGateway{queue: []func() (*models.LiveQuote, error){quote(1000, 100.5)}}
	s := NewQuoteScheduler("ASML.AS", gw, nil, newCountingMetrics(), testLogger(t),
		WithCadence(time.Hour, time.Hour))
	defer s.Stop()

	s.Start(context.Background())
	q := recv(t, s.Quotes())
	if *q.Close != 100.5 {
		t.Fatalf("got close %v", *q.Close)
	}
	if gw.callCount() != 1 {
		t.Fatalf("expected exactly the startup poll, got %d calls", gw.callCount())
	}
}

func TestSchedulerSuppressesDuplicates(t *testing.T) {
	gw := &scriptedGateway{queue: []func() (*models.LiveQuote, error){
		quote(1000, 100.5),
		quote(1000, 100.5), // identical (timestamp, close): no emission
		quote(2000, 100.7),
	}}
	m := newCountingMetrics()
	s := NewQuoteScheduler("ASML.AS", gw, nil, m, testLogger(t),
		WithCadence(5*time.Millisecond, time.Hour))
	defer s.Stop()

	s.Start(context.Background())
	first := recv(t, s.Quotes())
	second := recv(t, s.Quotes())
	if first.Timestamp != 1000 || second.Timestamp != 2000 {
		t.Fatalf("wrong emissions: %d then %d", first.Timestamp, second.Timestamp)
	}
	if got := m.fetchCount("duplicate"); got != 1 {
		t.Fatalf("expected 1 duplicate outcome, got %d", got)
	}
}

func TestSchedulerSurvivesFailedCycles(t *testing.T) {
	gw := &scriptedGateway{queue: []func() (*models.LiveQuote, error){
		failure(),
		quote(1000, 99.9),
	}}
	m := newCountingMetrics()
	s := NewQuoteScheduler("ASML.AS", gw, nil, m, testLogger(t),
		WithCadence(5*time.Millisecond, time.Hour))
	defer s.Stop()

	s.Start(context.Background())
	q := recv(t, s.Quotes())
	if *q.Close != 99.9 {
		t.Fatalf("expected quote after failed cycle, got %v", *q.Close)
	}
	if got := m.fetchCount("error"); got != 1 {
		t.Fatalf("expected 1 error outcome, got %d", got)
	}
}

func TestSchedulerForegroundResumePollsImmediately(t *testing.T) {
	gw := &scriptedGateway{queue: []func() (*models.LiveQuote, error){
		quote(1000, 100.5),
		quote(2000, 101.5),
	}}
	s := NewQuoteScheduler("ASML.AS", gw, nil, newCountingMetrics(), testLogger(t),
		WithCadence(time.Hour, time.Hour))
	defer s.Stop()

	s.Start(context.Background())
	recv(t, s.Quotes())

	// With hour-long cadences the only way a second quote arrives is the
	// pre-emptive poll on the background -> foreground transition.
	s.SetVisibility(VisibilityBackground)
	time.Sleep(50 * time.Millisecond)
	s.SetVisibility(VisibilityForeground)

	q := recv(t, s.Quotes())
	if q.Timestamp != 2000 {
		t.Fatalf("expected pre-empted poll emission, got %d", q.Timestamp)
	}
}

func TestSchedulerStopClosesChannel(t *testing.T) {
	gw := &scriptedGateway{queue: []func() (*models.LiveQuote, error){quote(1000, 100.5)}}
	s := NewQuoteScheduler("ASML.AS", gw, nil, newCountingMetrics(), testLogger(t),
		WithCadence(time.Hour, time.Hour))

	s.Start(context.Background())
	recv(t, s.Quotes())
	s.Stop()
	s.Stop() // idempotent

	if _, ok := <-s.Quotes(); ok {
		t.Fatalf("quote channel must be closed after Stop")
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	quotes []*models.LiveQuote
}

func (p *recordingPublisher) Publish(_ context.Context, q *models.LiveQuote) error {
	p.mu.Lock()
	p.quotes = append(p.quotes, q)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestSchedulerPublishesAcceptedQuotes(t *testing.T) {
	gw := &scriptedGateway{queue: []func() (*models.LiveQuote, error){quote(1000, 100.5)}}
	pub := &recordingPublisher{}
	s := NewQuoteScheduler("ASML.AS", gw, pub, newCountingMetrics(), testLogger(t),
		WithCadence(time.Hour, time.Hour))
	defer s.Stop()

	s.Start(context.Background())
	recv(t, s.Quotes())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.quotes) != 1 || *pub.quotes[0].Close != 100.5 {
		t.Fatalf("publisher did not receive the accepted quote: %+v", pub.quotes)
	}
}
