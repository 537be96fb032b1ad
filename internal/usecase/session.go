package usecase

import (
	"context"
	"sync"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/series"
	"StockCast/pkg/logger"
)

// session is one ticker's live state: the polling scheduler, the augmented
// daily series and the quote fan-out to subscribers. Reference counted by
// the manager; the scheduler stops when the last subscriber leaves.
type session struct {
	ticker    string
	scheduler *QuoteScheduler
	cancel    context.CancelFunc

	mu        sync.RWMutex
	augmented []models.DailyPrice
	latest    *models.LiveQuote
	forecast  *models.ForecastResult
	subs      map[chan *models.LiveQuote]struct{}
	refs      int
}

func (s *session) broadcast(q *models.LiveQuote) {
	s.mu.Lock()
	s.latest = q
	s.augmented = series.Merge(s.augmented, q)
	for ch := range s.subs {
		select {
		case ch <- q:
		default:
			// Slow subscriber: skip, the next quote supersedes this one.
		}
	}
	s.mu.Unlock()
}

// Subscription is one consumer's handle on a ticker session. Close it to
// release the session; quotes stop flowing afterwards.
type Subscription struct {
	ticker string
	ch     chan *models.LiveQuote
	mgr    *SessionManager
	once   sync.Once
}

// Quotes streams accepted live quotes for the subscribed ticker.
func (s *Subscription) Quotes() <-chan *models.LiveQuote { return s.ch }

// Ticker returns the subscribed symbol.
func (s *Subscription) Ticker() string { return s.ticker }

// Close detaches from the session. The last Close for a ticker stops its
// scheduler.
func (s *Subscription) Close() {
	s.once.Do(func() { s.mgr.release(s.ticker, s.ch) })
}

// SessionManager owns at most one live session per ticker. A session loads
// the historical series, computes a forecast, starts the quote scheduler and
// maintains the live-augmented series for price reads.
type SessionManager struct {
	tickers    *models.TickerSet
	gateway    drepo.QuoteGateway
	publisher  drepo.QuotePublisher
	metrics    drepo.Metrics
	forecaster *Forecaster
	log        *logger.Logger

	schedOpts []SchedulerOption

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

type SessionOption func(*SessionManager)

// WithSchedulerOptions forwards options to every scheduler the manager
// creates.
func WithSchedulerOptions(opts ...SchedulerOption) SessionOption {
	return func(m *SessionManager) { m.schedOpts = opts }
}

func NewSessionManager(tickers *models.TickerSet, gateway drepo.QuoteGateway, publisher drepo.QuotePublisher, metrics drepo.Metrics, forecaster *Forecaster, log *logger.Logger, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		tickers:    tickers,
		gateway:    gateway,
		publisher:  publisher,
		metrics:    metrics,
		forecaster: forecaster,
		log:        log,
		sessions:   make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe attaches to ticker's session, creating it on first use. Callers
// that come from another ticker close their old subscription first; the
// manager stops the orphaned scheduler as soon as its refcount drops to
// zero.
func (m *SessionManager) Subscribe(ctx context.Context, ticker string) (*Subscription, error) {
	if err := m.tickers.Require(ticker); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, context.Canceled
	}

	sess, ok := m.sessions[ticker]
	if !ok {
		var err error
		sess, err = m.newSession(ctx, ticker)
		if err != nil {
			return nil, err
		}
		m.sessions[ticker] = sess
	}

	ch := make(chan *models.LiveQuote, 16)
	sess.mu.Lock()
	sess.subs[ch] = struct{}{}
	sess.refs++
	sess.mu.Unlock()

	// First poll fires only after the first subscriber is attached, so the
	// startup quote is never broadcast into an empty room.
	if !ok {
		m.runSession(sess)
	}
	return &Subscription{ticker: ticker, ch: ch, mgr: m}, nil
}

// SetVisibility re-paces the ticker's scheduler if a session exists.
func (m *SessionManager) SetVisibility(ticker string, v Visibility) {
	m.mu.Lock()
	sess, ok := m.sessions[ticker]
	m.mu.Unlock()
	if ok {
		sess.scheduler.SetVisibility(v)
	}
}

// Forecast returns the session's cached forecast, computing it on demand.
// The cache only refreshes when the session is recreated: live ticks do not
// re-trigger inference.
func (m *SessionManager) Forecast(ctx context.Context, ticker string) (*models.ForecastResult, error) {
	m.mu.Lock()
	sess, ok := m.sessions[ticker]
	m.mu.Unlock()

	if ok {
		sess.mu.RLock()
		cached := sess.forecast
		sess.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
	}

	result, err := m.forecaster.Forecast(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if ok {
		sess.mu.Lock()
		sess.forecast = result
		sess.mu.Unlock()
	}
	return result, nil
}

// Prices returns the live-augmented series when a session is running, the
// stored series otherwise.
func (m *SessionManager) Prices(ctx context.Context, ticker string, days int) ([]models.DailyPrice, error) {
	m.mu.Lock()
	sess, ok := m.sessions[ticker]
	m.mu.Unlock()

	if !ok {
		return m.forecaster.Prices(ctx, ticker, days)
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	aug := sess.augmented
	if days > 0 && days < len(aug) {
		aug = aug[len(aug)-days:]
	}
	out := make([]models.DailyPrice, len(aug))
	copy(out, aug)
	return out, nil
}

// Latest returns the most recent accepted quote for ticker, if any session
// has one.
func (m *SessionManager) Latest(ticker string) *models.LiveQuote {
	m.mu.Lock()
	sess, ok := m.sessions[ticker]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.latest
}

// Close stops every session. Subscriptions closed afterwards are no-ops.
func (m *SessionManager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.cancel()
		sess.scheduler.Stop()
	}
}

func (m *SessionManager) newSession(ctx context.Context, ticker string) (*session, error) {
	history, err := m.forecaster.Prices(ctx, ticker, 0)
	if err != nil {
		return nil, err
	}

	sess := &session{
		ticker:    ticker,
		scheduler: NewQuoteScheduler(ticker, m.gateway, m.publisher, m.metrics, m.log, m.schedOpts...),
		augmented: history,
		subs:      make(map[chan *models.LiveQuote]struct{}),
	}
	m.log.Info("session started",
		logger.String("ticker", ticker),
		logger.Int("history", len(history)))
	return sess, nil
}

func (m *SessionManager) runSession(sess *session) {
	runCtx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	sess.scheduler.Start(runCtx)
	go func() {
		for q := range sess.scheduler.Quotes() {
			sess.broadcast(q)
		}
	}()
}

func (m *SessionManager) release(ticker string, ch chan *models.LiveQuote) {
	m.mu.Lock()
	sess, ok := m.sessions[ticker]
	if !ok {
		m.mu.Unlock()
		return
	}

	sess.mu.Lock()
	delete(sess.subs, ch)
	sess.refs--
	idle := sess.refs <= 0
	sess.mu.Unlock()

	if idle {
		delete(m.sessions, ticker)
	}
	m.mu.Unlock()

	if idle {
		sess.cancel()
		sess.scheduler.Stop()
		m.log.Info("session stopped", logger.String("ticker", ticker))
	}
}
