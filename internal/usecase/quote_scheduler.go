package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/service/quotes"
	"StockCast/pkg/logger"
)

// Visibility mirrors whether any consumer of a ticker's quotes is actively
// watching. Background subscribers still receive quotes, just slower.
type Visibility int

const (
	VisibilityForeground Visibility = iota
	VisibilityBackground
)

func (v Visibility) String() string {
	if v == VisibilityBackground {
		return "background"
	}
	return "foreground"
}

const (
	defaultForegroundCadence = 15 * time.Second
	defaultBackgroundCadence = 45 * time.Second
)

// QuoteScheduler polls the quote gateway for a single ticker on an adaptive
// cadence. One goroutine per scheduler; all state is confined to the run
// loop. A fetch failure or empty payload skips the cycle, the loop itself
// never exits on upstream errors.
type QuoteScheduler struct {
	ticker    string
	gateway   drepo.QuoteGateway
	publisher drepo.QuotePublisher
	metrics   drepo.Metrics
	log       *logger.Logger

	fg time.Duration
	bg time.Duration

	out    chan *models.LiveQuote
	visCh  chan Visibility
	stopCh chan struct{}
	done   chan struct{}

	stopOnce sync.Once

	// dedupe key of the last accepted quote, loop-confined
	lastTS    int64
	lastClose float64
	hasLast   bool
}

type SchedulerOption func(*QuoteScheduler)

// WithCadence overrides the foreground/background polling intervals.
func WithCadence(fg, bg time.Duration) SchedulerOption {
	return func(s *QuoteScheduler) {
		if fg > 0 {
			s.fg = fg
		}
		if bg > 0 {
			s.bg = bg
		}
	}
}

// WithQuoteBuffer overrides the emit channel capacity.
func WithQuoteBuffer(n int) SchedulerOption {
	return func(s *QuoteScheduler) {
		if n > 0 {
			s.out = make(chan *models.LiveQuote, n)
		}
	}
}

func NewQuoteScheduler(ticker string, gateway drepo.QuoteGateway, publisher drepo.QuotePublisher, metrics drepo.Metrics, log *logger.Logger, opts ...SchedulerOption) *QuoteScheduler {
	s := &QuoteScheduler{
		ticker:    ticker,
		gateway:   gateway,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		fg:        defaultForegroundCadence,
		bg:        defaultBackgroundCadence,
		out:       make(chan *models.LiveQuote, 16),
		visCh:     make(chan Visibility, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quotes is the stream of accepted (deduplicated, usable) quotes. Closed
// when the scheduler stops.
func (s *QuoteScheduler) Quotes() <-chan *models.LiveQuote { return s.out }

// Ticker returns the symbol this scheduler polls.
func (s *QuoteScheduler) Ticker() string { return s.ticker }

// Start launches the polling loop. The first fetch fires immediately, not
// after one cadence.
func (s *QuoteScheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// SetVisibility re-paces the scheduler. Pending timer cycles are pre-empted;
// repeated calls coalesce to the latest value.
func (s *QuoteScheduler) SetVisibility(v Visibility) {
	for {
		select {
		case s.visCh <- v:
			return
		default:
			select {
			case <-s.visCh:
			default:
			}
		}
	}
}

// Stop terminates the loop and closes the quote channel. Safe to call more
// than once.
func (s *QuoteScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

func (s *QuoteScheduler) cadenceFor(v Visibility) time.Duration {
	if v == VisibilityBackground {
		return s.bg
	}
	return s.fg
}

func (s *QuoteScheduler) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.out)

	vis := VisibilityForeground
	s.poll(ctx)

	timer := time.NewTimer(s.cadenceFor(vis))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case v := <-s.visCh:
			if v == vis {
				continue
			}
			vis = v
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			// Returning to the foreground polls right away so a watcher
			// never stares at a stale price for a full background cadence.
			if vis == VisibilityForeground {
				s.poll(ctx)
			}
			timer.Reset(s.cadenceFor(vis))
			s.log.Debug("scheduler re-paced",
				logger.String("ticker", s.ticker),
				logger.String("visibility", vis.String()))
		case <-timer.C:
			s.poll(ctx)
			timer.Reset(s.cadenceFor(vis))
		}
	}
}

func (s *QuoteScheduler) poll(ctx context.Context) {
	start := time.Now()
	q, err := s.gateway.Latest(ctx, s.ticker)
	s.metrics.RecordLatency("quote_fetch", time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, quotes.ErrNoData) {
			outcome = "no_data"
		}
		s.metrics.RecordQuoteFetch(s.ticker, outcome)
		s.log.Warn("quote fetch skipped", logger.String("ticker", s.ticker), logger.Error(err))
		return
	}
	if !q.Usable() {
		s.metrics.RecordQuoteFetch(s.ticker, "no_data")
		return
	}
	if s.hasLast && q.Timestamp == s.lastTS && *q.Close == s.lastClose {
		s.metrics.RecordQuoteFetch(s.ticker, "duplicate")
		return
	}
	s.lastTS, s.lastClose, s.hasLast = q.Timestamp, *q.Close, true

	s.metrics.RecordQuoteFetch(s.ticker, "ok")
	s.metrics.RecordQuoteEmit(s.ticker)
	s.metrics.RecordLastPrice(s.ticker, *q.Close)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, q); err != nil {
			s.metrics.RecordError("quote_publish")
			s.log.Warn("quote publish failed", logger.String("ticker", s.ticker), logger.Error(err))
		}
	}

	select {
	case s.out <- q:
	default:
		// Slow consumer; dropping beats stalling the poll loop.
		s.metrics.RecordError("quote_backpressure")
	}
}
