package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	pkgch "StockCast/pkg/clickhouse"
	applogger "StockCast/pkg/logger"
)

// CHPriceStore reads the daily_prices table populated by the offline ingest
// pipeline. Queries take the newest N rows (DESC limit) and reverse them, so
// the store never scans further back than callers need.
type CHPriceStore struct {
	db    *sql.DB
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client, table string, l *applogger.Logger) *CHPriceStore {
	if table == "" {
		table = "daily_prices"
	}
	return &CHPriceStore{db: ch.DB(), ch: ch, table: table, l: l}
}

func (s *CHPriceStore) DailySeries(ctx context.Context, ticker string, days int) ([]models.DailyPrice, error) {
	start := time.Now()
	const qtpl = `
        SELECT date, ts, open, high, low, close, volume,
               returns, ma5, ma20, rsi14, macd, bb_upper, bb_lower, volatility, volume_ma5
        FROM %s
        WHERE ticker = ?
        ORDER BY date DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, days)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse daily_series query error",
				applogger.String("ticker", ticker),
				applogger.Int("days", days),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("daily series: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.DailyPrice, 0, days)
	for rows.Next() {
		var (
			p    models.DailyPrice
			date time.Time
			ts   sql.NullInt64
			open, high, low, volume,
			returns, ma5, ma20, rsi14, macd,
			bbUpper, bbLower, volatility, volumeMA5 sql.NullFloat64
		)
		if err := rows.Scan(&date, &ts, &open, &high, &low, &p.Close, &volume,
			&returns, &ma5, &ma20, &rsi14, &macd, &bbUpper, &bbLower, &volatility, &volumeMA5); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse daily_series scan error",
					applogger.String("ticker", ticker),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan daily price: %w", err)
		}
		p.Ticker = ticker
		p.Date = models.NewDay(date)
		if ts.Valid {
			p.Timestamp = ts.Int64
		}
		p.Open = nullable(open)
		p.High = nullable(high)
		p.Low = nullable(low)
		p.Volume = nullable(volume)
		p.Returns = nullable(returns)
		p.MA5 = nullable(ma5)
		p.MA20 = nullable(ma20)
		p.RSI14 = nullable(rsi14)
		p.MACD = nullable(macd)
		p.BBUpper = nullable(bbUpper)
		p.BBLower = nullable(bbLower)
		p.Volatility = nullable(volatility)
		p.VolumeMA5 = nullable(volumeMA5)
		tmp = append(tmp, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// DESC fetch, ascending contract.
	out := make([]models.DailyPrice, len(tmp))
	for i := range tmp {
		out[len(tmp)-1-i] = tmp[i]
	}

	if s.l != nil {
		s.l.Debug("clickhouse daily_series ok",
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// EnsureSchema creates the daily price table if it does not exist. The table
// is written by the offline ingest pipeline; creating it here only makes a
// fresh environment queryable before the first ingest run.
func (s *CHPriceStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ticker      String,
            date        Date,
            ts          Nullable(Int64),
            open        Nullable(Float64),
            high        Nullable(Float64),
            low         Nullable(Float64),
            close       Float64,
            volume      Nullable(Float64),
            returns     Nullable(Float64),
            ma5         Nullable(Float64),
            ma20        Nullable(Float64),
            rsi14       Nullable(Float64),
            macd        Nullable(Float64),
            bb_upper    Nullable(Float64),
            bb_lower    Nullable(Float64),
            volatility  Nullable(Float64),
            volume_ma5  Nullable(Float64)
        ) ENGINE = ReplacingMergeTree
        ORDER BY (ticker, date)
    `, s.table)
	return s.ch.InitSchema(ctx, []string{ddl})
}

func (s *CHPriceStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHPriceStore) Close() error {
	return s.ch.Close()
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
