package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"StockCast/pkg/logger"
)

func quietLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func chartBody(timestamps string, closes string) string {
	return fmt.Sprintf(`{"chart":{"result":[{
		"meta":{"regularMarketTime":1704456000},
		"timestamp":[%s],
		"indicators":{"quote":[{
			"open":[100.1,100.5,null],
			"high":[100.9,101.2,null],
			"low":[99.8,100.2,null],
			"close":[%s],
			"volume":[1200,800,null]
		}]}
	}],"error":null}}`, timestamps, closes)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	gw := New(srv.URL, quietLogger(t))
	return gw.(*Client), srv
}

func TestLatestSkipsTrailingNulls(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/ASML.AS" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "1m" {
			t.Errorf("interval = %s", got)
		}
		fmt.Fprint(w, chartBody("1704450000,1704450060,1704450120", "100.2,100.7,null"))
	})

	q, err := c.Latest(context.Background(), "ASML.AS")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if q.Close == nil || *q.Close != 100.7 {
		t.Fatalf("expected close from last non-null bucket, got %v", q.Close)
	}
	if q.Timestamp != 1704450060*1000 {
		t.Fatalf("timestamp: got %d", q.Timestamp)
	}
	if q.Volume == nil || *q.Volume != 800 {
		t.Fatalf("volume not carried from the same bucket: %v", q.Volume)
	}
}

func TestLatestAllNulls(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartBody("1704450000,1704450060,1704450120", "null,null,null"))
	})

	_, err := c.Latest(context.Background(), "SAP.DE")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestLatestUpstreamStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Latest(context.Background(), "SAP.DE")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestLatestProviderError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	})

	_, err := c.Latest(context.Background(), "NOPE.XX")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestLatestConnectionRefused(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.Latest(context.Background(), "SAP.DE")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestIntradayDropsNullBuckets(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartBody("1704450000,1704450060,1704450120", "100.2,null,100.9"))
	})

	series, err := c.Intraday(context.Background(), "ASML.AS")
	if err != nil {
		t.Fatalf("intraday: %v", err)
	}
	if len(series.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(series.Points))
	}
	if series.Points[0].Close != 100.2 || series.Points[1].Close != 100.9 {
		t.Fatalf("wrong closes: %+v", series.Points)
	}
	if series.Latest == nil || series.Latest.Close != 100.9 {
		t.Fatalf("latest pointer wrong: %+v", series.Latest)
	}
	if series.MarketTimestamp == nil || *series.MarketTimestamp != 1704456000 {
		t.Fatalf("market timestamp not carried: %v", series.MarketTimestamp)
	}
}
