package series

import (
	"testing"

	"StockCast/internal/domain/models"
)

func f(v float64) *float64 { return &v }

func day(t *testing.T, s string) models.Day {
	t.Helper()
	d, err := models.ParseDay(s)
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	return d
}

func history(t *testing.T, dates ...string) []models.DailyPrice {
	t.Helper()
	out := make([]models.DailyPrice, 0, len(dates))
	for i, s := range dates {
		out = append(out, models.DailyPrice{
			Ticker: "ASML.AS",
			Date:   day(t, s),
			Close:  100 + float64(i),
			MA5:    f(99.5),
			RSI14:  f(55),
		})
	}
	return out
}

func TestMergeEmptyHistory(t *testing.T) {
	q := &models.LiveQuote{Date: day(t, "2024-01-05"), Close: f(101)}
	if got := Merge(nil, q); len(got) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(got))
	}
}

func TestMergeNilOrUnusableQuote(t *testing.T) {
	h := history(t, "2024-01-04", "2024-01-05")

	if got := Merge(h, nil); len(got) != len(h) || got[1].Close != h[1].Close {
		t.Fatalf("nil quote must leave history unchanged")
	}
	if got := Merge(h, &models.LiveQuote{Date: day(t, "2024-01-05")}); got[1].Close != h[1].Close {
		t.Fatalf("quote without close must leave history unchanged")
	}
}

func TestMergeSameDayReplacesLast(t *testing.T) {
	h := history(t, "2024-01-04", "2024-01-05")
	q := &models.LiveQuote{
		Date:      day(t, "2024-01-05"),
		Timestamp: 1704448800000,
		Close:     f(107.5),
		Volume:    f(12345),
	}

	got := Merge(h, q)
	if len(got) != len(h) {
		t.Fatalf("same-day merge must not change length: got %d want %d", len(got), len(h))
	}
	lastRow := got[len(got)-1]
	if lastRow.Close != 107.5 {
		t.Fatalf("close not overlaid: got %v", lastRow.Close)
	}
	if lastRow.Volume == nil || *lastRow.Volume != 12345 {
		t.Fatalf("volume not overlaid")
	}
	// Fields the quote does not define keep the session's values.
	if lastRow.MA5 == nil || *lastRow.MA5 != 99.5 {
		t.Fatalf("indicator fields must carry over")
	}
	// Input untouched.
	if h[len(h)-1].Close == 107.5 {
		t.Fatalf("merge mutated its input")
	}
}

func TestMergeLaterDayAppends(t *testing.T) {
	h := history(t, "2024-01-04", "2024-01-05")
	q := &models.LiveQuote{Date: day(t, "2024-01-06"), Close: f(110)}

	got := Merge(h, q)
	if len(got) != len(h)+1 {
		t.Fatalf("expected append: got %d want %d", len(got), len(h)+1)
	}
	added := got[len(got)-1]
	if !added.Date.Equal(q.Date) || added.Close != 110 {
		t.Fatalf("appended row wrong: %v close=%v", added.Date, added.Close)
	}
	// Indicators carried forward from the previous session.
	if added.RSI14 == nil || *added.RSI14 != 55 {
		t.Fatalf("indicators must carry forward on append")
	}
}

func TestMergeStaleTickIgnored(t *testing.T) {
	h := history(t, "2024-01-04", "2024-01-05")
	q := &models.LiveQuote{Date: day(t, "2024-01-03"), Close: f(90)}

	got := Merge(h, q)
	if len(got) != len(h) || got[len(got)-1].Close != h[len(h)-1].Close {
		t.Fatalf("stale tick must be ignored")
	}
}

func TestMergeIdempotent(t *testing.T) {
	h := history(t, "2024-01-04", "2024-01-05")
	q := &models.LiveQuote{Date: day(t, "2024-01-06"), Close: f(110)}

	once := Merge(h, q)
	twice := Merge(once, q)
	if len(twice) != len(once) {
		t.Fatalf("second merge changed length: %d vs %d", len(twice), len(once))
	}
	if twice[len(twice)-1].Close != once[len(once)-1].Close {
		t.Fatalf("second merge changed the last close")
	}
}

func TestMergeKeepsOrderingInvariant(t *testing.T) {
	h := history(t, "2024-01-03", "2024-01-04", "2024-01-05")
	q := &models.LiveQuote{Date: day(t, "2024-01-08"), Close: f(120)}

	got := Merge(h, q)
	for i := 1; i < len(got); i++ {
		if !got[i].Date.After(got[i-1].Date) {
			t.Fatalf("series not strictly ascending at %d", i)
		}
	}
}
