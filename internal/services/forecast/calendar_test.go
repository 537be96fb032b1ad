package forecast

import (
	"testing"
	"time"

	"StockCast/internal/domain/models"
)

func day(y int, m time.Month, d int) models.Day {
	return models.NewDay(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestProjectSkipsWeekend(t *testing.T) {
	// Friday anchor: forecasts land on Mon, Tue, Wed.
	points := Project(day(2024, time.January, 5), []float64{1, 2, 3})

	want := []models.Day{
		day(2024, time.January, 8),
		day(2024, time.January, 9),
		day(2024, time.January, 10),
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i, p := range points {
		if !p.Date.Equal(want[i]) {
			t.Fatalf("point %d dated %s, want %s", i, p.Date, want[i])
		}
	}
}

func TestProjectMidweekAnchor(t *testing.T) {
	// Wednesday anchor: Thu, Fri, then skip to Monday.
	points := Project(day(2024, time.January, 3), []float64{1, 2, 3})

	want := []models.Day{
		day(2024, time.January, 4),
		day(2024, time.January, 5),
		day(2024, time.January, 8),
	}
	for i, p := range points {
		if !p.Date.Equal(want[i]) {
			t.Fatalf("point %d dated %s, want %s", i, p.Date, want[i])
		}
	}
}

func TestProjectSaturdayAnchor(t *testing.T) {
	// Saturday anchor: next trading day is Monday.
	points := Project(day(2024, time.January, 6), []float64{1})
	if !points[0].Date.Equal(day(2024, time.January, 8)) {
		t.Fatalf("saturday anchor projected to %s", points[0].Date)
	}
}

func TestProjectRoundsToCents(t *testing.T) {
	points := Project(day(2024, time.January, 3), []float64{123.456789, 99.994, 100.006})
	if points[0].PredictedClose != 123.46 {
		t.Fatalf("got %v, want 123.46", points[0].PredictedClose)
	}
	if points[1].PredictedClose != 99.99 {
		t.Fatalf("got %v, want 99.99", points[1].PredictedClose)
	}
	if points[2].PredictedClose != 100.01 {
		t.Fatalf("got %v, want 100.01", points[2].PredictedClose)
	}
}
