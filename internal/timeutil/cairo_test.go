package timeutil

import (
	"testing"
	"time"
)

func TestDayKeyUsesBusinessTimezone(t *testing.T) {
	// 23:30 UTC on the 14th is already the 15th in Cairo
	ts := time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC)
	if got := DayKey(ts); got != "2026-10-15" {
		t.Fatalf("DayKey = %s, want 2026-10-15", got)
	}
}

func TestStartAndEndOfDay(t *testing.T) {
	ts := time.Date(2026, 3, 9, 12, 0, 0, 0, Location)
	start, end := StartOfDay(ts), EndOfDay(ts)
	if start.Hour() != 0 || start.Minute() != 0 || start.Day() != 9 {
		t.Fatalf("StartOfDay = %v", start)
	}
	if end.Hour() != 23 || end.Minute() != 59 || end.Day() != 9 {
		t.Fatalf("EndOfDay = %v", end)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if DayKey(d) != "2026-01-31" {
		t.Fatalf("round trip = %s", DayKey(d))
	}
	if _, err := ParseDate("31/01/2026"); err == nil {
		t.Fatal("expected parse error")
	}
}
