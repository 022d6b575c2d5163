package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tailor-pos/internal/models"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/timeutil"
)

func TestQuickRange(t *testing.T) {
	// Thursday 15 Oct 2026
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, timeutil.Location)
	cases := []struct {
		name, start string
	}{
		{RangeToday, "2026-10-15"},
		{RangeWeek, "2026-10-11"},
		{RangeMonth, "2026-10-01"},
		{RangeYear, "2026-01-01"},
		{RangeAll, "2020-01-01"},
	}
	for _, tc := range cases {
		start, end, err := QuickRange(tc.name, now)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if start != tc.start || end != "2026-10-15" {
			t.Errorf("%s = [%s, %s], want [%s, 2026-10-15]", tc.name, start, end, tc.start)
		}
	}
	if _, _, err := QuickRange("decade", now); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown range err = %v", err)
	}
}

func TestQuickRangeWeekOnSunday(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 9, 0, 0, 0, timeutil.Location)
	start, _, _ := QuickRange(RangeWeek, sunday)
	if start != "2026-10-18" {
		t.Fatalf("week start on a Sunday = %s", start)
	}
}

func TestSummarize(t *testing.T) {
	days := []models.DailyStat{
		{Date: "2026-10-14", TotalSales: dec(300), TotalCost: dec(100), OrderCount: 2},
		{Date: "2026-10-15", TotalSales: dec(400), TotalCost: dec(250), OrderCount: 1},
	}
	r := Summarize("2026-10-14", "2026-10-15", days)
	if !r.TotalSales.Equal(dec(700)) || !r.NetProfit.Equal(dec(350)) || r.OrderCount != 3 {
		t.Fatalf("report = %+v", r)
	}
	if r.ProfitMarginPct.String() != "50" {
		t.Errorf("margin = %s", r.ProfitMarginPct)
	}
	// 700/3 = 233.33
	if r.AvgOrderValue.StringFixed(0) != "233" {
		t.Errorf("avg = %s", r.AvgOrderValue)
	}

	empty := Summarize("2026-10-01", "2026-10-02", nil)
	if !empty.ProfitMarginPct.IsZero() || !empty.AvgOrderValue.IsZero() || empty.Days == nil {
		t.Errorf("empty report = %+v", empty)
	}
}

func TestSummarizeKeepsExactMargin(t *testing.T) {
	r := Summarize("a", "b", []models.DailyStat{{TotalSales: dec(300), TotalCost: dec(200), OrderCount: 2}})
	want := dec(100).Div(dec(300)).Mul(dec(100))
	if !r.ProfitMarginPct.Equal(want) {
		t.Fatalf("margin = %s, want %s", r.ProfitMarginPct, want)
	}
	if r.ProfitMarginPct.StringFixed(1) != "33.3" {
		t.Fatalf("displayed margin = %s", r.ProfitMarginPct.StringFixed(1))
	}
}

func TestReportMatchesSingleCheckout(t *testing.T) {
	st := newShop(t)
	co := newCheckout(st, &notify.Recorder{})
	ctx := context.Background()
	if _, err := co.Checkout(ctx, retailCart("c", 2, nil)); err != nil {
		t.Fatal(err)
	}

	svc := NewReportService(st, nil)
	svc.Now = clock
	r, err := svc.Quick(ctx, RangeToday)
	if err != nil {
		t.Fatal(err)
	}
	if !r.TotalSales.Equal(dec(200)) || !r.TotalCost.Equal(dec(120)) || !r.NetProfit.Equal(dec(80)) || r.OrderCount != 1 {
		t.Fatalf("report = %+v", r)
	}
	if r.ProfitMarginPct.String() != "40" || r.AvgOrderValue.String() != "200" {
		t.Fatalf("margin/avg = %s/%s", r.ProfitMarginPct, r.AvgOrderValue)
	}

	if _, err := svc.Range(ctx, "2026-10-16", "2026-10-15"); !errors.Is(err, ErrValidation) {
		t.Fatalf("reversed range err = %v", err)
	}
}

type memArchive struct {
	files map[string][]byte
}

func (m *memArchive) Put(ctx context.Context, name, contentType string, body []byte) (string, error) {
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files["reports/"+name] = body
	return "reports/" + name, nil
}

func TestReportExports(t *testing.T) {
	svc := NewReportService(nil, nil)
	svc.Now = clock
	r := Summarize("2026-10-14", "2026-10-15", []models.DailyStat{
		{Date: "2026-10-14", TotalSales: dec(300), TotalCost: dec(100), OrderCount: 2},
	})

	csvData, err := svc.CSV(r)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	if len(lines) != 3 || lines[1] != "2026-10-14,300.00,100.00,200.00,2" {
		t.Fatalf("csv = %q", csvData)
	}

	pdfData, err := svc.PDF(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdfData, []byte("%PDF")) {
		t.Fatal("pdf output does not start with %PDF")
	}

	bundle, err := svc.Bundle(r)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil || len(zr.File) != 2 {
		t.Fatalf("bundle: %v, %d files", err, len(zr.File))
	}

	if _, err := svc.ArchiveReport(context.Background(), r); !errors.Is(err, ErrArchiveDisabled) {
		t.Fatalf("archive without storage err = %v", err)
	}
	arch := &memArchive{}
	svc.Archive = arch
	keys, err := svc.ArchiveReport(context.Background(), r)
	if err != nil || len(keys) != 2 {
		t.Fatalf("archive = %v, %v", keys, err)
	}
	if _, ok := arch.files["reports/sales_2026-10-14_2026-10-15.pdf"]; !ok {
		t.Fatalf("uploaded = %v", keys)
	}
}
