package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"tailor-pos/internal/cache"
	"tailor-pos/internal/models"
	"tailor-pos/internal/store"
	"tailor-pos/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

const (
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
	RangeAll   = "all"
)

// allTimeStart is the first day the "all" range covers
const allTimeStart = "2020-01-01"

var ErrArchiveDisabled = errors.New("report archiving is not configured")

// Archiver stores exported files; *export.S3Archiver implements it
type Archiver interface {
	Put(ctx context.Context, name, contentType string, body []byte) (string, error)
}

type ReportService struct {
	Store        store.Reader
	Archive      Archiver
	Now          func() time.Time
	BusinessName string
}

func NewReportService(st store.Reader, archive Archiver) *ReportService {
	return &ReportService{
		Store:        st,
		Archive:      archive,
		Now:          timeutil.Now,
		BusinessName: "Tailor POS",
	}
}

// QuickRange resolves a named range to [start, today]. Weeks start on Sunday.
func QuickRange(name string, now time.Time) (string, string, error) {
	today := timeutil.StartOfDay(now)
	var start time.Time
	switch name {
	case RangeToday, "":
		start = today
	case RangeWeek:
		start = today.AddDate(0, 0, -int(today.Weekday()))
	case RangeMonth:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, timeutil.Location)
	case RangeYear:
		start = time.Date(today.Year(), 1, 1, 0, 0, 0, 0, timeutil.Location)
	case RangeAll:
		return allTimeStart, timeutil.DayKey(today), nil
	default:
		return "", "", invalid("range", "unknown range %q", name)
	}
	return timeutil.DayKey(start), timeutil.DayKey(today), nil
}

func (s *ReportService) Quick(ctx context.Context, name string) (*models.Report, error) {
	start, end, err := QuickRange(name, s.Now())
	if err != nil {
		return nil, err
	}
	return s.Range(ctx, start, end)
}

// Range sums the daily stats of every day in [start, end]
func (s *ReportService) Range(ctx context.Context, start, end string) (*models.Report, error) {
	if _, err := timeutil.ParseDate(start); err != nil {
		return nil, invalid("start", "start date must be YYYY-MM-DD")
	}
	if _, err := timeutil.ParseDate(end); err != nil {
		return nil, invalid("end", "end date must be YYYY-MM-DD")
	}
	if start > end {
		return nil, invalid("start", "start date is after end date")
	}

	key := cache.Key(ctx, cache.ReportsPrefix, start+":"+end)
	var cached models.Report
	if cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	days, err := s.Store.DailyStatsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	r := Summarize(start, end, days)
	cache.SetJSON(ctx, key, r, cache.TTLFor(key))
	return r, nil
}

// Summarize derives the report figures from a set of day rows
func Summarize(start, end string, days []models.DailyStat) *models.Report {
	r := &models.Report{
		StartDate:       start,
		EndDate:         end,
		TotalSales:      decimal.Zero,
		TotalCost:       decimal.Zero,
		ProfitMarginPct: decimal.Zero,
		AvgOrderValue:   decimal.Zero,
		Days:            days,
	}
	if r.Days == nil {
		r.Days = []models.DailyStat{}
	}
	for _, d := range days {
		r.TotalSales = r.TotalSales.Add(d.TotalSales)
		r.TotalCost = r.TotalCost.Add(d.TotalCost)
		r.OrderCount += d.OrderCount
	}
	r.NetProfit = r.TotalSales.Sub(r.TotalCost)
	if r.TotalSales.IsPositive() {
		r.ProfitMarginPct = r.NetProfit.Div(r.TotalSales).Mul(decimal.NewFromInt(100))
	}
	if r.OrderCount > 0 {
		r.AvgOrderValue = r.TotalSales.Div(decimal.NewFromInt(int64(r.OrderCount)))
	}
	return r
}

func (s *ReportService) CSV(r *models.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"Date", "Sales", "Cost", "Profit", "Orders"})
	for _, d := range r.Days {
		w.Write([]string{
			d.Date,
			d.TotalSales.StringFixed(2),
			d.TotalCost.StringFixed(2),
			d.TotalSales.Sub(d.TotalCost).StringFixed(2),
			fmt.Sprintf("%d", d.OrderCount),
		})
	}
	w.Write([]string{
		"Total",
		r.TotalSales.StringFixed(2),
		r.TotalCost.StringFixed(2),
		r.NetProfit.StringFixed(2),
		fmt.Sprintf("%d", r.OrderCount),
	})

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ReportService) PDF(r *models.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, s.BusinessName+" - Sales Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Period: %s to %s", r.StartDate, r.EndDate), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", s.Now().In(timeutil.Location).Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, "Total sales: EGP "+r.TotalSales.StringFixed(2), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Total cost: EGP "+r.TotalCost.StringFixed(2), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Net profit: EGP "+r.NetProfit.StringFixed(2), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Margin: "+r.ProfitMarginPct.StringFixed(1)+"%", "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Orders: %d", r.OrderCount), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Average order: EGP "+r.AvgOrderValue.StringFixed(0), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(40, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Sales", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Cost", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Profit", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Orders", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, d := range r.Days {
		pdf.CellFormat(40, 6, d.Date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, d.TotalSales.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, d.TotalCost.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, d.TotalSales.Sub(d.TotalCost).StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", d.OrderCount), "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Bundle zips the CSV and PDF of one report
func (s *ReportService) Bundle(r *models.Report) ([]byte, error) {
	csvData, err := s.CSV(r)
	if err != nil {
		return nil, err
	}
	pdfData, err := s.PDF(r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string][]byte{
		reportFileName(r, "csv"): csvData,
		reportFileName(r, "pdf"): pdfData,
	} {
		fw, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func reportFileName(r *models.Report, ext string) string {
	return fmt.Sprintf("sales_%s_%s.%s", r.StartDate, r.EndDate, ext)
}

// ArchiveReport uploads the PDF and CSV of a report and returns their keys
func (s *ReportService) ArchiveReport(ctx context.Context, r *models.Report) ([]string, error) {
	if s.Archive == nil {
		return nil, ErrArchiveDisabled
	}
	csvData, err := s.CSV(r)
	if err != nil {
		return nil, err
	}
	pdfData, err := s.PDF(r)
	if err != nil {
		return nil, err
	}
	csvKey, err := s.Archive.Put(ctx, reportFileName(r, "csv"), "text/csv", csvData)
	if err != nil {
		return nil, err
	}
	pdfKey, err := s.Archive.Put(ctx, reportFileName(r, "pdf"), "application/pdf", pdfData)
	if err != nil {
		return []string{csvKey}, err
	}
	return []string{csvKey, pdfKey}, nil
}
