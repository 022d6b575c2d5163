package handlers

import (
	"context"
	"net/http"
	"time"

	"tailor-pos/internal/models"
	"tailor-pos/internal/services"
	"tailor-pos/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// load resolves the report from either ?range=today|week|month|year|all or
// ?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *ReportHandler) load(ctx context.Context, r *http.Request) (*models.Report, error) {
	q := r.URL.Query()
	if start, end := q.Get("start"), q.Get("end"); start != "" || end != "" {
		return h.Service.Range(ctx, start, end)
	}
	return h.Service.Quick(ctx, q.Get("range"))
}

// GetReport handles GET /api/reports
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.load(r.Context(), r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

// GetCSV handles GET /api/reports/csv
func (h *ReportHandler) GetCSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.load(r.Context(), r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	data, err := h.Service.CSV(report)
	if err != nil {
		utils.Error(w, err)
		return
	}
	attachment(w, "text/csv", "sales_"+report.StartDate+"_"+report.EndDate+".csv", data)
}

// GetPDF handles GET /api/reports/pdf
func (h *ReportHandler) GetPDF(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	report, err := h.load(ctx, r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	data, err := h.Service.PDF(report)
	if err != nil {
		utils.Error(w, err)
		return
	}
	attachment(w, "application/pdf", "sales_"+report.StartDate+"_"+report.EndDate+".pdf", data)
}

// GetBundle handles GET /api/reports/bundle, a ZIP with the CSV and PDF
func (h *ReportHandler) GetBundle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	report, err := h.load(ctx, r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	data, err := h.Service.Bundle(report)
	if err != nil {
		utils.Error(w, err)
		return
	}
	attachment(w, "application/zip", "sales_"+report.StartDate+"_"+report.EndDate+".zip", data)
}

// Archive handles POST /api/reports/archive and uploads the files to the
// configured bucket
func (h *ReportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	report, err := h.load(ctx, r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	keys, err := h.Service.ArchiveReport(ctx, report)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string][]string{"keys": keys})
}
