package handlers

import (
	"net/http"

	"tailor-pos/internal/models"
	"tailor-pos/internal/services"
	"tailor-pos/pkg/utils"

	"github.com/gorilla/mux"
)

type SalesHandler struct {
	Service *services.SalesService
}

func NewSalesHandler(s *services.SalesService) *SalesHandler {
	return &SalesHandler{Service: s}
}

// ListSales handles GET /api/sales, newest first
// Query params: branch_id, status, type, customer_phone, page_size, cursor
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.SaleFilter{
		BranchID:      scopeBranch(r, q.Get("branch_id")),
		Status:        q.Get("status"),
		Type:          q.Get("type"),
		CustomerPhone: q.Get("customer_phone"),
		PageSize:      queryInt(r, "page_size", 0),
	}
	page, err := h.Service.List(r.Context(), f, q.Get("cursor"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, page)
}

func (h *SalesHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, sale)
}

// UpdateStatus handles PATCH /api/sales/{id}/status
func (h *SalesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSaleStatusRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	sale, err := h.Service.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, sale)
}
